// Package preferences serves GET and PUT /api/preferences for the
// authenticated user.
package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"newssense/internal/domain/entity"
	"newssense/internal/handler/http/auth"
	"newssense/internal/handler/http/dto"
	"newssense/internal/handler/http/respond"
	prefUC "newssense/internal/usecase/preference"
)

// MsgUpdated acknowledges a successful PUT.
const MsgUpdated = "Preferences updated successfully"

// Preferences is the preference use case as the handlers see it.
type Preferences interface {
	Get(ctx context.Context, userID string) (entity.Preference, error)
	Set(ctx context.Context, userID string, upd prefUC.Update) (entity.Preference, error)
}

// UpdateRequest is the PUT body. Omitted or null sets are handled by the
// configured update mode.
type UpdateRequest struct {
	Topics   []string `json:"topics"`
	Sources  []string `json:"sources"`
	Keywords []string `json:"keywords"`
}

// UpdateResponse echoes the stored preferences.
type UpdateResponse struct {
	Message     string         `json:"message"`
	Preferences dto.Preference `json:"preferences"`
}

// GetHandler returns the caller's stored preferences.
type GetHandler struct{ Svc Preferences }

// ServeHTTP 設定取得
// @Summary      設定取得
// @Tags         preferences
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} dto.Preference "現在の設定"
// @Failure      401 {object} respond.MessageBody "Authentication required"
// @Failure      404 {object} respond.MessageBody "User not found"
// @Failure      500 {object} respond.MessageBody "サーバーエラー"
// @Router       /api/preferences [get]
func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Message(w, http.StatusUnauthorized, auth.MsgAuthFailed)
		return
	}

	pref, err := h.Svc.Get(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.FromPreference(pref))
}

// UpdateHandler stores new preferences. Malformed JSON, a scalar body or a
// non-array field is a 400.
type UpdateHandler struct{ Svc Preferences }

// ServeHTTP 設定更新
// @Summary      設定更新
// @Description  省略したフィールドは更新モード (replace / merge) に従って扱われます
// @Tags         preferences
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body UpdateRequest false "新しい設定"
// @Success      200 {object} UpdateResponse "保存後の設定"
// @Failure      400 {object} respond.MessageBody "リクエストが不正"
// @Failure      401 {object} respond.MessageBody "Authentication required"
// @Failure      404 {object} respond.MessageBody "User not found"
// @Failure      500 {object} respond.MessageBody "サーバーエラー"
// @Router       /api/preferences [put]
func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Message(w, http.StatusUnauthorized, auth.MsgAuthFailed)
		return
	}

	req, err := decodeUpdate(r.Body)
	if err != nil {
		respond.SafeError(w, r, http.StatusBadRequest, decodeError(err))
		return
	}

	pref, err := h.Svc.Set(r.Context(), u.ID, prefUC.Update{
		Topics:   req.Topics,
		Sources:  req.Sources,
		Keywords: req.Keywords,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, UpdateResponse{Message: MsgUpdated, Preferences: dto.FromPreference(pref)})
}

// decodeUpdate reads the PUT body. An empty body or a top-level array
// carries no fields and decodes to an empty request, which the update mode
// then resolves.
func decodeUpdate(body io.Reader) (UpdateRequest, error) {
	var req UpdateRequest
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return req, nil
		}
		return req, err
	}
	if raw[0] == '[' {
		return req, nil
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, err
	}
	return req, nil
}

// decodeError names the offending field when the body had the wrong shape.
func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &entity.ValidationError{Field: typeErr.Field, Message: typeErr.Field + " must be an array of strings"}
	}
	return &entity.ValidationError{Field: "body", Message: "request body must be a JSON object"}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, prefUC.ErrUserNotFound) {
		respond.SafeError(w, r, http.StatusNotFound, err)
		return
	}
	respond.SafeError(w, r, http.StatusInternalServerError, err)
}

// Register mounts the preference routes, each wrapped in gate.
func Register(mux *http.ServeMux, svc Preferences, gate func(http.Handler) http.Handler) {
	mux.Handle("GET /api/preferences", gate(GetHandler{Svc: svc}))
	mux.Handle("PUT /api/preferences", gate(UpdateHandler{Svc: svc}))
}
