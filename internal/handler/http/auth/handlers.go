package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"newssense/internal/domain/entity"
	"newssense/internal/handler/http/dto"
	"newssense/internal/handler/http/respond"
	"newssense/internal/observability/logging"
	userUC "newssense/internal/usecase/user"
)

// Accounts is the user use case as the handlers see it.
type Accounts interface {
	Register(ctx context.Context, in userUC.RegisterInput) (*userUC.Session, error)
	Login(ctx context.Context, email, password string) (*userUC.Session, error)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Token string   `json:"token"`
	User  dto.User `json:"user"`
}

// RegisterHandler creates an account: 201 {token,user}, 400 on invalid
// input, 409 when the email is taken.
type RegisterHandler struct{ Svc Accounts }

// ServeHTTP ユーザー登録
// @Summary      ユーザー登録
// @Description  アカウントを作成し JWT トークンを発行します
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body registerRequest true "登録情報"
// @Success      201 {object} SessionResponse "JWT トークンとユーザー"
// @Failure      400 {object} respond.MessageBody "リクエストが不正"
// @Failure      409 {object} respond.MessageBody "Email already registered"
// @Failure      429 {object} respond.MessageBody "Too many requests - rate limit exceeded"
// @Header       429 {integer} Retry-After "Seconds until the client should retry"
// @Failure      500 {object} respond.MessageBody "サーバーエラー"
// @Router       /api/auth/register [post]
func (h RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequestID(r.Context(), logging.FromContext(r.Context()))

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		recordCredential("register", "invalid_request")
		respond.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.Svc.Register(r.Context(), userUC.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrInvalidInput):
			recordCredential("register", "invalid_input")
			respond.SafeError(w, r, http.StatusBadRequest, err)
		case errors.Is(err, userUC.ErrEmailTaken):
			recordCredential("register", "conflict")
			respond.SafeError(w, r, http.StatusConflict, err)
		default:
			recordCredential("register", ResultError)
			respond.SafeError(w, r, http.StatusInternalServerError, err)
		}
		return
	}

	recordCredential("register", ResultSuccess)
	logger.Info("user registered", slog.String("user_id", sess.User.ID))
	respond.JSON(w, http.StatusCreated, SessionResponse{Token: sess.Token, User: dto.FromUser(sess.User)})
}

// LoginHandler exchanges credentials for a token: 200 {token,user} or 401
// "invalid credentials" without saying which part was wrong.
type LoginHandler struct{ Svc Accounts }

// ServeHTTP ログイン
// @Summary      ログイン
// @Description  メールアドレスとパスワードで認証し、JWT トークンを発行します
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body loginRequest true "ログイン情報"
// @Success      200 {object} SessionResponse "JWT トークンとユーザー"
// @Failure      400 {object} respond.MessageBody "リクエストが不正"
// @Failure      401 {object} respond.MessageBody "認証失敗"
// @Failure      429 {object} respond.MessageBody "Too many requests - rate limit exceeded"
// @Header       429 {integer} Retry-After "Seconds until the client should retry"
// @Failure      500 {object} respond.MessageBody "サーバーエラー"
// @Router       /api/auth/login [post]
func (h LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequestID(r.Context(), logging.FromContext(r.Context()))

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		recordCredential("login", "invalid_request")
		respond.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, userUC.ErrInvalidCredentials) {
			recordCredential("login", "invalid_credentials")
			logger.Info("login rejected")
			respond.SafeError(w, r, http.StatusUnauthorized, err)
			return
		}
		recordCredential("login", ResultError)
		respond.SafeError(w, r, http.StatusInternalServerError, err)
		return
	}

	recordCredential("login", ResultSuccess)
	logger.Info("user logged in", slog.String("user_id", sess.User.ID))
	respond.JSON(w, http.StatusOK, SessionResponse{Token: sess.Token, User: dto.FromUser(sess.User)})
}

// Register mounts the register and login endpoints behind limit, which is
// typically the per-IP auth rate limiter.
func Register(mux *http.ServeMux, svc Accounts, limit func(http.Handler) http.Handler) {
	if limit == nil {
		limit = func(h http.Handler) http.Handler { return h }
	}
	mux.Handle("POST /api/auth/register", limit(RegisterHandler{Svc: svc}))
	mux.Handle("POST /api/auth/login", limit(LoginHandler{Svc: svc}))
}
