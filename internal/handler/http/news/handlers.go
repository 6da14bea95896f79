// Package news serves the personalised feed, single articles and the
// caller's saved articles. Every route sits behind the auth gate.
package news

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"newssense/internal/domain/entity"
	"newssense/internal/handler/http/auth"
	"newssense/internal/handler/http/dto"
	"newssense/internal/handler/http/pathutil"
	"newssense/internal/handler/http/respond"
	"newssense/internal/observability/logging"
	artUC "newssense/internal/usecase/article"
)

// Response messages shared with the web client.
const (
	MsgArticleNotFound = "Article not found"
	MsgInvalidID       = "Invalid article ID"
	MsgSaved           = "Article saved successfully"
	MsgAlreadySaved    = "Article already saved"
	msgNoUser          = "Authentication failed"
)

// Articles is the article use case as the handlers see it.
type Articles interface {
	Feed(ctx context.Context, pref entity.Preference) ([]*entity.Article, error)
	Get(ctx context.Context, id int64) (*entity.Article, error)
	Save(ctx context.Context, userID string, articleID int64) (bool, error)
	Saved(ctx context.Context, userID string) ([]*entity.Article, error)
}

// currentUser is set by the gate; its absence means the route was mounted
// without it.
func currentUser(w http.ResponseWriter, r *http.Request) (*entity.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Message(w, http.StatusUnauthorized, msgNoUser)
	}
	return u, ok
}

// FeedHandler returns the newest articles matching the caller's preferences
// (at most 30). A user with no preferences gets the unfiltered feed.
type FeedHandler struct{ Svc Articles }

// ServeHTTP パーソナライズフィード取得
// @Summary      パーソナライズフィード取得
// @Description  保存済みの設定 (topics / sources / keywords) のいずれかに一致する記事を新しい順に最大30件返します
// @Tags         news
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array}  dto.Article "記事一覧"
// @Failure      401 {object} respond.MessageBody "Authentication required"
// @Failure      500 {object} respond.MessageBody "サーバーエラー"
// @Router       /api/news [get]
func (h FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	articles, err := h.Svc.Feed(r.Context(), u.Preferences)
	if err != nil {
		respond.SafeError(w, r, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.FromArticles(articles))
}

// GetHandler returns one article by ID.
type GetHandler struct{ Svc Articles }

// ServeHTTP 記事詳細取得
// @Summary      記事詳細取得
// @Tags         news
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "記事ID"
// @Success      200 {object} dto.Article "記事詳細"
// @Failure      400 {object} respond.MessageBody "Invalid article id"
// @Failure      401 {object} respond.MessageBody "Authentication required"
// @Failure      404 {object} respond.MessageBody "Article not found"
// @Failure      500 {object} respond.MessageBody "サーバーエラー"
// @Router       /api/news/{id} [get]
func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ParseID(r, "id")
	if err != nil {
		respond.Message(w, http.StatusBadRequest, MsgInvalidID)
		return
	}

	article, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeArticleError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.FromArticle(article))
}

// SaveHandler adds an article to the caller's saved list. Saving twice is
// not an error; the message tells the two cases apart.
type SaveHandler struct{ Svc Articles }

// ServeHTTP 記事保存
// @Summary      記事保存
// @Description  記事を保存リストに追加します。保存済みでも 200 を返します
// @Tags         news
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "記事ID"
// @Success      200 {object} respond.MessageBody "Article saved / already saved"
// @Failure      400 {object} respond.MessageBody "Invalid article id"
// @Failure      401 {object} respond.MessageBody "Authentication required"
// @Failure      404 {object} respond.MessageBody "Article not found"
// @Failure      500 {object} respond.MessageBody "サーバーエラー"
// @Router       /api/news/{id}/save [post]
func (h SaveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathutil.ParseID(r, "id")
	if err != nil {
		respond.Message(w, http.StatusBadRequest, MsgInvalidID)
		return
	}

	added, err := h.Svc.Save(r.Context(), u.ID, id)
	if err != nil {
		writeArticleError(w, r, err)
		return
	}
	if !added {
		respond.Message(w, http.StatusOK, MsgAlreadySaved)
		return
	}
	logging.FromContext(r.Context()).Info("article saved",
		slog.String("user_id", u.ID),
		slog.Int64("article_id", id))
	respond.Message(w, http.StatusOK, MsgSaved)
}

// SavedHandler lists the caller's saved articles in the order they were saved.
type SavedHandler struct{ Svc Articles }

// ServeHTTP 保存記事一覧
// @Summary      保存記事一覧
// @Tags         news
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array}  dto.Article "保存した順の記事一覧"
// @Failure      401 {object} respond.MessageBody "Authentication required"
// @Failure      500 {object} respond.MessageBody "サーバーエラー"
// @Router       /api/news/saved/articles [get]
func (h SavedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	articles, err := h.Svc.Saved(r.Context(), u.ID)
	if err != nil {
		respond.SafeError(w, r, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.FromArticles(articles))
}

func writeArticleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, artUC.ErrInvalidArticleID):
		respond.Message(w, http.StatusBadRequest, MsgInvalidID)
	case errors.Is(err, artUC.ErrArticleNotFound):
		respond.Message(w, http.StatusNotFound, MsgArticleNotFound)
	default:
		respond.SafeError(w, r, http.StatusInternalServerError, err)
	}
}

// Register mounts the news routes, each wrapped in gate.
func Register(mux *http.ServeMux, svc Articles, gate func(http.Handler) http.Handler) {
	mux.Handle("GET /api/news", gate(FeedHandler{Svc: svc}))
	mux.Handle("GET /api/news/{id}", gate(GetHandler{Svc: svc}))
	mux.Handle("POST /api/news/{id}/save", gate(SaveHandler{Svc: svc}))
	mux.Handle("GET /api/news/saved/articles", gate(SavedHandler{Svc: svc}))
}
