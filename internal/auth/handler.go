package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"flyerxpress/internal/logger"
	"flyerxpress/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Revoker interface {
	Revoke(ctx context.Context, token string, until time.Time) error
}

// Handler serves the current session and sign-out.
type Handler struct {
	Revoker Revoker
	Logger  *logger.Logger
}

func NewHandler(revoker Revoker, log *logger.Logger) *Handler {
	return &Handler{Revoker: revoker, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.CurrentUser)
		r.Post("/signout", h.SignOut)
	})
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", ErrUnauthorized)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Current session", session)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", ErrUnauthorized)
		return
	}

	token := tokenFrom(r.Context())
	until, err := TokenExpiry(token)
	if err != nil {
		// No exp claim: keep it blocked for a day.
		until = time.Now().Add(24 * time.Hour)
	}

	if err := h.Revoker.Revoke(r.Context(), token, until); err != nil {
		h.Logger.Error("AUTH", fmt.Sprintf("Sign-out failed for %s: %v", session.UserID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to sign out", nil)
		return
	}

	h.Logger.Info("AUTH", fmt.Sprintf("User %s signed out", session.UserID))
	utils.WriteSuccess(w, http.StatusOK, "Signed out", nil)
}
