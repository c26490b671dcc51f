package flyer_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"flyerxpress/internal/flyer"
	"flyerxpress/internal/logger"
	"flyerxpress/internal/models"
	"flyerxpress/internal/utils"

	"github.com/go-chi/chi/v5"
)

const maxSpecBytes = 64 << 10

type Handler struct {
	Renderer *flyer.Renderer
	Logger   *logger.Logger
}

func NewHandler(renderer *flyer.Renderer, log *logger.Logger) *Handler {
	return &Handler{Renderer: renderer, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/flyers/render", h.Render)
}

// Render returns the flyer PNG as a download.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	var spec models.FlyerDesignSpec
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSpecBytes)).Decode(&spec); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	data, err := h.Renderer.RenderPNG(spec)
	if err != nil {
		h.Logger.Error("FLYER", fmt.Sprintf("Failed to render flyer: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to render flyer", nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", flyer.DownloadName(spec.Title)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
