package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes регистрирует маршруты API на роутере.
func RegisterRoutes(r chi.Router, h *APIHandler) {
	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)
	r.Get("/metrics", h.GetMetrics)

	r.Route("/files", func(r chi.Router) {
		r.Get("/", h.ListFiles)
		r.Post("/upload", h.UploadFile)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetFile)
			r.Delete("/", h.DeleteFile)
			r.Get("/download", h.DownloadFile)
			r.Get("/zip-contents", h.GetZipContents)
			r.Get("/metadata", h.GetFileMetadata)
		})
	})
}
