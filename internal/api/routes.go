package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		RequestID(h.logger),
		Recovery(),
		Logging(),
	)

	// Validations
	mux.Handle("GET /api/v1/validations", chain(http.HandlerFunc(h.ListValidations)))
	mux.Handle("POST /api/v1/validations", chain(http.HandlerFunc(h.CreateValidation)))
	mux.Handle("GET /api/v1/validations/{id}", chain(http.HandlerFunc(h.GetValidation)))

	// Webhooks
	mux.Handle("POST /api/v1/webhooks/github", chain(http.HandlerFunc(h.GitHubWebhook)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}
