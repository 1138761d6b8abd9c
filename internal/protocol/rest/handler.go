package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cheshire-mcp/cheshire/internal/dispatcher"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the chi router for one capability mounted at
// {basePath}/{capabilityName}/{action}, wired straight through to d.
// Middleware stack mirrors a typical chi-based service: request logging,
// panic recovery, CORS, request IDs, and a request timeout.
func NewRouter(basePath, capabilityName string, adapter *Adapter, d *dispatcher.Dispatcher, corsOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	pattern := basePath + "/" + capabilityName + "/{action}"
	r.HandleFunc(pattern, func(w http.ResponseWriter, req *http.Request) {
		handleRequest(w, req, capabilityName, adapter, d)
	})
	return r
}

func handleRequest(w http.ResponseWriter, req *http.Request, capabilityName string, adapter *Adapter, d *dispatcher.Dispatcher) {
	env, err := adapter.ToRequestEnvelope(req, capabilityName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   map[string]interface{}{"type": "BAD_REQUEST", "message": err.Error()},
		})
		return
	}

	result := d.Dispatch(req.Context(), env)

	rendered, err := adapter.FromProcessingResult(req, result)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   map[string]interface{}{"type": "EXECUTION_FAILED", "message": err.Error()},
		})
		return
	}

	resp := rendered.(*HTTPResponse)
	writeJSON(w, resp.StatusCode, resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
