package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSHandler returns the CORS handler for the browser editor. headerName is
// the API key header, which preflight requests must allow.
func CORSHandler(allowedOrigins []string, headerName string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", headerName},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	})
}
