package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Recover captura panics e retorna JSON consistente; a stack vai para o log.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					rid := RequestIDFromContext(r.Context())
					// Sem corpo da requisição no log (PII).
					log.Error("panic",
						zap.String("request_id", rid),
						zap.String("path", r.URL.Path),
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error":      "internal",
						"request_id": rid,
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
