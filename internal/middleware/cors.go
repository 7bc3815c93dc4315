package middleware

import (
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
)

// CORSMiddleware allows credentialed requests from the listed origins only.
// Preflight requests are answered here and never reach the handlers.
func CORSMiddleware(trustedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(trustedOrigins))
	for _, o := range trustedOrigins {
		allowed[o] = true
	}

	// The validator keeps an empty list from meaning "any origin".
	return gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(trustedOrigins),
		gorillahandlers.AllowedOriginValidator(func(origin string) bool { return allowed[origin] }),
		gorillahandlers.AllowCredentials(),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type"}),
		gorillahandlers.OptionStatusCode(http.StatusNoContent),
	)
}
