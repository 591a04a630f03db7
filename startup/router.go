package startup

import (
	"net/http"

	"github.com/casbin/casbin"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/authorization"
	apperrors "github.com/trak2026z/rezerwacjaNoclegowBE2/errors"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/handlers"
)

// Routes is implemented by every handler that registers endpoints.
type Routes interface {
	Init(router *mux.Router)
}

// NewRouter mounts the handlers and wraps them in the middleware chain, outer
// first: authenticate, log, recover, security headers, unknown route check,
// policy check. Paths no route knows get 404 before the policy is consulted.
func NewRouter(logger *logrus.Logger, enforcer *casbin.Enforcer, verifier authorization.TokenVerifier, routes ...Routes) http.Handler {
	router := mux.NewRouter()
	router.Use(handlers.ExtractTraceInfoMiddleware)
	router.Use(handlers.MetricsMiddleware)
	for _, r := range routes {
		r.Init(router)
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, r, logger, apperrors.NotFound(apperrors.RouteNotFound))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteMethodNotAllowed(w, r, logger)
	})

	var handler http.Handler = router
	handler = authorization.CasbinMiddleware(enforcer, logger)(handler)
	handler = unknownRoute(router)(handler)
	handler = handlers.MiddlewareContentTypeSet(handler)
	handler = handlers.RecoverMiddleware(logger)(handler)
	handler = handlers.LoggingMiddleware(logger)(handler)
	handler = authorization.Authenticate(verifier, logger)(handler)
	return handler
}

// unknownRoute serves the router's NotFoundHandler for paths no route
// matches, ahead of the policy check.
func unknownRoute(router *mux.Router) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var match mux.RouteMatch
			if !router.Match(r, &match) || match.MatchErr == mux.ErrNotFound {
				router.NotFoundHandler.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
