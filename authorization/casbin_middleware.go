package authorization

import (
	"net/http"

	"github.com/casbin/casbin"
	"github.com/sirupsen/logrus"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/domain"
	apperrors "github.com/trak2026z/rezerwacjaNoclegowBE2/errors"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/handlers"
)

const (
	RoleAnonymous = "anonymous"
	RoleUser      = "user"
)

func NewEnforcer(modelPath, policyPath string) (*casbin.Enforcer, error) {
	return casbin.NewEnforcerSafe(modelPath, policyPath)
}

// CasbinMiddleware checks the route policy. Denied anonymous callers get 401,
// denied authenticated callers get 403.
func CasbinMiddleware(e *casbin.Enforcer, logger *logrus.Logger) func(http.Handler) http.Handler {
	e.EnableLog(false)
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			role := RoleAnonymous
			if _, ok := domain.IdentityFromContext(r.Context()); ok {
				role = RoleUser
			}

			allowed, err := e.EnforceSafe(role, r.URL.Path, r.Method)
			if err != nil {
				handlers.WriteError(w, r, logger, err)
				return
			}
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			if role == RoleAnonymous {
				handlers.WriteError(w, r, logger, authError(r.Context()))
				return
			}
			logger.Warnf("CasbinMiddleware : %s denied %s %s", role, r.Method, r.URL.Path)
			handlers.WriteError(w, r, logger, apperrors.ForbiddenError(apperrors.Forbidden))
		}

		return http.HandlerFunc(fn)
	}
}
