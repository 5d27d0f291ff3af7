package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/viadorer/orchestrator-sub001/internal/logging"
)

// requireToken guards the control API with a shared bearer token. An empty
// token leaves the API open, which is only sensible on a loopback bind.
func (s *apiServer) requireToken(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				s.log().Debug("rejected api request",
					logging.String("path", r.URL.Path),
					logging.String(logging.FieldCorrelationID, chimw.GetReqID(r.Context())),
				)
				s.writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, value, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
