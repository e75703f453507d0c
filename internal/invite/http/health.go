package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/service"
	"github.com/aussiebroadwan/invite/internal/invite/store"
	"github.com/aussiebroadwan/invite/pkg/httpx"
	"github.com/aussiebroadwan/invite/pkg/invitesdk"
)

// LivezHandler always answers 200 while the process is up.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, invitesdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler checks the database, the session signer and, when
// configured, redis.
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	accounts *service.AccountService,
	redis *service.RedisPublisher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &invitesdk.HealthChecks{
			Database: "ok",
			Signer:   "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if accounts == nil || accounts.Signer == nil {
			checks.Signer = "error: no session key loaded"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		// Redis only carries notifications, so losing it degrades nothing
		// that redemption depends on.
		if redis != nil {
			checks.Redis = "ok"
			if err := redis.Ping(r.Context()); err != nil {
				checks.Redis = "error: " + err.Error()
			}
		}

		httpx.WriteJSON(w, statusCode, invitesdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
