package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/bookmarks/internal/auth/store"
	"github.com/aussiebroadwan/bookmarks/pkg/authsdk"
	"github.com/aussiebroadwan/bookmarks/pkg/httpx"
	"github.com/aussiebroadwan/bookmarks/pkg/slogx"
)

// ReadyzHandler reports 503 until both the credential store and the
// consumed-token ledger answer a ping. Without the ledger, single use
// tokens could be replayed, so the service is not ready.
func ReadyzHandler(startTime time.Time, version string, st store.Store, ledger store.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := slogx.FromContext(r.Context())
		checks := &authsdk.HealthChecks{
			Database: "ok",
			Ledger:   "ok",
		}
		status, code := "ok", http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			log.Warn("readiness: database ping failed", "err", err)
			checks.Database = "error"
			status, code = "degraded", http.StatusServiceUnavailable
		}
		if err := ledger.Ping(r.Context()); err != nil {
			log.Warn("readiness: ledger ping failed", "err", err)
			checks.Ledger = "error"
			status, code = "degraded", http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
