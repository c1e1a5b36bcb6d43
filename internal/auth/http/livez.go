package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/bookmarks/pkg/authsdk"
	"github.com/aussiebroadwan/bookmarks/pkg/httpx"
)

// LivezHandler always answers 200 while the process serves requests.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
		})
	}
}
