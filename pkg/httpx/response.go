package httpx

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// WriteJSON encodes v with status code. Responses here carry tokens or
// account data, so none of them may be cached.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache marks the response as not storable.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// SeeOther redirects with 303 so that browsers follow with a GET.
func SeeOther(w http.ResponseWriter, r *http.Request, location string, query url.Values) {
	NoCache(w)
	if len(query) > 0 {
		location += "?" + query.Encode()
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
