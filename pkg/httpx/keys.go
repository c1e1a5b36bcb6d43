package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
)

// KeyExtractor picks the bucket a request is counted against. An empty key
// means the request cannot be attributed and is let through.
type KeyExtractor func(*http.Request) string

// maxKeyBody bounds how much of a JSON body is buffered to find a key.
const maxKeyBody = 64 << 10

// IPKeyExtractor returns the client address. The first X-Forwarded-For hop
// wins, then X-Real-IP, then the connection's remote address.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserIDKeyExtractor keys on the principal attached by an authorizer, so it
// must run after authz.Guard in the chain.
func UserIDKeyExtractor(r *http.Request) string {
	return UserIDFrom(r.Context())
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep,
// e.g. "192.168.1.1:alice@example.com".
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// FormFieldKeyExtractor reads fieldName from the query or a form body.
func FormFieldKeyExtractor(fieldName string) KeyExtractor {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err != nil {
			return ""
		}
		return normalizeKey(r.FormValue(fieldName))
	}
}

// JSONFieldKeyExtractor reads a top-level string field from a JSON body.
// The body is put back so the handler can decode it again.
func JSONFieldKeyExtractor(fieldName string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil || !isJSON(r) {
			return ""
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxKeyBody))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil {
			return ""
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return ""
		}
		var v string
		if err := json.Unmarshal(fields[fieldName], &v); err != nil {
			return ""
		}
		return normalizeKey(v)
	}
}

// BodyFieldKeyExtractor reads fieldName from a JSON body, or from the form
// when the request is not JSON.
func BodyFieldKeyExtractor(fieldName string) KeyExtractor {
	form, js := FormFieldKeyExtractor(fieldName), JSONFieldKeyExtractor(fieldName)
	return func(r *http.Request) string {
		if isJSON(r) {
			return js(r)
		}
		return form(r)
	}
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// normalizeKey folds usernames so "Ada@Example.com " and "ada@example.com"
// share a bucket.
func normalizeKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
