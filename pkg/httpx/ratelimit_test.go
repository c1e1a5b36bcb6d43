package httpx_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/bookmarks/pkg/httpx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// hit sends one GET through h.
func hit(h http.Handler, target, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"remote addr", nil, "192.168.1.1"},
		{"forwarded for wins", map[string]string{"X-Forwarded-For": "203.0.113.1, 192.168.1.1", "X-Real-IP": "203.0.113.9"}, "203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": " 203.0.113.2 "}, "203.0.113.2"},
		{"blank forwarded for", map[string]string{"X-Forwarded-For": " , 10.0.0.1"}, "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, httpx.IPKeyExtractor(req))
		})
	}
}

func TestFormFieldKeyExtractor(t *testing.T) {
	extract := httpx.FormFieldKeyExtractor("username")

	require.Equal(t, "alice", extract(httptest.NewRequest(http.MethodGet, "/?username=alice", nil)))
	require.Empty(t, extract(httptest.NewRequest(http.MethodGet, "/", nil)))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("username=Bob%40Example.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, "bob@example.com", extract(req))
}

func TestJSONFieldKeyExtractor(t *testing.T) {
	extract := httpx.JSONFieldKeyExtractor("username")

	t.Run("extracts and restores body", func(t *testing.T) {
		body := `{"username":" Alice@Example.com ","password":"x"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		require.Equal(t, "alice@example.com", extract(req))

		rest, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Equal(t, body, string(rest))
	})

	for name, tc := range map[string]struct{ contentType, body string }{
		"not json":         {"application/x-www-form-urlencoded", "username=alice"},
		"non string field": {"application/json", `{"username":42}`},
		"broken json":      {"application/json", `{"username":`},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			require.Empty(t, extract(req))
		})
	}
}

func TestBodyFieldKeyExtractor(t *testing.T) {
	extract := httpx.BodyFieldKeyExtractor("username")

	jsonReq := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"Alice@Example.com"}`))
	jsonReq.Header.Set("Content-Type", "application/json")
	require.Equal(t, "alice@example.com", extract(jsonReq))

	formReq := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("username=bob"))
	formReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, "bob", extract(formReq))
}

func TestUserIDKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, httpx.UserIDKeyExtractor(req))

	req = req.WithContext(httpx.WithUserID(req.Context(), "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV"))
	require.Equal(t, "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", httpx.UserIDKeyExtractor(req))
}

func TestCompositeKeyExtractor(t *testing.T) {
	extract := httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.FormFieldKeyExtractor("username"))

	req := httptest.NewRequest(http.MethodGet, "/?username=alice", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1:alice", extract(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1", extract(req), "empty parts are skipped")
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}

	t.Run("burst then reject", func(t *testing.T) {
		h := httpx.RateLimitByIP(cfg)(okHandler)
		for range 2 {
			require.Equal(t, http.StatusOK, hit(h, "/", "192.168.1.1:1").Code)
		}
		require.Equal(t, http.StatusTooManyRequests, hit(h, "/", "192.168.1.1:1").Code)
	})

	t.Run("keys are independent", func(t *testing.T) {
		h := httpx.RateLimitByIP(cfg)(okHandler)
		for range 2 {
			hit(h, "/", "192.168.1.1:1")
		}
		require.Equal(t, http.StatusTooManyRequests, hit(h, "/", "192.168.1.1:1").Code)
		require.Equal(t, http.StatusOK, hit(h, "/", "192.168.1.2:1").Code)
	})

	t.Run("rejections do not drain the bucket further", func(t *testing.T) {
		fast := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Second, Burst: 1}
		h := httpx.RateLimitByIP(fast)(okHandler)
		require.Equal(t, http.StatusOK, hit(h, "/", "192.168.1.1:1").Code)
		for range 5 {
			require.Equal(t, http.StatusTooManyRequests, hit(h, "/", "192.168.1.1:1").Code)
		}
		time.Sleep(150 * time.Millisecond)
		require.Equal(t, http.StatusOK, hit(h, "/", "192.168.1.1:1").Code)
	})

	t.Run("requests without a key pass", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
			func(*http.Request) string { return "" })(okHandler)
		for range 3 {
			require.Equal(t, http.StatusOK, hit(h, "/", "192.168.1.1:1").Code)
		}
	})

	t.Run("ip and username", func(t *testing.T) {
		h := httpx.RateLimitByIPAndFormField(cfg, "username")(okHandler)
		for range 2 {
			require.Equal(t, http.StatusOK, hit(h, "/?username=alice", "192.168.1.1:1").Code)
		}
		require.Equal(t, http.StatusTooManyRequests, hit(h, "/?username=alice", "192.168.1.1:1").Code)
		require.Equal(t, http.StatusOK, hit(h, "/?username=bob", "192.168.1.1:1").Code)
	})

	t.Run("user falls back to ip", func(t *testing.T) {
		h := httpx.RateLimitByUser(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})(okHandler)
		require.Equal(t, http.StatusOK, hit(h, "/", "192.168.1.1:1").Code)
		require.Equal(t, http.StatusTooManyRequests, hit(h, "/", "192.168.1.1:1").Code)
	})
}

func TestRateLimitHeaders(t *testing.T) {
	h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})(okHandler)

	require.Equal(t, http.StatusOK, hit(h, "/", "192.168.1.1:1").Code)
	rec := hit(h, "/", "192.168.1.1:1")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
	require.Contains(t, rec.Body.String(), `"error":"rate_limit_exceeded"`)
	require.Contains(t, rec.Body.String(), "error_description")
}

func TestRateLimitProfiles(t *testing.T) {
	tiers := []httpx.RateLimitConfig{httpx.StrictLimit, httpx.ModerateLimit, httpx.LenientLimit, httpx.PublicLimit}
	for i, cfg := range tiers {
		require.Positive(t, cfg.RequestsPerWindow)
		require.Positive(t, cfg.Window)
		require.Positive(t, cfg.Burst)
		if i > 0 {
			require.Less(t, tiers[i-1].RequestsPerWindow, cfg.RequestsPerWindow, "tiers are ordered strict to public")
		}
	}
}

func TestParseRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}

	tests := []struct {
		name string
		env  map[string]string
		want httpx.RateLimitConfig
	}{
		{"defaults", nil, def},
		{"requests", map[string]string{"REQUESTS": "50"}, httpx.RateLimitConfig{RequestsPerWindow: 50, Window: time.Minute, Burst: 10}},
		{"window", map[string]string{"WINDOW_SEC": "120"}, httpx.RateLimitConfig{RequestsPerWindow: 10, Window: 2 * time.Minute, Burst: 10}},
		{"burst", map[string]string{"BURST": "100"}, httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 100}},
		{"all", map[string]string{"REQUESTS": "200", "WINDOW_SEC": "30", "BURST": "250"}, httpx.RateLimitConfig{RequestsPerWindow: 200, Window: 30 * time.Second, Burst: 250}},
		{"invalid", map[string]string{"REQUESTS": "invalid", "WINDOW_SEC": "-10", "BURST": "not-a-number"}, def},
		{"zero", map[string]string{"REQUESTS": "0", "WINDOW_SEC": "0", "BURST": "0"}, def},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv("RATELIMIT_TEST_"+k, v)
			}
			require.Equal(t, tt.want, httpx.ParseRateLimitFromEnv("TEST", def))
		})
	}
}
