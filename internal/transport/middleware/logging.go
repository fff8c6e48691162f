package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/frahmantamala/guild-dashboard/internal"
)

// error bodies larger than this are not captured
const maxLoggedBody = 64 << 10

const filtered = "[FILTERED]"

// Any header, query parameter or JSON key containing one of these is masked.
var sensitiveNames = []string{
	"token",
	"authorization",
	"secret",
	"session",
	"cookie",
	"assertion",
	"signature",
	"credential",
}

// OAuth callback parameters are masked by exact name.
var sensitiveQueryParams = map[string]bool{"code": true, "state": true}

// LoggingMiddleware writes one line per request once it completes. 4xx are
// logged at WARN and 5xx at ERROR together with the filtered response body.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseWriter{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			status := rec.status()
			attrs := []any{
				"trace_id", internal.TraceIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"query", filterSensitiveQuery(r.URL.Query()),
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", rec.written,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			if level > slog.LevelInfo {
				attrs = append(attrs,
					"headers", filterSensitiveHeaders(r.Header),
					"body", filterSensitiveBody(rec.body.Bytes()),
				)
			}

			logger.Log(r.Context(), level, "http request", attrs...)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int
	body       bytes.Buffer
}

func (rw *responseWriter) status() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}
	return rw.statusCode
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status() >= http.StatusBadRequest && rw.body.Len() < maxLoggedBody {
		rw.body.Write(b)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}

// Flush keeps streaming responses working through the proxy.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func isSensitiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveNames {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func filterSensitiveQuery(values url.Values) string {
	for name := range values {
		if sensitiveQueryParams[strings.ToLower(name)] || isSensitiveName(name) {
			values.Set(name, filtered)
		}
	}
	return values.Encode()
}

func filterSensitiveHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitiveName(name) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// filterSensitiveBody masks sensitive keys of a JSON body. Non-JSON bodies
// are dropped entirely when they mention anything sensitive.
func filterSensitiveBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		if isSensitiveName(string(body)) {
			return filtered
		}
		return string(body)
	}

	out, err := json.Marshal(maskJSON(doc))
	if err != nil {
		return filtered
	}
	return string(out)
}

func maskJSON(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, item := range t {
			if isSensitiveName(k) {
				m[k] = filtered
				continue
			}
			m[k] = maskJSON(item)
		}
		return m
	case []interface{}:
		for i := range t {
			t[i] = maskJSON(t[i])
		}
		return t
	default:
		return v
	}
}
