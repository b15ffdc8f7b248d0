package logx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestAnonymizeIP(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"203.0.113.42:5555":         "203.0.113.0",
		"198.51.100.7":              "198.51.100.0",
		"127.0.0.1:8080":            "127.0.0.1",
		"[2001:db8:1:2:3:4:5:6]:80": "2001:db8:1:2::",
		"garbage":                   "unknown_ip",
	}

	for in, want := range cases {
		require.Equal(t, want, anonymizeIP(in), in)
	}
}

func TestInitGlobalLogger_RejectsUnknownLevel(t *testing.T) {
	require.Error(t, InitGlobalLogger(false, "loud"))
	require.NoError(t, InitGlobalLogger(false, "warn"))
	require.NoError(t, InitGlobalLogger(true, ""))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	saved := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	t.Cleanup(func() { log.Logger = saved })

	r := chi.NewRouter()
	r.Use(RequestLogger())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	req.RemoteAddr = "203.0.113.42:5555"
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var miss, health map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &miss))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &health))

	require.Equal(t, "warn", miss["level"])
	require.Equal(t, "/items/{id}", miss["route"])
	require.Equal(t, "203.0.113.0", miss["remote_ip"])
	require.EqualValues(t, 404, miss["status"])

	require.Equal(t, "debug", health["level"])
	require.EqualValues(t, 200, health["status"])
}
