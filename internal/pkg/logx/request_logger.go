/*
Package logx provides a structured logging wrapper based on zerolog.

This file contains the HTTP request logging middleware. Client addresses are anonymized before
they reach the log: the server never records who is talking to whom.
*/
package logx

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// quietPaths are polled by infrastructure and only logged at debug level when healthy.
var quietPaths = map[string]struct{}{
	"/health": {},
}

// anonymizeIP truncates an address to its network: /24 for IPv4 and /64 for IPv6.
func anonymizeIP(ipStr string) string {
	if host, _, err := net.SplitHostPort(ipStr); err == nil {
		ipStr = host
	}

	ip := net.ParseIP(ipStr)
	switch {
	case ip == nil:
		return "unknown_ip"
	case ip.IsLoopback():
		return "127.0.0.1"
	case ip.To4() != nil:
		return ip.To4().Mask(net.CIDRMask(24, 32)).String()
	}
	return ip.Mask(net.CIDRMask(64, 128)).String()
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// RequestLogger returns an HTTP middleware that logs one line per request with the matched route
// pattern, status and latency, and injects a request-scoped logger into the context. For a
// websocket upgrade the latency is the lifetime of the connection.
func RequestLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := Logger().With().
				Str("component", "http").
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("remote_ip", anonymizeIP(r.RemoteAddr)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			r = r.WithContext(logger.WithContext(r.Context()))

			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				// Hijacked connections never call WriteHeader through the wrapper.
				status = http.StatusSwitchingProtocols
			}

			event := levelFor(&logger, r, status)
			if route := chi.RouteContext(r.Context()); route != nil && route.RoutePattern() != "" {
				event = event.Str("route", route.RoutePattern())
			}

			msg := "Request completed"
			if isWebSocketUpgrade(r) && status == http.StatusSwitchingProtocols {
				msg = "WebSocket connection closed"
			}

			event.
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Msg(msg)
		})
	}
}

func levelFor(logger *zerolog.Logger, r *http.Request, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return logger.Error()
	case status >= 400:
		return logger.Warn()
	}
	if _, quiet := quietPaths[r.URL.Path]; quiet {
		return logger.Debug()
	}
	return logger.Info()
}
