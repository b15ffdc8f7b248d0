/*
Package handler provides the HTTP handlers and routing setup for the anonchat server.

This file defines the main Router, applying the middleware chain (CORS, request id, logging,
recovery, identity extraction) before delegating to the API and WebSocket handlers.
*/
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"anonchat/internal/pkg/auth/jwt"
	"anonchat/internal/pkg/errs"
	"anonchat/internal/pkg/logx"
	"anonchat/internal/pkg/resp"
)

const healthTimeout = 2 * time.Second

// Router sets up the main HTTP routing table (chi.Router) for the application.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := deps.Directory.Ping(ctx); err != nil {
			logx.Error(err, "Health check failed: directory unreachable")
			resp.RespondError(w, r, errs.NewError(errs.ErrDirectoryUnavailable))
			return
		}

		data := map[string]string{
			"status":  "ok",
			"service": "anonchat",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Post("/users/register", HandleRegister(deps))

		api.Group(func(authed chi.Router) {
			authed.Use(jwt.RequireIdentity)

			authed.Route("/users/me", func(me chi.Router) {
				me.Get("/", HandleGetMe(deps))
				me.Post("/gender", HandleSetGender(deps))
			})

			authed.Route("/pairing", func(p chi.Router) {
				p.Post("/search", HandleSearch(deps))
				p.Post("/cancel", HandleCancel(deps))
				p.Post("/end", HandleEndSession(deps))
				p.Get("/status", HandleStatus(deps))
			})

			authed.Route("/file", func(f chi.Router) {
				f.Post("/presign-upload", HandlePresignUploadURL(deps))
				f.Get("/presign-download", HandlePresignDownloadURL(deps))
				f.Post("/upload", HandleUpload(deps))
			})
		})
	})

	r.With(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret), jwt.RequireIdentity).
		Get("/ws", HandleWebSocket(deps, wsUpgrader))

	return r
}
