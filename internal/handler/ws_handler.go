/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which resolves the caller's identity, upgrades the
HTTP connection to WebSocket, and hands the connection to the chat Hub.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"anonchat/internal/app/chat"
	"anonchat/internal/pkg/auth/jwt"
	"anonchat/internal/pkg/logx"
	"anonchat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// The identity token travels in the token query parameter.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)

		u, err := deps.StateMachine.Lookup(r.Context(), identity(r))
		if err != nil {
			logx.Info("WebSocket connection rejected: unknown user.", "user_id", payload.ID)
			resp.RespondError(w, r, chat.ToCustomError(err))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(deps.Hub, deps.Relay, conn, payload, deps.Config.JWTSecret)

		go client.WritePump()

		if err := deps.Hub.Register(client, chat.NewInitData(u)); err != nil {
			logx.Error(err, "Failed to send initial state", "user_id", payload.ID)
		}

		logx.Info("WebSocket connection established", "user_id", payload.ID, "state", string(u.State))

		client.ReadPump()
	}
}
