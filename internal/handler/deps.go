package handler

import (
	"anonchat/internal/app/chat"
	"anonchat/internal/app/directory"
	"anonchat/internal/app/matchmaking"
	"anonchat/internal/app/storage"
	"anonchat/internal/configs"
)

// AppDeps carries everything the HTTP handlers need.
type AppDeps struct {
	Config         *configs.AppConfig
	Directory      directory.Directory
	StateMachine   *matchmaking.StateMachine
	Teardown       *matchmaking.Teardown
	Hub            *chat.Hub
	Relay          *chat.Relay
	StorageService storage.StorageService
}
