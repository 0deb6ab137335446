package server

import (
	"net/http"

	"maelstrom/domain"
	"maelstrom/registry"
	"maelstrom/server/handler"
)

func Route(hub *domain.Hub, router domain.Router, reg *registry.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewAcceptHandler(hub, router))
	mux.Handle("/healthz", handler.NewHealthHandler(reg))
	return mux
}
