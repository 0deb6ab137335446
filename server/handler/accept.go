package handler

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"maelstrom/domain"
	adapterwebsocket "maelstrom/server/adapter/websocket"
)

type AcceptHandler struct {
	hub    *domain.Hub
	router domain.Router
}

func NewAcceptHandler(hub *domain.Hub, router domain.Router) *AcceptHandler {
	return &AcceptHandler{hub: hub, router: router}
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // 開発用: Origin チェックをスキップ
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}

	transport := adapterwebsocket.NewTransportFrom(conn)
	endpoint := domain.NewEndpoint(transport, h.router)
	h.hub.Register(endpoint)
	defer h.hub.Unregister(endpoint.ID())

	slog.DebugContext(ctx, "accepted new connection", "connID", endpoint.ID())
	if err := endpoint.Run(ctx); err != nil {
		slog.DebugContext(ctx, "endpoint closed", "connID", endpoint.ID(), "err", err)
	}
}
