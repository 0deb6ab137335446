package domain

import (
	"context"
	"log/slog"
	"sync"

	"maelstrom/game"
)

// Hub は接続IDと稼働中のエンドポイントの対応を保持し、セッションからの
// 通知を該当接続の書き込みキューへ届けます。
type Hub struct {
	mu        sync.RWMutex
	endpoints map[string]*Endpoint
}

var _ game.Notifier = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{endpoints: make(map[string]*Endpoint)}
}

// Register はエンドポイントを配送対象に加えます。
func (h *Hub) Register(e *Endpoint) {
	h.mu.Lock()
	h.endpoints[e.ID()] = e
	h.mu.Unlock()
}

// Unregister はエンドポイントを配送対象から外します。
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	delete(h.endpoints, connID)
	h.mu.Unlock()
}

// Notify はイベントを接続へ積みます。切断済みの接続宛は黙って捨てられ、
// ゲームの進行を妨げません。
func (h *Hub) Notify(connID string, ev game.Event) {
	h.mu.RLock()
	e, ok := h.endpoints[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := e.Send(ev); err != nil {
		slog.WarnContext(context.Background(), "hub: event dropped",
			"connID", connID,
			"event", ev.EventName(),
			"err", err,
		)
	}
}
