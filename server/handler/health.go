package handler

import (
	"encoding/json"
	"net/http"

	"maelstrom/registry"
)

type healthResponse struct {
	Status      string `json:"status"`
	Sessions    int    `json:"sessions"`
	Waiting     int    `json:"waiting"`
	Active      int    `json:"active"`
	Connections int    `json:"connections"`
	Snapshots   int    `json:"snapshots"`
}

// NewHealthHandler は稼働状況をレジストリの統計ごと返すハンドラを生成します。
func NewHealthHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := reg.Stats()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:      "ok",
			Sessions:    st.Sessions,
			Waiting:     st.Waiting,
			Active:      st.Active,
			Connections: st.Connections,
			Snapshots:   st.Snapshots,
		})
	}
}
