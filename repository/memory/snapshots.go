package memory

import (
	"errors"
	"sync"
	"time"

	"maelstrom/game"
)

var ErrSnapshotNotFound = errors.New("memory: snapshot not found")

// SnapshotStore は切断された対戦のスナップショットを保持するインメモリストアです。
// セッションID単位で1件を保管し、再接続のために各プレイヤーの表示名でも
// 索引します。保管した実体は外へ出さず、出入りは常に深いコピーです。
type SnapshotStore struct {
	mu        sync.Mutex
	bySession map[string]game.Snapshot
	byName    map[string]string // 表示名 -> セッションID
	clk       func() time.Time
}

// NewSnapshotStore は空のストアを生成します。
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		bySession: make(map[string]game.Snapshot),
		byName:    make(map[string]string),
		clk:       time.Now,
	}
}

// WithClock はテスト用に時間ソースを差し替える。
func (s *SnapshotStore) WithClock(clock func() time.Time) *SnapshotStore {
	if clock != nil {
		s.clk = clock
	}
	return s
}

// Save はスナップショットを深いコピーで保管し、各プレイヤー名で索引します。
// 同じセッションの既存分は上書きされます。
func (s *SnapshotStore) Save(snap game.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := snap.Clone()
	stored.TakenAt = s.clk()
	s.bySession[stored.SessionID] = stored
	for _, name := range stored.PlayerNames() {
		s.byName[name] = stored.SessionID
	}
}

// Load は表示名からスナップショットを引きます。返り値は防御的コピーで、
// 呼び出し側が書き換えても保管分は変化しません。
func (s *SnapshotStore) Load(name string) (game.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessionID, ok := s.byName[name]
	if !ok {
		return game.Snapshot{}, ErrSnapshotNotFound
	}
	snap, ok := s.bySession[sessionID]
	if !ok {
		return game.Snapshot{}, ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

// Delete はセッションのスナップショットと名前索引を取り除きます。
func (s *SnapshotStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.bySession[sessionID]
	if !ok {
		return
	}
	delete(s.bySession, sessionID)
	for _, name := range snap.PlayerNames() {
		delete(s.byName, name)
	}
}

// Count は保管中のスナップショット数を返します。
func (s *SnapshotStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bySession)
}

// SweepOlderThan は保管からmaxAge以上経過したスナップショットを破棄し、
// 破棄した件数を返します。
func (s *SnapshotStore) SweepOlderThan(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clk()
	removed := 0
	for id, snap := range s.bySession {
		if now.Sub(snap.TakenAt) < maxAge {
			continue
		}
		delete(s.bySession, id)
		for _, name := range snap.PlayerNames() {
			delete(s.byName, name)
		}
		removed++
	}
	return removed
}
