package registry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	"maelstrom/game"
	"maelstrom/repository/memory"
)

var (
	ErrUnknownConnection = errors.New("registry: connection not assigned to a session")
	ErrNoSnapshot        = errors.New("registry: no snapshot stored for player")
)

// Registry は接続IDとセッションの対応を管理するディレクトリです。
// マッチメイキング・切断処理・名前ベースの再接続を担当します。
// 変更系の操作は1つのミューテックスの下で読み取りから書き込みまでを
// 一括で行います。マッチメイキングの頻度は対戦中の操作に比べて低いため、
// この粗い粒度で十分です。
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*game.GameSession // セッションID -> セッション
	guards   map[string]*game.GuardedSession
	byConn   map[string]*game.GameSession // 接続ID -> セッション

	snapshots *memory.SnapshotStore
	notifier  game.Notifier
	rng       *rand.Rand
	cfg       game.Config
}

// NewRegistry はレジストリを生成します。シングルトンにはせず、
// 必要とする側へ明示的に渡して使います。
func NewRegistry(notifier game.Notifier, snapshots *memory.SnapshotStore, rng *rand.Rand, cfg game.Config) *Registry {
	return &Registry{
		sessions:  make(map[string]*game.GameSession),
		guards:    make(map[string]*game.GuardedSession),
		byConn:    make(map[string]*game.GameSession),
		snapshots: snapshots,
		notifier:  notifier,
		rng:       rng,
		cfg:       cfg,
	}
}

// AssignConnection は接続をプレイヤーが1人だけの未開始セッションへ割り当てます。
// 該当がなければ新しいセッションを作って1人目として加えます。
func (r *Registry) AssignConnection(ctx context.Context, connID, name string) (*game.GuardedSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sess *game.GameSession
	for _, candidate := range r.sessions {
		if candidate.Joinable() {
			sess = candidate
			break
		}
	}
	if sess == nil {
		id := uuid.NewString()
		sess = game.NewGameSession(id, r.notifier, r.newSessionRNG(), r.cfg)
		sess.SetOnTerminated(r.evict)
		r.sessions[id] = sess
		r.guards[id] = game.NewGuardedSession(sess)
		slog.DebugContext(ctx, "registry: session created", "sessionID", id)
	}

	if err := sess.Join(connID, name); err != nil {
		return nil, err
	}
	r.byConn[connID] = sess
	slog.InfoContext(ctx, "registry: connection assigned",
		"connID", connID,
		"player", name,
		"sessionID", sess.ID(),
	)
	return r.guards[sess.ID()], nil
}

// RemoveConnection は接続をセッションから切り離します。開始済みの対戦なら
// 復帰用スナップショットを保存し、セッションが空になれば破棄します。
func (r *Registry) RemoveConnection(ctx context.Context, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeConnectionLocked(ctx, connID)
}

func (r *Registry) removeConnectionLocked(ctx context.Context, connID string) {
	sess, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)

	snap, empty := sess.HandleDisconnect(connID)
	if snap != nil {
		r.snapshots.Save(*snap)
		slog.InfoContext(ctx, "registry: snapshot saved",
			"sessionID", sess.ID(),
			"players", snap.PlayerNames(),
		)
	}
	if empty || sess.Over() {
		delete(r.sessions, sess.ID())
		delete(r.guards, sess.ID())
		slog.DebugContext(ctx, "registry: session evicted", "sessionID", sess.ID())
	}
}

// ReconnectByName は表示名でスナップショットを引き、新しい接続を対戦へ復帰
// させます。生きているセッションが残っていれば接続IDを差し替えるだけで、
// なければスナップショットからセッションを再構築します。接続がその前に
// 別のセッションへ自動割り当てされていた場合は、先にその割り当てを外します。
func (r *Registry) ReconnectByName(ctx context.Context, name, newConnID string) (*game.GuardedSession, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.snapshots.Load(name)
	if err != nil {
		return nil, false, ErrNoSnapshot
	}

	// 接続直後のマッチメイキングと名前ベースの再接続は競合しうる
	if stale, ok := r.byConn[newConnID]; ok && stale.ID() != snap.SessionID {
		slog.WarnContext(ctx, "registry: purging stale auto-assignment",
			"connID", newConnID,
			"staleSessionID", stale.ID(),
		)
		r.removeConnectionLocked(ctx, newConnID)
	}

	isTurn := snap.IsTurnOf(name)
	sess, live := r.sessions[snap.SessionID]
	if !live {
		restored, err := game.RestoreSession(snap, r.notifier, r.newSessionRNG(), r.cfg)
		if err != nil {
			return nil, false, err
		}
		restored.SetOnTerminated(r.evict)
		r.sessions[restored.ID()] = restored
		r.guards[restored.ID()] = game.NewGuardedSession(restored)
		sess = restored
		slog.InfoContext(ctx, "registry: session restored from snapshot", "sessionID", sess.ID())
	}

	isFirst, err := sess.Rebind(name, newConnID, isTurn)
	if err != nil {
		return nil, false, err
	}
	r.byConn[newConnID] = sess
	// 全員が戻るまでスナップショットは残す。消してしまうと残りのプレイヤーが
	// セッションへ戻る手掛かりを失う。
	if sess.ConnectedCount() >= len(snap.Players) {
		r.snapshots.Delete(snap.SessionID)
	}
	slog.InfoContext(ctx, "registry: player reconnected",
		"player", name,
		"connID", newConnID,
		"sessionID", sess.ID(),
	)
	return r.guards[sess.ID()], isFirst, nil
}

// SessionFor は接続が属するセッションの操作面を返します。
func (r *Registry) SessionFor(connID string) (*game.GuardedSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.byConn[connID]
	if !ok {
		return nil, ErrUnknownConnection
	}
	guard, ok := r.guards[sess.ID()]
	if !ok {
		return nil, ErrUnknownConnection
	}
	return guard, nil
}

// newSessionRNG はセッション専用の乱数源を払い出します。*rand.Randは
// 並行利用できないため、セッション間で共有しません。呼び出しはr.muの下。
func (r *Registry) newSessionRNG() *rand.Rand {
	return rand.New(rand.NewPCG(r.rng.Uint64(), r.rng.Uint64()))
}

// evict はセッションの終局時に呼ばれ、レジストリから痕跡を取り除きます。
func (r *Registry) evict(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)
	delete(r.guards, sessionID)
	for connID, s := range r.byConn {
		if s == sess {
			delete(r.byConn, connID)
		}
	}
}

// Stats はレジストリの読み取り専用の統計です。
type Stats struct {
	Sessions    int
	Waiting     int
	Active      int
	Connections int
	Snapshots   int
}

// Stats は内部コレクションと整合した時点の統計を返します。
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Stats{
		Sessions:    len(r.sessions),
		Connections: len(r.byConn),
		Snapshots:   r.snapshots.Count(),
	}
	for _, sess := range r.sessions {
		if sess.Started() {
			st.Active++
		} else {
			st.Waiting++
		}
	}
	return st
}
