package game

import (
	"fmt"
	"sync"
	"time"
)

// SessionOps はセッションの変更系操作の共通面です。ハンドラはこの面を
// 通してのみ対戦状態を変更します。
type SessionOps interface {
	SubmitShips(connID string, cells []Point) error
	SubmitMines(connID string, positions []Point, categories []string) error
	MakeMove(connID string, col, row int) error
	ActivatePowerUp(connID, name string) error
}

var (
	_ SessionOps = (*GameSession)(nil)
	_ SessionOps = (*GuardedSession)(nil)
	_ SessionOps = (*AuditedSession)(nil)
)

// GuardedSession は委譲前に呼び出し元の身元と手番を検査するラッパーです。
// 検査に失敗した操作は一切状態を変更せずに拒否されます。
type GuardedSession struct {
	s *GameSession
}

func NewGuardedSession(s *GameSession) *GuardedSession {
	return &GuardedSession{s: s}
}

// Session は内側のセッションを返します。照会系の操作に使います。
func (gs *GuardedSession) Session() *GameSession { return gs.s }

func (gs *GuardedSession) member(connID string) error {
	if !gs.s.HasPlayer(connID) {
		return ErrNotInSession
	}
	return nil
}

func (gs *GuardedSession) SubmitShips(connID string, cells []Point) error {
	if err := gs.member(connID); err != nil {
		return err
	}
	return gs.s.SubmitShips(connID, cells)
}

func (gs *GuardedSession) SubmitMines(connID string, positions []Point, categories []string) error {
	if err := gs.member(connID); err != nil {
		return err
	}
	return gs.s.SubmitMines(connID, positions, categories)
}

// MakeMove は手番制の操作なので、身元に加えて現在の手番も検査します。
func (gs *GuardedSession) MakeMove(connID string, col, row int) error {
	if err := gs.member(connID); err != nil {
		return err
	}
	if gs.s.CurrentTurn() != connID {
		return ErrNotYourTurn
	}
	return gs.s.MakeMove(connID, col, row)
}

// ActivatePowerUp は呼び出し元自身のAP残高のみを消費させます。
// 他プレイヤーの経済に触れる経路は存在しません。
func (gs *GuardedSession) ActivatePowerUp(connID, name string) error {
	if err := gs.member(connID); err != nil {
		return err
	}
	return gs.s.ActivatePowerUp(connID, name)
}

// AuditEntry は監査ログの1レコードです。
type AuditEntry struct {
	At          time.Time
	Op          string
	Caller      string
	Args        string
	TurnBefore  string
	TurnAfter   string
	CountBefore int
	CountAfter  int
	Err         error
}

// AuditedSession は検査を行わず、全ての呼び出しを前後の状態と共に
// 追記専用ログへ記録するラッパーです。GuardedSessionとは二者択一で、
// 同じセッションに重ねて使うことはありません。
type AuditedSession struct {
	s *GameSession

	mu      sync.Mutex
	entries []AuditEntry
}

func NewAuditedSession(s *GameSession) *AuditedSession {
	return &AuditedSession{s: s}
}

// Session は内側のセッションを返します。
func (as *AuditedSession) Session() *GameSession { return as.s }

// Entries は監査ログのコピーを返します。
func (as *AuditedSession) Entries() []AuditEntry {
	as.mu.Lock()
	defer as.mu.Unlock()
	return append([]AuditEntry(nil), as.entries...)
}

func (as *AuditedSession) record(op, caller, args string, fn func() error) error {
	entry := AuditEntry{
		At:          time.Now(),
		Op:          op,
		Caller:      caller,
		Args:        args,
		TurnBefore:  as.s.CurrentTurn(),
		CountBefore: as.s.TurnCount(),
	}
	entry.Err = fn()
	entry.TurnAfter = as.s.CurrentTurn()
	entry.CountAfter = as.s.TurnCount()

	as.mu.Lock()
	as.entries = append(as.entries, entry)
	as.mu.Unlock()
	return entry.Err
}

func (as *AuditedSession) SubmitShips(connID string, cells []Point) error {
	return as.record("submitShips", connID, fmt.Sprintf("cells=%d", len(cells)), func() error {
		return as.s.SubmitShips(connID, cells)
	})
}

func (as *AuditedSession) SubmitMines(connID string, positions []Point, categories []string) error {
	return as.record("submitMines", connID, fmt.Sprintf("mines=%d", len(positions)), func() error {
		return as.s.SubmitMines(connID, positions, categories)
	})
}

func (as *AuditedSession) MakeMove(connID string, col, row int) error {
	return as.record("makeMove", connID, fmt.Sprintf("(%d,%d)", col, row), func() error {
		return as.s.MakeMove(connID, col, row)
	})
}

func (as *AuditedSession) ActivatePowerUp(connID, name string) error {
	return as.record("activatePowerUp", connID, name, func() error {
		return as.s.ActivatePowerUp(connID, name)
	})
}
