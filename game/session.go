package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

var (
	ErrSessionFull     = errors.New("game: session already has two players")
	ErrNotInSession    = errors.New("game: connection does not belong to this session")
	ErrAlreadyStarted  = errors.New("game: match already started")
	ErrNotStarted      = errors.New("game: match not started")
	ErrGameOver        = errors.New("game: match is over")
	ErrNotYourTurn     = errors.New("game: not your turn")
	ErrEventInProgress = errors.New("game: disaster event in progress")
	ErrAlreadyPlaced   = errors.New("game: ships already placed")
	ErrUnknownPowerUp  = errors.New("game: unknown power-up")
	ErrInsufficientAP  = errors.New("game: insufficient action points")
	ErrPlayerNotFound  = errors.New("game: player not found in session")
)

// パワーアップ名とAPコスト
const (
	PowerUpRepair        = "repair"
	PowerUpForceDisaster = "force-disaster"
	PowerUpMiniNuke      = "mini-nuke"

	costRepair        = 3
	costForceDisaster = 5
	costMiniNuke      = 7

	// 自分のターンを1回消化するごとに付与されるAP
	actionPointsPerTurn = 2
)

// Config はセッションの時間まわりの設定です。ゼロ値はデフォルトに補正されます。
type Config struct {
	PlacementTimeout time.Duration
	// 災害演出の表示時間。影響マス1つあたりの時間で指定する。
	ClearPerCell time.Duration
}

const (
	defaultPlacementTimeout = 60 * time.Second
	defaultClearPerCell     = 150 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.PlacementTimeout <= 0 {
		c.PlacementTimeout = defaultPlacementTimeout
	}
	if c.ClearPerCell <= 0 {
		c.ClearPerCell = defaultClearPerCell
	}
	return c
}

// Player はセッション内の1プレイヤーのスロットです。
type Player struct {
	ConnID    string
	Name      string
	Connected bool

	Ships        []Ship
	Hits         map[Point]struct{} // この盤面に着弾したマス (艦上・海上の両方)
	Mines        []*Mine
	ActionPoints int
	Ready        bool
	MiniNuke     bool
}

func newPlayer(connID, name string) *Player {
	return &Player{
		ConnID:    connID,
		Name:      name,
		Connected: true,
		Hits:      make(map[Point]struct{}),
	}
}

// GameSession は1対戦の状態機械です。全フィールドはmuの下でのみ変更され、
// 外向きの通知はロック解放後に送信されます。
type GameSession struct {
	mu sync.Mutex

	id      string
	players [2]*Player

	started         bool
	over            bool
	cancelled       bool
	currentTurn     string // 接続ID
	turnCount       int
	eventInProgress bool

	// 復元直後で手番のプレイヤーがまだ再接続していない間だけ、その表示名を
	// 保持する。本人のRebindでcurrentTurnに引き継がれる。
	pendingTurnName string

	// 参照される型だが、設定経路は観測されていない。アクション入口での
	// 確認以外の意味を持たせないこと。
	cancelOnNextAction bool

	engine *DisasterEngine

	placementDeadline time.Time
	deadlineTimer     *time.Timer
	clearTimer        *time.Timer

	cfg      Config
	rng      *rand.Rand
	notifier Notifier

	onTerminated func(sessionID string)
}

// NewGameSession は空のセッションを生成します。
func NewGameSession(id string, notifier Notifier, rng *rand.Rand, cfg Config) *GameSession {
	return &GameSession{
		id:       id,
		cfg:      cfg.withDefaults(),
		rng:      rng,
		notifier: notifier,
		engine:   NewDisasterEngine(rng),
	}
}

// SetOnTerminated は終局時に呼ばれるコールバックを登録します。
// セッションのロックを解放した後に呼ばれます。
func (g *GameSession) SetOnTerminated(fn func(sessionID string)) {
	g.mu.Lock()
	g.onTerminated = fn
	g.mu.Unlock()
}

func (g *GameSession) ID() string { return g.id }

func (g *GameSession) Started() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

func (g *GameSession) Over() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.over
}

func (g *GameSession) CurrentTurn() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentTurn
}

func (g *GameSession) TurnCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turnCount
}

// Joinable はマッチメイキングの対象になれるかどうかを返します。
func (g *GameSession) Joinable() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.started && !g.over && g.playerCountLocked() == 1
}

// HasPlayer は接続IDがこのセッションのスロットに載っているかを返します。
func (g *GameSession) HasPlayer(connID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playerLocked(connID) != nil
}

// HasPlayerName は表示名がこのセッションのスロットに載っているかを返します。
func (g *GameSession) HasPlayerName(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playerByNameLocked(name) != nil
}

// ConnectedCount は現在接続中のプレイヤー数を返します。
func (g *GameSession) ConnectedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, p := range g.players {
		if p != nil && p.Connected {
			n++
		}
	}
	return n
}

type outbound struct {
	to string
	ev Event
}

func (g *GameSession) flush(out []outbound) {
	if g.notifier == nil {
		return
	}
	for _, o := range out {
		g.notifier.Notify(o.to, o.ev)
	}
}

func (g *GameSession) finish(out []outbound, terminated bool) {
	g.flush(out)
	if terminated && g.onTerminated != nil {
		g.onTerminated(g.id)
	}
}

// Join は接続をプレイヤースロットに加えます。2人目が揃った時点で
// 配置フェーズに入り、締切タイマーが動き始めます。
func (g *GameSession) Join(connID, name string) error {
	g.mu.Lock()
	if g.playerCountLocked() >= 2 {
		g.mu.Unlock()
		return ErrSessionFull
	}
	p := newPlayer(connID, name)
	var out []outbound
	if g.players[0] == nil {
		g.players[0] = p
		out = append(out, outbound{connID, WaitingForOpponent{Message: "Waiting for an opponent..."}})
	} else {
		g.players[1] = p
		g.placementDeadline = time.Now().Add(g.cfg.PlacementTimeout)
		g.deadlineTimer = time.AfterFunc(g.cfg.PlacementTimeout, g.placementTimeout)
		seconds := int(g.cfg.PlacementTimeout / time.Second)
		out = append(out,
			outbound{g.players[0].ConnID, StartPlacement{Seconds: seconds}},
			outbound{g.players[1].ConnID, StartPlacement{Seconds: seconds}},
		)
	}
	g.mu.Unlock()
	g.flush(out)
	return nil
}

// placementTimeout は配置締切タイマーから呼ばれます。
func (g *GameSession) placementTimeout() {
	g.mu.Lock()
	if g.started || g.over {
		g.mu.Unlock()
		return
	}
	var late []string
	for _, p := range g.players {
		if p != nil && !p.Ready {
			late = append(late, p.Name)
		}
	}
	reason := "Placement deadline expired"
	switch len(late) {
	case 1:
		reason = fmt.Sprintf("Player %s did not place ships in time", late[0])
	case 2:
		reason = fmt.Sprintf("Players %s and %s did not place ships in time", late[0], late[1])
	}
	out := g.cancelLocked(reason)
	g.mu.Unlock()
	g.finish(out, true)
}

// cancelLocked はセッションを打ち切り、両接続への通知を組み立てます。
func (g *GameSession) cancelLocked(reason string) []outbound {
	g.over = true
	g.cancelled = true
	if g.deadlineTimer != nil {
		g.deadlineTimer.Stop()
	}
	if g.clearTimer != nil {
		g.clearTimer.Stop()
	}
	var out []outbound
	for _, p := range g.players {
		if p != nil && p.Connected {
			out = append(out, outbound{p.ConnID, GameCancelled{Reason: reason}})
		}
	}
	return out
}

// SubmitShips は艦の配置を受け付けます。検証に失敗した場合は
// 個別の拒否ではなく対戦そのものを打ち切ります。
func (g *GameSession) SubmitShips(connID string, cells []Point) error {
	g.mu.Lock()
	if out, terminated, err := g.gateLocked(connID); err != nil {
		g.mu.Unlock()
		g.finish(out, terminated)
		return err
	}
	p := g.playerLocked(connID)
	if p == nil {
		g.mu.Unlock()
		return ErrNotInSession
	}
	if g.started {
		g.mu.Unlock()
		return ErrAlreadyStarted
	}
	if p.Ready {
		g.mu.Unlock()
		return ErrAlreadyPlaced
	}

	ships, err := GroupShips(cells)
	if err != nil {
		out := g.cancelLocked(fmt.Sprintf("Player %s submitted an invalid placement", p.Name))
		g.mu.Unlock()
		g.finish(out, true)
		return err
	}

	p.Ships = ships
	p.Ready = true
	out := []outbound{{connID, PlacementAck{Count: len(cells)}}}

	if g.bothReadyLocked() {
		g.started = true
		g.currentTurn = g.players[0].ConnID
		if g.deadlineTimer != nil {
			g.deadlineTimer.Stop()
		}
		out = append(out,
			outbound{g.players[0].ConnID, GameStarted{YouStart: true}},
			outbound{g.players[1].ConnID, GameStarted{YouStart: false}},
			outbound{g.players[0].ConnID, YourTurn{}},
			outbound{g.players[1].ConnID, OpponentTurn{}},
		)
	}
	g.mu.Unlock()
	g.flush(out)
	return nil
}

// SubmitMines は機雷の設置を受け付けます。配置フェーズ中のみ有効で、
// 検証失敗は艦配置と同じく対戦を打ち切ります。
func (g *GameSession) SubmitMines(connID string, positions []Point, categories []string) error {
	g.mu.Lock()
	if out, terminated, err := g.gateLocked(connID); err != nil {
		g.mu.Unlock()
		g.finish(out, terminated)
		return err
	}
	p := g.playerLocked(connID)
	if p == nil {
		g.mu.Unlock()
		return ErrNotInSession
	}
	if g.started {
		g.mu.Unlock()
		return ErrAlreadyStarted
	}

	if err := validateMines(p, positions, categories); err != nil {
		out := g.cancelLocked(fmt.Sprintf("Player %s submitted an invalid mine layout", p.Name))
		g.mu.Unlock()
		g.finish(out, true)
		return err
	}

	for i, pos := range positions {
		category, _ := ParseMineCategory(categories[i])
		p.Mines = append(p.Mines, NewMine(len(p.Mines)+1, pos, connID, category))
	}
	out := []outbound{{connID, MinesPlaced{Count: len(positions)}}}
	g.mu.Unlock()
	g.flush(out)
	return nil
}

func validateMines(p *Player, positions []Point, categories []string) error {
	if len(positions) != len(categories) {
		return ErrUnknownMineCategory
	}
	if len(p.Mines)+len(positions) > MaxMinesPerPlayer {
		return ErrTooManyMines
	}
	occupied := make(map[Point]struct{}, len(p.Mines)+len(positions))
	for _, m := range p.Mines {
		occupied[m.Position] = struct{}{}
	}
	for i, pos := range positions {
		if !pos.InBounds() {
			return fmt.Errorf("%w: (%d,%d)", ErrCellOutOfBounds, pos.Col, pos.Row)
		}
		if _, ok := occupied[pos]; ok {
			return ErrMineCellOccupied
		}
		occupied[pos] = struct{}{}
		if _, err := ParseMineCategory(categories[i]); err != nil {
			return err
		}
	}
	return nil
}

// MakeMove は1発の射撃を解決します。命中したプレイヤーのターンは
// 継続し、外した場合のみ手番が相手へ移ります。
func (g *GameSession) MakeMove(connID string, col, row int) error {
	g.mu.Lock()
	if out, terminated, err := g.gateLocked(connID); err != nil {
		g.mu.Unlock()
		g.finish(out, terminated)
		return err
	}
	if !g.started {
		g.mu.Unlock()
		return ErrNotStarted
	}
	if g.over {
		g.mu.Unlock()
		return ErrGameOver
	}
	if g.eventInProgress {
		g.mu.Unlock()
		return ErrEventInProgress
	}
	if g.currentTurn != connID {
		g.mu.Unlock()
		return ErrNotYourTurn
	}

	attacker := g.playerLocked(connID)
	defender := g.opponentLocked(connID)
	if attacker == nil || defender == nil {
		g.mu.Unlock()
		return ErrNotInSession
	}

	target := Point{Col: col, Row: row}
	result, err := ResolveShot(defender.Ships, defender.Hits, target)
	if err != nil {
		g.mu.Unlock()
		return err
	}

	defender.Hits[target] = struct{}{}
	if attacker.MiniNuke {
		attacker.MiniNuke = false
		for _, c := range MeteorAt(target) {
			defender.Hits[c] = struct{}{}
		}
		result.RemainingCells = remainingCells(defender)
		result.FleetDestroyed = result.RemainingCells == 0
	}

	out := []outbound{
		{attacker.ConnID, MoveResult{Col: col, Row: row, Hit: result.Hit, Remaining: result.RemainingCells}},
		{defender.ConnID, OpponentMoved{Col: col, Row: row, Hit: result.Hit}},
	}

	// 着弾した盤面の持ち主の機雷を評価する
	out = append(out, g.evaluateMinesLocked(defender, Trigger{Kind: TriggerEnemyShot, By: connID})...)

	// 機雷の回復を織り込んだ上で全滅を最終判定する
	if remainingCells(defender) == 0 {
		out = append(out, g.gameOverLocked(attacker, defender)...)
		g.mu.Unlock()
		g.finish(out, true)
		return nil
	}

	attacker.ActionPoints += actionPointsPerTurn
	g.turnCount++
	if !result.Hit {
		g.currentTurn = defender.ConnID
		out = append(out,
			outbound{defender.ConnID, YourTurn{}},
			outbound{attacker.ConnID, OpponentTurn{}},
		)
	}

	out = append(out, g.tickDisasterLocked()...)
	terminated := g.over
	g.mu.Unlock()
	g.finish(out, terminated)
	return nil
}

// tickDisasterLocked はカウントダウンを進め、尽きていれば災害を発動します。
func (g *GameSession) tickDisasterLocked() []outbound {
	if g.over {
		return nil
	}
	if g.engine.Tick() > 0 {
		var out []outbound
		for _, p := range g.players {
			if p != nil && p.Connected {
				out = append(out, outbound{p.ConnID, DisasterCountdown{Turns: g.engine.Countdown()}})
			}
		}
		return out
	}
	return g.fireDisasterLocked()
}

// fireDisasterLocked は災害を発動して盤面へ適用します。
// 連鎖した2件目の災害も同じ手順で完全に解決されます。
func (g *GameSession) fireDisasterLocked() []outbound {
	_, strikes := g.engine.Fire(g.turnCount)

	var out []outbound
	totalCells := 0
	for _, strike := range strikes {
		totalCells += len(strike.Cells)
		for _, p := range g.players {
			if p == nil {
				continue
			}
			var overlap []Point
			for _, c := range strike.Cells {
				if _, already := p.Hits[c]; already {
					continue
				}
				if _, ok := shipAt(p.Ships, c); ok {
					overlap = append(overlap, c)
					p.Hits[c] = struct{}{}
				}
			}
			if p.Connected {
				out = append(out, outbound{p.ConnID, DisasterOccurred{
					Cells:    strike.Cells,
					HitCells: overlap,
					Name:     strike.Type.String(),
				}})
			}
		}
	}

	for _, p := range g.players {
		if p != nil {
			out = append(out, g.evaluateMinesLocked(p, Trigger{Kind: TriggerDisaster})...)
		}
	}

	if loser := g.destroyedPlayerLocked(); loser != nil {
		winner := g.opponentLocked(loser.ConnID)
		out = append(out, g.gameOverLocked(winner, loser)...)
		return out
	}

	g.eventInProgress = true
	clearAfter := time.Duration(totalCells) * g.cfg.ClearPerCell
	g.clearTimer = time.AfterFunc(clearAfter, g.clearEvent)
	return out
}

// clearEvent は災害演出タイマーから呼ばれ、行動の受付を再開します。
func (g *GameSession) clearEvent() {
	g.mu.Lock()
	if g.over || !g.eventInProgress {
		g.mu.Unlock()
		return
	}
	g.eventInProgress = false
	var out []outbound
	for _, p := range g.players {
		if p != nil && p.Connected {
			out = append(out, outbound{p.ConnID, DisasterFinished{}})
		}
	}
	g.mu.Unlock()
	g.flush(out)
}

// evaluateMinesLocked は対象プレイヤーの全機雷を契機に対して評価します。
func (g *GameSession) evaluateMinesLocked(p *Player, tr Trigger) []outbound {
	var out []outbound
	for _, m := range p.Mines {
		effect, fired := m.Evaluate(tr, p.Ships, p.Hits)
		if !fired {
			continue
		}
		cells := append(append([]Point{}, effect.HealedCells...), effect.BlastCells...)
		ev := MineTriggered{ID: m.ID, Cells: cells, Category: m.Category.String()}
		for _, other := range g.players {
			if other != nil && other.Connected {
				out = append(out, outbound{other.ConnID, ev})
			}
		}
	}
	return out
}

func (g *GameSession) gameOverLocked(winner, loser *Player) []outbound {
	g.over = true
	if g.deadlineTimer != nil {
		g.deadlineTimer.Stop()
	}
	if g.clearTimer != nil {
		g.clearTimer.Stop()
	}
	var out []outbound
	if winner != nil && winner.Connected {
		out = append(out, outbound{winner.ConnID, GameOver{Message: "You won! The enemy fleet is destroyed."}})
	}
	if loser != nil && loser.Connected {
		out = append(out, outbound{loser.ConnID, GameOver{Message: "You lost. Your fleet is destroyed."}})
	}
	return out
}

// ActivatePowerUp はAP残高を確認してパワーアップを発動します。
// コストの控除と効果の適用は同一ロック区間で行われます。
func (g *GameSession) ActivatePowerUp(connID, name string) error {
	g.mu.Lock()
	if out, terminated, err := g.gateLocked(connID); err != nil {
		g.mu.Unlock()
		g.finish(out, terminated)
		return err
	}
	if !g.started {
		g.mu.Unlock()
		return ErrNotStarted
	}
	if g.over {
		g.mu.Unlock()
		return ErrGameOver
	}
	p := g.playerLocked(connID)
	if p == nil {
		g.mu.Unlock()
		return ErrNotInSession
	}

	var cost int
	switch name {
	case PowerUpRepair:
		cost = costRepair
	case PowerUpForceDisaster:
		cost = costForceDisaster
	case PowerUpMiniNuke:
		cost = costMiniNuke
	default:
		g.mu.Unlock()
		return ErrUnknownPowerUp
	}
	if p.ActionPoints < cost {
		g.mu.Unlock()
		return ErrInsufficientAP
	}
	p.ActionPoints -= cost

	var out []outbound
	switch name {
	case PowerUpRepair:
		if damaged := DamagedCells(p.Ships, p.Hits); len(damaged) > 0 {
			delete(p.Hits, damaged[0])
		}
	case PowerUpForceDisaster:
		out = g.fireDisasterLocked()
	case PowerUpMiniNuke:
		p.MiniNuke = true
	}
	out = append([]outbound{{connID, PowerUpActivated{Name: name, ActionPointsNow: p.ActionPoints}}}, out...)
	terminated := g.over
	g.mu.Unlock()
	g.finish(out, terminated)
	return nil
}

// HandleDisconnect は接続切断を処理します。開始済みの対戦なら復帰用の
// スナップショットを返し、残った相手に切断を通知します。
func (g *GameSession) HandleDisconnect(connID string) (snap *Snapshot, empty bool) {
	g.mu.Lock()
	p := g.playerLocked(connID)
	if p == nil {
		empty = g.playerCountLocked() == 0
		g.mu.Unlock()
		return nil, empty
	}
	p.Connected = false

	var out []outbound
	if g.started && !g.over {
		s := g.snapshotLocked()
		snap = &s
		if other := g.opponentLocked(connID); other != nil && other.Connected {
			out = append(out, outbound{other.ConnID, OpponentDisconnected{
				Message: fmt.Sprintf("%s disconnected. Waiting for reconnection...", p.Name),
			}})
		}
	} else {
		// 未開始なら席ごと空ける
		for i, slot := range g.players {
			if slot == p {
				g.players[i] = nil
			}
		}
		if g.players[0] == nil && g.players[1] != nil {
			g.players[0], g.players[1] = g.players[1], nil
		}
		if g.deadlineTimer != nil {
			g.deadlineTimer.Stop()
		}
		if other := g.players[0]; other != nil && other.Connected {
			out = append(out, outbound{other.ConnID, WaitingForOpponent{Message: "Opponent left. Waiting for a new opponent..."}})
		}
	}

	empty = true
	for _, slot := range g.players {
		if slot != nil && slot.Connected {
			empty = false
		}
	}
	g.mu.Unlock()
	g.flush(out)
	return snap, empty
}

// Rebind は再接続時に古い接続IDを新しいものへ差し替えます。
// isTurn には保存済みの「このプレイヤーの手番か」フラグを渡します。
// 生きているセッションでは切断後に手番が動いていることがあるため、
// 保存済みフラグではなく現在のcurrentTurnを信じて差し替えます。
func (g *GameSession) Rebind(name, newConnID string, isTurn bool) (isFirstPlayer bool, err error) {
	g.mu.Lock()
	p := g.playerByNameLocked(name)
	if p == nil {
		g.mu.Unlock()
		return false, ErrPlayerNotFound
	}
	oldConnID := p.ConnID
	p.ConnID = newConnID
	p.Connected = true
	if oldConnID != "" && g.currentTurn == oldConnID {
		g.currentTurn = newConnID
	} else if g.currentTurn == "" && isTurn {
		// スナップショット再構築直後だけは保存済みフラグで手番を埋める
		g.currentTurn = newConnID
		g.pendingTurnName = ""
	}
	for _, m := range p.Mines {
		m.Owner = newConnID
	}
	isFirstPlayer = g.players[0] == p
	g.mu.Unlock()
	return isFirstPlayer, nil
}

// gateLocked は全ての変更系操作の入口で呼ばれます。cancelOnNextActionが
// 立っていた場合のみ対戦を打ち切ります。
func (g *GameSession) gateLocked(connID string) ([]outbound, bool, error) {
	_ = connID
	if g.cancelOnNextAction {
		out := g.cancelLocked("Session was flagged for cancellation")
		return out, true, ErrGameOver
	}
	return nil, false, nil
}

func (g *GameSession) playerLocked(connID string) *Player {
	for _, p := range g.players {
		if p != nil && p.ConnID == connID {
			return p
		}
	}
	return nil
}

func (g *GameSession) playerByNameLocked(name string) *Player {
	for _, p := range g.players {
		if p != nil && p.Name == name {
			return p
		}
	}
	return nil
}

func (g *GameSession) opponentLocked(connID string) *Player {
	for _, p := range g.players {
		if p != nil && p.ConnID != connID {
			return p
		}
	}
	return nil
}

func (g *GameSession) playerCountLocked() int {
	n := 0
	for _, p := range g.players {
		if p != nil {
			n++
		}
	}
	return n
}

func (g *GameSession) bothReadyLocked() bool {
	return g.players[0] != nil && g.players[1] != nil &&
		g.players[0].Ready && g.players[1].Ready
}

func (g *GameSession) destroyedPlayerLocked() *Player {
	for _, p := range g.players {
		if p != nil && len(p.Ships) > 0 && remainingCells(p) == 0 {
			return p
		}
	}
	return nil
}

func remainingCells(p *Player) int {
	remaining := 0
	for _, s := range p.Ships {
		for _, c := range s.Cells() {
			if _, hit := p.Hits[c]; !hit {
				remaining++
			}
		}
	}
	return remaining
}
