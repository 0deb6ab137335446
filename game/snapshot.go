package game

import (
	"math/rand/v2"
	"sort"
	"time"
)

// ShipSnapshot は艦1隻の保存形です。
type ShipSnapshot struct {
	ID          int    `json:"id"`
	Class       string `json:"class"`
	Length      int    `json:"length"`
	Anchor      Point  `json:"anchor"`
	Orientation string `json:"orientation"`
	Placed      bool   `json:"placed"`
}

// MineSnapshot は機雷1つの保存形です。
type MineSnapshot struct {
	ID       int    `json:"id"`
	Position Point  `json:"position"`
	Owner    string `json:"owner"`
	Category string `json:"category"`
	Exploded bool   `json:"exploded"`
}

// PlayerSnapshot はプレイヤー1人分の保存形です。接続IDは再接続をまたいで
// 安定しないため含めず、手番は「このプレイヤーの手番か」の真偽値で持ちます。
type PlayerSnapshot struct {
	Name         string         `json:"name"`
	IsTurn       bool           `json:"isTurn"`
	Ships        []ShipSnapshot `json:"ships"`
	Hits         []Point        `json:"hits"`
	Mines        []MineSnapshot `json:"mines"`
	Ready        bool           `json:"ready"`
	ActionPoints int            `json:"actionPoints"`
}

// EngineSnapshot は災害エンジンの保存形です。モディファイアは保存済みの
// ターン数から次回発動時に導出されるため、ここには含めません。
type EngineSnapshot struct {
	Type      string `json:"type"`
	Countdown int    `json:"countdown"`
	TurnCount int    `json:"turnCount"`
}

// Snapshot はセッションの完全に独立した深いコピーです。生成後にセッションが
// どう変化しても、この値は影響を受けません。
type Snapshot struct {
	SessionID string           `json:"sessionId"`
	Players   []PlayerSnapshot `json:"players"`
	Started   bool             `json:"started"`
	TurnCount int              `json:"turnCount"`
	Engine    EngineSnapshot   `json:"engine"`
	TakenAt   time.Time        `json:"takenAt"`
}

// Snapshot は現在のセッション状態の深いコピーを返します。
func (g *GameSession) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *GameSession) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: g.id,
		Started:   g.started,
		TurnCount: g.turnCount,
		Engine: EngineSnapshot{
			Type:      g.engine.NextType().String(),
			Countdown: g.engine.Countdown(),
			TurnCount: g.turnCount,
		},
		TakenAt: time.Now(),
	}
	for _, p := range g.players {
		if p == nil {
			continue
		}
		isTurn := g.currentTurn != "" && g.currentTurn == p.ConnID
		if g.currentTurn == "" && g.pendingTurnName != "" {
			isTurn = g.pendingTurnName == p.Name
		}
		ps := PlayerSnapshot{
			Name:         p.Name,
			IsTurn:       isTurn,
			Ready:        p.Ready,
			ActionPoints: p.ActionPoints,
		}
		for _, s := range p.Ships {
			ps.Ships = append(ps.Ships, ShipSnapshot{
				ID:          s.ID,
				Class:       ShipClass(s.Length),
				Length:      s.Length,
				Anchor:      s.Anchor,
				Orientation: s.Orientation.String(),
				Placed:      s.Placed,
			})
		}
		ps.Hits = make([]Point, 0, len(p.Hits))
		for c := range p.Hits {
			ps.Hits = append(ps.Hits, c)
		}
		sort.Slice(ps.Hits, func(i, j int) bool {
			if ps.Hits[i].Row != ps.Hits[j].Row {
				return ps.Hits[i].Row < ps.Hits[j].Row
			}
			return ps.Hits[i].Col < ps.Hits[j].Col
		})
		for _, m := range p.Mines {
			ps.Mines = append(ps.Mines, MineSnapshot{
				ID:       m.ID,
				Position: m.Position,
				Owner:    p.Name,
				Category: m.Category.String(),
				Exploded: m.Exploded,
			})
		}
		snap.Players = append(snap.Players, ps)
	}
	return snap
}

// Clone はスナップショットの深いコピーを返します。ストアは保管した実体を
// 決して外へ渡さず、常にこのコピーを返します。
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Players = make([]PlayerSnapshot, len(s.Players))
	for i, p := range s.Players {
		cp := p
		cp.Ships = append([]ShipSnapshot(nil), p.Ships...)
		cp.Hits = append([]Point(nil), p.Hits...)
		cp.Mines = append([]MineSnapshot(nil), p.Mines...)
		out.Players[i] = cp
	}
	return out
}

// PlayerNames はスナップショットに含まれる表示名を返します。
func (s Snapshot) PlayerNames() []string {
	names := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		names = append(names, p.Name)
	}
	return names
}

// IsTurnOf は指定プレイヤーの手番で保存されたかどうかを返します。
func (s Snapshot) IsTurnOf(name string) bool {
	for _, p := range s.Players {
		if p.Name == name {
			return p.IsTurn
		}
	}
	return false
}

// RestoreSession はスナップショットからセッションを再構築します。
// 接続IDは復元できないため、各プレイヤーは再接続されるまで未接続のままで、
// 手番は該当プレイヤーのRebind時に初めて設定されます。災害エンジンは
// 保存されたターン数で選択規則を引き直した上で、カウントダウンだけを
// 保存値で上書きします。
func RestoreSession(snap Snapshot, notifier Notifier, rng *rand.Rand, cfg Config) (*GameSession, error) {
	engineType, err := ParseDisasterType(snap.Engine.Type)
	if err != nil {
		return nil, err
	}

	g := &GameSession{
		id:        snap.SessionID,
		cfg:       cfg.withDefaults(),
		rng:       rng,
		notifier:  notifier,
		started:   snap.Started,
		turnCount: snap.TurnCount,
		engine:    NewDisasterEngineAt(rng, engineType, snap.Engine.Countdown),
	}
	for _, ps := range snap.Players {
		if ps.IsTurn {
			g.pendingTurnName = ps.Name
		}
	}

	for i, ps := range snap.Players {
		if i >= len(g.players) {
			break
		}
		p := &Player{
			Name:         ps.Name,
			Connected:    false,
			Hits:         make(map[Point]struct{}, len(ps.Hits)),
			Ready:        ps.Ready,
			ActionPoints: ps.ActionPoints,
		}
		for _, ss := range ps.Ships {
			orientation, err := parseOrientation(ss.Orientation)
			if err != nil {
				return nil, err
			}
			p.Ships = append(p.Ships, Ship{
				ID:          ss.ID,
				Length:      ss.Length,
				Anchor:      ss.Anchor,
				Orientation: orientation,
				Placed:      ss.Placed,
			})
		}
		for _, c := range ps.Hits {
			p.Hits[c] = struct{}{}
		}
		for _, ms := range ps.Mines {
			category, err := ParseMineCategory(ms.Category)
			if err != nil {
				return nil, err
			}
			mine := NewMine(ms.ID, ms.Position, "", category)
			mine.Exploded = ms.Exploded
			p.Mines = append(p.Mines, mine)
		}
		g.players[i] = p
	}
	return g, nil
}

// ShipClass は艦の長さから型名を引きます。
func ShipClass(length int) string {
	switch length {
	case 5:
		return "Carrier"
	case 4:
		return "Battleship"
	case 3:
		return "Cruiser"
	case 2:
		return "Destroyer"
	default:
		return "Unknown"
	}
}

func parseOrientation(s string) (Orientation, error) {
	switch s {
	case "horizontal":
		return Horizontal, nil
	case "vertical":
		return Vertical, nil
	default:
		return 0, ErrUnknownOrientation
	}
}
