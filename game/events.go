package game

// Event はセッションが外部へ発行する通知です。表示層はこれを購読するだけで、
// ゲームルールには関与しません。
type Event interface {
	EventName() string
}

// Notifier はイベントを接続へ届ける出口です。セッションのロックを
// 保持したまま呼ばれることはありません。
type Notifier interface {
	Notify(connID string, ev Event)
}

type WaitingForOpponent struct {
	Message string `json:"message"`
}

type StartPlacement struct {
	Seconds int `json:"seconds"`
}

type PlacementAck struct {
	Count int `json:"count"`
}

type MinesPlaced struct {
	Count int `json:"count"`
}

type GameStarted struct {
	YouStart bool `json:"youStart"`
}

type YourTurn struct{}

type OpponentTurn struct{}

type MoveResult struct {
	Col       int  `json:"col"`
	Row       int  `json:"row"`
	Hit       bool `json:"hit"`
	Remaining int  `json:"remaining"`
}

type OpponentMoved struct {
	Col int  `json:"col"`
	Row int  `json:"row"`
	Hit bool `json:"hit"`
}

type DisasterOccurred struct {
	Cells    []Point `json:"affectedCells"`
	HitCells []Point `json:"hits"`
	Name     string  `json:"disasterName"`
}

type DisasterCountdown struct {
	Turns int `json:"turns"`
}

type DisasterFinished struct{}

type MineTriggered struct {
	ID       int     `json:"id"`
	Cells    []Point `json:"affectedCells"`
	Category string  `json:"category"`
}

type PowerUpActivated struct {
	Name            string `json:"name"`
	ActionPointsNow int    `json:"actionPointsNow"`
}

type Restored struct {
	IsFirstPlayer bool `json:"isFirstPlayer"`
}

type GameOver struct {
	Message string `json:"message"`
}

type GameCancelled struct {
	Reason string `json:"reason"`
}

type OpponentDisconnected struct {
	Message string `json:"message"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

func (WaitingForOpponent) EventName() string   { return "waitingForOpponent" }
func (StartPlacement) EventName() string       { return "startPlacement" }
func (PlacementAck) EventName() string         { return "placementAck" }
func (MinesPlaced) EventName() string          { return "minesPlaced" }
func (GameStarted) EventName() string          { return "gameStarted" }
func (YourTurn) EventName() string             { return "yourTurn" }
func (OpponentTurn) EventName() string         { return "opponentTurn" }
func (MoveResult) EventName() string           { return "moveResult" }
func (OpponentMoved) EventName() string        { return "opponentMoved" }
func (DisasterOccurred) EventName() string     { return "disasterOccurred" }
func (DisasterCountdown) EventName() string    { return "disasterCountdown" }
func (DisasterFinished) EventName() string     { return "disasterFinished" }
func (MineTriggered) EventName() string        { return "mineTriggered" }
func (PowerUpActivated) EventName() string     { return "powerUpActivated" }
func (Restored) EventName() string             { return "restored" }
func (GameOver) EventName() string             { return "gameOver" }
func (GameCancelled) EventName() string        { return "gameCancelled" }
func (OpponentDisconnected) EventName() string { return "opponentDisconnected" }
func (ErrorEvent) EventName() string           { return "error" }
