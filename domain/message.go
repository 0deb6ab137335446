package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"maelstrom/game"
)

var (
	ErrUnknownCommand = errors.New("domain: unknown command type")
	ErrBadCommand     = errors.New("domain: malformed command")
)

// クライアント→サーバーのコマンド種別
const (
	CmdJoin       = "join"
	CmdReconnect  = "reconnect"
	CmdPlaceShips = "placeShips"
	CmdPlaceMines = "placeMines"
	CmdMove       = "move"
	CmdPowerUp    = "powerUp"
)

// Command はクライアントからの1コマンドです。typeで有効なフィールドが決まります。
type Command struct {
	Type       string       `json:"type"`
	Name       string       `json:"name,omitempty"`
	Cells      []game.Point `json:"cells,omitempty"`
	Positions  []game.Point `json:"positions,omitempty"`
	Categories []string     `json:"categories,omitempty"`
	Col        int          `json:"col"`
	Row        int          `json:"row"`
}

// ParseCommand はJSONバイト列からコマンドを復元します。
func ParseCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrBadCommand, err)
	}
	switch cmd.Type {
	case CmdJoin, CmdReconnect, CmdPlaceShips, CmdPlaceMines, CmdMove, CmdPowerUp:
		return cmd, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

// Envelope はサーバー→クライアントのイベント封筒です。
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// EncodeEvent はゲームイベントをワイヤ形式へエンコードします。
func EncodeEvent(ev game.Event) ([]byte, error) {
	return json.Marshal(Envelope{Type: ev.EventName(), Data: ev})
}
