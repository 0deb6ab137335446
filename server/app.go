package server

import (
	"context"

	"maelstrom/domain"
	"maelstrom/game"
	"maelstrom/registry"
)

// App はワイヤコマンドをレジストリとセッション操作へ接続する薄い層です。
// ゲームルールはここには置きません。
type App struct {
	registry *registry.Registry
}

var _ domain.Router = (*App)(nil)

func NewApp(reg *registry.Registry) *App {
	return &App{registry: reg}
}

func (a *App) Connect(ctx context.Context, connID, name string) error {
	_, err := a.registry.AssignConnection(ctx, connID, name)
	return err
}

func (a *App) Reconnect(ctx context.Context, name, connID string) (bool, error) {
	_, isFirst, err := a.registry.ReconnectByName(ctx, name, connID)
	return isFirst, err
}

func (a *App) PlaceShips(ctx context.Context, connID string, cells []game.Point) error {
	guard, err := a.registry.SessionFor(connID)
	if err != nil {
		return err
	}
	return guard.SubmitShips(connID, cells)
}

func (a *App) PlaceMines(ctx context.Context, connID string, positions []game.Point, categories []string) error {
	guard, err := a.registry.SessionFor(connID)
	if err != nil {
		return err
	}
	return guard.SubmitMines(connID, positions, categories)
}

func (a *App) Move(ctx context.Context, connID string, col, row int) error {
	guard, err := a.registry.SessionFor(connID)
	if err != nil {
		return err
	}
	return guard.MakeMove(connID, col, row)
}

func (a *App) PowerUp(ctx context.Context, connID, name string) error {
	guard, err := a.registry.SessionFor(connID)
	if err != nil {
		return err
	}
	return guard.ActivatePowerUp(connID, name)
}

func (a *App) Disconnect(ctx context.Context, connID string) {
	a.registry.RemoveConnection(ctx, connID)
}
