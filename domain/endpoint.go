package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"maelstrom/game"
)

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("domain: write channel is full, apply backpressure")
	// ErrNotJoined は参加前にゲーム操作が送られた場合に返されるエラーです。
	ErrNotJoined = errors.New("domain: join or reconnect first")
)

// Router はエンドポイントからゲーム層への入口です。実装はレジストリを
// 包んだアプリケーション側が提供します。
type Router interface {
	Connect(ctx context.Context, connID, name string) error
	Reconnect(ctx context.Context, name, connID string) (isFirstPlayer bool, err error)
	PlaceShips(ctx context.Context, connID string, cells []game.Point) error
	PlaceMines(ctx context.Context, connID string, positions []game.Point, categories []string) error
	Move(ctx context.Context, connID string, col, row int) error
	PowerUp(ctx context.Context, connID, name string) error
	Disconnect(ctx context.Context, connID string)
}

// Endpoint は1接続分の読み書きループです。受信コマンドをRouterへ流し、
// セッションからの通知をwriteChごしに接続へ書き戻します。
type Endpoint struct {
	id        string
	transport Transport
	router    Router

	writeCh chan []byte
	joined  atomic.Bool
	closed  atomic.Bool
}

// NewEndpoint は接続IDを採番してエンドポイントを生成します。
func NewEndpoint(transport Transport, router Router) *Endpoint {
	return &Endpoint{
		id:        uuid.NewString(),
		transport: transport,
		router:    router,
		writeCh:   make(chan []byte, 256),
	}
}

// ID は接続IDを返します。
func (e *Endpoint) ID() string { return e.id }

// Send はイベントをエンコードして書き込みキューへ積みます。
// キューが満杯の場合はイベントを落としてエラーを返します。
func (e *Endpoint) Send(ev game.Event) error {
	data, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	select {
	case e.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// Run は読み書きループを起動し、どちらかが終わるまでブロックします。
// 終了時には接続の切断がRouterへ通知されます。
func (e *Endpoint) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return e.readLoop(ctx)
	})
	eg.Go(func() error {
		e.writeLoop(ctx)
		return nil
	})

	err := eg.Wait()
	e.close(ctx)
	return err
}

func (e *Endpoint) close(ctx context.Context) {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.router.Disconnect(ctx, e.id)
	_ = e.transport.Close(1000, "")
}

func (e *Endpoint) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		data, err := e.transport.Read(ctx)
		if err != nil {
			return err
		}
		if err := e.handleCommand(ctx, data); err != nil {
			// ルール違反は接続ごと切らず、エラーイベントとして返す
			if sendErr := e.Send(game.ErrorEvent{Message: err.Error()}); sendErr != nil {
				slog.WarnContext(ctx, "endpoint: error event dropped", "connID", e.id, "err", sendErr)
			}
		}
	}
}

func (e *Endpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-e.writeCh:
			if err := e.transport.Write(ctx, data); err != nil {
				slog.WarnContext(ctx, "endpoint: write failed", "connID", e.id, "err", err)
				return
			}
		}
	}
}

func (e *Endpoint) handleCommand(ctx context.Context, data []byte) error {
	cmd, err := ParseCommand(data)
	if err != nil {
		return err
	}

	switch cmd.Type {
	case CmdJoin:
		if err := e.router.Connect(ctx, e.id, cmd.Name); err != nil {
			return err
		}
		e.joined.Store(true)
		return nil
	case CmdReconnect:
		isFirst, err := e.router.Reconnect(ctx, cmd.Name, e.id)
		if err != nil {
			return err
		}
		e.joined.Store(true)
		return e.Send(game.Restored{IsFirstPlayer: isFirst})
	}

	if !e.joined.Load() {
		return ErrNotJoined
	}
	switch cmd.Type {
	case CmdPlaceShips:
		return e.router.PlaceShips(ctx, e.id, cmd.Cells)
	case CmdPlaceMines:
		return e.router.PlaceMines(ctx, e.id, cmd.Positions, cmd.Categories)
	case CmdMove:
		return e.router.Move(ctx, e.id, cmd.Col, cmd.Row)
	case CmdPowerUp:
		return e.router.PowerUp(ctx, e.id, cmd.Name)
	default:
		return ErrUnknownCommand
	}
}
