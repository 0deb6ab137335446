package domain_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"maelstrom/domain"
	"maelstrom/domain/mocks"
	"maelstrom/game"
)

// fakeRouter はRouterの呼び出しを記録するテスト用実装です。
type fakeRouter struct {
	mu          sync.Mutex
	connects    []string
	reconnects  []string
	moves       [][2]int
	placeCalls  int
	powerUps    []string
	disconnects int

	reconnectFirst bool
	onCall         func(op string)
}

func (f *fakeRouter) note(op string) {
	if f.onCall != nil {
		f.onCall(op)
	}
}

func (f *fakeRouter) Connect(_ context.Context, connID, name string) error {
	f.mu.Lock()
	f.connects = append(f.connects, name)
	f.mu.Unlock()
	f.note("connect")
	return nil
}

func (f *fakeRouter) Reconnect(_ context.Context, name, connID string) (bool, error) {
	f.mu.Lock()
	f.reconnects = append(f.reconnects, name)
	f.mu.Unlock()
	f.note("reconnect")
	return f.reconnectFirst, nil
}

func (f *fakeRouter) PlaceShips(_ context.Context, connID string, cells []game.Point) error {
	f.mu.Lock()
	f.placeCalls++
	f.mu.Unlock()
	f.note("placeShips")
	return nil
}

func (f *fakeRouter) PlaceMines(_ context.Context, connID string, positions []game.Point, categories []string) error {
	f.note("placeMines")
	return nil
}

func (f *fakeRouter) Move(_ context.Context, connID string, col, row int) error {
	f.mu.Lock()
	f.moves = append(f.moves, [2]int{col, row})
	f.mu.Unlock()
	f.note("move")
	return nil
}

func (f *fakeRouter) PowerUp(_ context.Context, connID, name string) error {
	f.mu.Lock()
	f.powerUps = append(f.powerUps, name)
	f.mu.Unlock()
	f.note("powerUp")
	return nil
}

func (f *fakeRouter) Disconnect(_ context.Context, connID string) {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
	f.note("disconnect")
}

// scriptedTransport は用意したメッセージを順に読ませ、尽きたらctxの取り消しを
// 待つ。書き込まれたフレームは返されるゲッターで取り出せる。
func scriptedTransport(t *testing.T, ctrl *gomock.Controller, messages ...string) (*mocks.MockTransport, func() []string) {
	t.Helper()
	tr := mocks.NewMockTransport(ctrl)
	feed := make(chan []byte, len(messages))
	for _, m := range messages {
		feed <- []byte(m)
	}

	tr.EXPECT().Read(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]byte, error) {
		select {
		case data := <-feed:
			return data, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}).AnyTimes()

	var mu sync.Mutex
	var written []string
	tr.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, data []byte) error {
		mu.Lock()
		written = append(written, string(data))
		mu.Unlock()
		return nil
	}).AnyTimes()
	tr.EXPECT().Close(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	return tr, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), written...)
	}
}

func TestEndpoint_RoutesCommandsAfterJoin(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := &fakeRouter{}
	tr, _ := scriptedTransport(t, ctrl,
		`{"type":"join","name":"Alice"}`,
		`{"type":"move","col":3,"row":4}`,
		`{"type":"powerUp","name":"repair"}`,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	router.onCall = func(op string) {
		if op == "powerUp" {
			cancel()
		}
	}

	ep := domain.NewEndpoint(tr, router)
	if err := ep.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}

	if len(router.connects) != 1 || router.connects[0] != "Alice" {
		t.Fatalf("connects = %v", router.connects)
	}
	if len(router.moves) != 1 || router.moves[0] != [2]int{3, 4} {
		t.Fatalf("moves = %v", router.moves)
	}
	if len(router.powerUps) != 1 || router.powerUps[0] != "repair" {
		t.Fatalf("powerUps = %v", router.powerUps)
	}
	if router.disconnects != 1 {
		t.Fatalf("disconnects = %d, want exactly 1", router.disconnects)
	}
}

// 参加前のゲーム操作は接続を切らず、エラーイベントで突き返す
func TestEndpoint_RejectsCommandsBeforeJoin(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := &fakeRouter{}
	tr, written := scriptedTransport(t, ctrl,
		`{"type":"move","col":0,"row":0}`,
		`{"type":"join","name":"Alice"}`,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	router.onCall = func(op string) {
		if op == "connect" {
			// エラーイベントの書き込みを待ってから畳む
			time.Sleep(20 * time.Millisecond)
			cancel()
		}
	}

	ep := domain.NewEndpoint(tr, router)
	_ = ep.Run(ctx)

	if len(router.moves) != 0 {
		t.Fatalf("pre-join move must not reach the router: %v", router.moves)
	}
	if len(router.connects) != 1 {
		t.Fatalf("join after the rejection must still work: %v", router.connects)
	}
	found := false
	for _, w := range written() {
		if strings.Contains(w, `"type":"error"`) && strings.Contains(w, "join or reconnect first") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no error event on the wire: %v", written())
	}
}

func TestEndpoint_ReconnectAnnouncesRestore(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := &fakeRouter{reconnectFirst: true}
	tr, written := scriptedTransport(t, ctrl, `{"type":"reconnect","name":"Alice"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// restoredイベントはReconnectの戻り後にキューへ積まれるので、
	// 畳むのは書き込みを見届けてからにする
	go func() {
		for ctx.Err() == nil {
			for _, w := range written() {
				if strings.Contains(w, `"type":"restored"`) {
					cancel()
					return
				}
			}
			time.Sleep(time.Millisecond)
		}
	}()

	ep := domain.NewEndpoint(tr, router)
	_ = ep.Run(ctx)

	if len(router.reconnects) != 1 || router.reconnects[0] != "Alice" {
		t.Fatalf("reconnects = %v", router.reconnects)
	}
	found := false
	for _, w := range written() {
		if strings.Contains(w, `"type":"restored"`) && strings.Contains(w, `"isFirstPlayer":true`) {
			found = true
		}
	}
	if !found {
		t.Fatalf("restored event missing: %v", written())
	}
}

func TestEndpoint_SendAppliesBackpressure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ep := domain.NewEndpoint(mocks.NewMockTransport(ctrl), &fakeRouter{})

	// writeLoopが動いていないのでキュー容量で頭打ちになる
	var err error
	for i := 0; i < 1024; i++ {
		if err = ep.Send(game.YourTurn{}); err != nil {
			break
		}
	}
	if !errors.Is(err, domain.ErrBackpressure) {
		t.Fatalf("error = %v, want ErrBackpressure", err)
	}
}

func TestEndpoint_AssignsUniqueIDs(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := domain.NewEndpoint(mocks.NewMockTransport(ctrl), &fakeRouter{})
	b := domain.NewEndpoint(mocks.NewMockTransport(ctrl), &fakeRouter{})
	if a.ID() == "" || a.ID() == b.ID() {
		t.Fatalf("endpoint IDs must be unique: %q vs %q", a.ID(), b.ID())
	}
}
