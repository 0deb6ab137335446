package game

import (
	"errors"
	"testing"
)

func testShips(t *testing.T) []Ship {
	t.Helper()
	ships, err := GroupShips(fleetCells())
	if err != nil {
		t.Fatalf("GroupShips failed: %v", err)
	}
	return ships
}

func TestResolveShot_Hit(t *testing.T) {
	ships := testShips(t)
	hits := map[Point]struct{}{}

	result, err := ResolveShot(ships, hits, Point{Col: 0, Row: 0})
	if err != nil {
		t.Fatalf("ResolveShot failed: %v", err)
	}
	if !result.Hit {
		t.Fatalf("expected hit on occupied cell")
	}
	if result.ShipDestroyed {
		t.Fatalf("single hit must not destroy a length-5 ship")
	}
	if result.RemainingCells != FleetCellTotal()-1 {
		t.Fatalf("remaining = %d, want %d", result.RemainingCells, FleetCellTotal()-1)
	}
}

func TestResolveShot_Miss(t *testing.T) {
	ships := testShips(t)
	result, err := ResolveShot(ships, map[Point]struct{}{}, Point{Col: 9, Row: 9})
	if err != nil {
		t.Fatalf("ResolveShot failed: %v", err)
	}
	if result.Hit {
		t.Fatalf("expected miss on empty cell")
	}
	if result.RemainingCells != FleetCellTotal() {
		t.Fatalf("remaining = %d, want %d", result.RemainingCells, FleetCellTotal())
	}
}

// 長さ2の艦の最後のマスを撃つと撃沈になる
func TestResolveShot_DestroysShip(t *testing.T) {
	ships := testShips(t)
	hits := map[Point]struct{}{{Col: 0, Row: 8}: {}}

	result, err := ResolveShot(ships, hits, Point{Col: 1, Row: 8})
	if err != nil {
		t.Fatalf("ResolveShot failed: %v", err)
	}
	if !result.Hit || !result.ShipDestroyed {
		t.Fatalf("hit=%v destroyed=%v, want both true", result.Hit, result.ShipDestroyed)
	}
	if result.FleetDestroyed {
		t.Fatalf("fleet must not be destroyed yet")
	}
}

func TestResolveShot_FleetDestroyed(t *testing.T) {
	ships := testShips(t)
	hits := map[Point]struct{}{}
	for _, s := range ships {
		for _, c := range s.Cells() {
			hits[c] = struct{}{}
		}
	}
	// 最後の1マスだけを未命中に戻す
	last := Point{Col: 1, Row: 8}
	delete(hits, last)

	result, err := ResolveShot(ships, hits, last)
	if err != nil {
		t.Fatalf("ResolveShot failed: %v", err)
	}
	if !result.FleetDestroyed || result.RemainingCells != 0 {
		t.Fatalf("fleetDestroyed=%v remaining=%d, want true/0", result.FleetDestroyed, result.RemainingCells)
	}
}

func TestResolveShot_OutOfBounds(t *testing.T) {
	ships := testShips(t)
	if _, err := ResolveShot(ships, map[Point]struct{}{}, Point{Col: -1, Row: 3}); !errors.Is(err, ErrShotOutOfBounds) {
		t.Fatalf("err = %v, want ErrShotOutOfBounds", err)
	}
}

func TestResolveShot_DoesNotMutateHits(t *testing.T) {
	ships := testShips(t)
	hits := map[Point]struct{}{}
	if _, err := ResolveShot(ships, hits, Point{Col: 0, Row: 0}); err != nil {
		t.Fatalf("ResolveShot failed: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("resolver mutated the hit set")
	}
}
