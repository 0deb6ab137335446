package game

import (
	"math/rand/v2"
	"testing"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(7, 13))
}

func TestBuildSpec_NoModifiersBeforeThreshold(t *testing.T) {
	rng := testRNG()
	for turn := 0; turn < intensityTurnThreshold; turn++ {
		spec := BuildSpec(Storm, turn, rng)
		if spec.Intensity != 1 || spec.Chained || spec.Accelerated {
			t.Fatalf("turn %d: unexpected modifiers: %+v", turn, spec)
		}
	}
}

func TestBuildSpec_IntensityScalesWithTurnCount(t *testing.T) {
	rng := testRNG()
	if spec := BuildSpec(Meteor, 30, rng); spec.Intensity != 2 {
		t.Fatalf("turn 30: intensity = %d, want 2", spec.Intensity)
	}
	if spec := BuildSpec(Meteor, 80, rng); spec.Intensity != 3 {
		t.Fatalf("turn 80: intensity = %d, want 3", spec.Intensity)
	}
}

// 連鎖と加速はStorm以外には付かない
func TestBuildSpec_ChainOnlyForStorm(t *testing.T) {
	rng := testRNG()
	for i := 0; i < 50; i++ {
		for _, base := range []DisasterType{Tsunami, Whirlpool, Meteor} {
			spec := BuildSpec(base, 60, rng)
			if spec.Chained || spec.Accelerated {
				t.Fatalf("%v: got chain/accelerated modifiers: %+v", base, spec)
			}
		}
	}
}

func TestDisasterEngine_CountdownBounds(t *testing.T) {
	rng := testRNG()
	for i := 0; i < 100; i++ {
		e := NewDisasterEngine(rng)
		if e.Countdown() < countdownMin || e.Countdown() > countdownMax {
			t.Fatalf("initial countdown %d out of [%d,%d]", e.Countdown(), countdownMin, countdownMax)
		}
	}
}

func TestDisasterEngine_TickAndFire(t *testing.T) {
	rng := testRNG()
	e := NewDisasterEngineAt(rng, Meteor, 2)

	if e.Tick() != 1 || e.Ready() {
		t.Fatalf("countdown should be 1 and not ready")
	}
	if e.Tick() != 0 || !e.Ready() {
		t.Fatalf("countdown should be 0 and ready")
	}

	_, strikes := e.Fire(5)
	if len(strikes) != 1 {
		t.Fatalf("strike count = %d, want 1 (no chain before turn 25)", len(strikes))
	}
	if e.Countdown() < countdownMin || e.Countdown() > countdownMax {
		t.Fatalf("reseeded countdown %d out of [%d,%d]", e.Countdown(), countdownMin, countdownMax)
	}
}

func TestDisasterEngine_AcceleratedReseed(t *testing.T) {
	rng := testRNG()
	// Stormで十分な回数発火させれば加速モディファイアが観測できる
	sawAccelerated := false
	for i := 0; i < 200 && !sawAccelerated; i++ {
		e := NewDisasterEngineAt(rng, Storm, 0)
		spec, _ := e.Fire(60)
		if !spec.Accelerated {
			continue
		}
		sawAccelerated = true
		if e.Countdown() < acceleratedCountdownMin || e.Countdown() > acceleratedCountdownMax {
			t.Fatalf("accelerated countdown %d out of [%d,%d]",
				e.Countdown(), acceleratedCountdownMin, acceleratedCountdownMax)
		}
	}
	if !sawAccelerated {
		t.Fatalf("accelerated modifier never selected in 200 storm fires")
	}
}

func TestDisasterEngine_ChainResolvesSecondStrike(t *testing.T) {
	rng := testRNG()
	for i := 0; i < 200; i++ {
		e := NewDisasterEngineAt(rng, Storm, 0)
		spec, strikes := e.Fire(60)
		if !spec.Chained {
			continue
		}
		if len(strikes) != 2 {
			t.Fatalf("chained fire produced %d strikes, want 2", len(strikes))
		}
		if strikes[1].Type != spec.ChainType {
			t.Fatalf("second strike type = %v, want %v", strikes[1].Type, spec.ChainType)
		}
		return
	}
	t.Fatalf("chain modifier never selected in 200 storm fires")
}

func TestStorm_PicksDistinctCells(t *testing.T) {
	e := NewDisasterEngine(testRNG())
	cells := e.storm(12)
	if len(cells) != 12 {
		t.Fatalf("storm cell count = %d, want 12", len(cells))
	}
	if hasDuplicates(cells) {
		t.Fatalf("storm picked a cell twice")
	}
}

func TestTsunami_FullColumns(t *testing.T) {
	e := NewDisasterEngine(testRNG())
	cells := e.tsunami(2)
	if len(cells) != 2*BoardSize {
		t.Fatalf("tsunami cell count = %d, want %d", len(cells), 2*BoardSize)
	}
	byCol := map[int]int{}
	for _, c := range cells {
		byCol[c.Col]++
	}
	if len(byCol) != 2 {
		t.Fatalf("tsunami column count = %d, want 2", len(byCol))
	}
	for col, n := range byCol {
		if n != BoardSize {
			t.Fatalf("column %d has %d cells, want %d", col, n, BoardSize)
		}
	}
}

// 渦は訪問順1つおきの疎なパターンになる
func TestWhirlpool_SparsePattern(t *testing.T) {
	e := NewDisasterEngine(testRNG())
	cells := e.whirlpool(1)
	if len(cells) == 0 || len(cells) > 5 {
		t.Fatalf("whirlpool cell count = %d, want 1..5", len(cells))
	}
}

func TestMeteor_ClippedBlock(t *testing.T) {
	e := NewDisasterEngine(testRNG())
	cells := e.meteor(1)
	if len(cells) < 4 || len(cells) > 9 {
		t.Fatalf("meteor cell count = %d, want 4..9", len(cells))
	}
	for _, c := range cells {
		if !c.InBounds() {
			t.Fatalf("meteor cell %+v out of bounds", c)
		}
	}
}
