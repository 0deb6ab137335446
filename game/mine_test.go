package game

import "testing"

func TestParseMineCategory_RoundTrip(t *testing.T) {
	for _, c := range []MineCategory{AntiEnemyRestore, AntiEnemyRicochet, AntiDisasterRestore, AntiDisasterRicochet} {
		parsed, err := ParseMineCategory(c.String())
		if err != nil {
			t.Fatalf("ParseMineCategory(%q) failed: %v", c.String(), err)
		}
		if parsed != c {
			t.Fatalf("round trip %v -> %v", c, parsed)
		}
	}
	if _, err := ParseMineCategory("napalm"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

// 同一種別の機雷は1つの効果インスタンスを共有する
func TestMineEffects_SharedPerCategory(t *testing.T) {
	a := NewMine(1, Point{Col: 1, Row: 1}, "p1", AntiEnemyRestore)
	b := NewMine(2, Point{Col: 5, Row: 5}, "p2", AntiEnemyRestore)
	if a.effect != b.effect {
		t.Fatalf("mines of the same category must share one effect instance")
	}
	c := NewMine(3, Point{Col: 7, Row: 7}, "p1", AntiEnemyRicochet)
	if a.effect == c.effect {
		t.Fatalf("different categories must not share an effect")
	}
}

func TestMine_TriggerConditions(t *testing.T) {
	ships := testShips(t)
	hits := map[Point]struct{}{}

	antiEnemy := NewMine(1, Point{Col: 9, Row: 9}, "owner", AntiEnemyRestore)
	if _, fired := antiEnemy.Evaluate(Trigger{Kind: TriggerEnemyShot, By: "owner"}, ships, hits); fired {
		t.Fatalf("anti-enemy mine fired on the owner's own shot")
	}
	if _, fired := antiEnemy.Evaluate(Trigger{Kind: TriggerDisaster}, ships, hits); fired {
		t.Fatalf("anti-enemy mine fired on a disaster")
	}
	if _, fired := antiEnemy.Evaluate(Trigger{Kind: TriggerEnemyShot, By: "enemy"}, ships, hits); !fired {
		t.Fatalf("anti-enemy mine did not fire on an enemy shot")
	}

	antiDisaster := NewMine(2, Point{Col: 8, Row: 9}, "owner", AntiDisasterRicochet)
	if _, fired := antiDisaster.Evaluate(Trigger{Kind: TriggerEnemyShot, By: "enemy"}, ships, hits); fired {
		t.Fatalf("anti-disaster mine fired on an enemy shot")
	}
	if _, fired := antiDisaster.Evaluate(Trigger{Kind: TriggerDisaster}, ships, hits); !fired {
		t.Fatalf("anti-disaster mine did not fire on a disaster")
	}
}

// 発火は一度きり。二度目以降の契機では効果が再適用されない
func TestMine_FiresAtMostOnce(t *testing.T) {
	ships := testShips(t)
	hits := map[Point]struct{}{
		{Col: 0, Row: 0}: {},
		{Col: 1, Row: 0}: {},
	}

	mine := NewMine(1, Point{Col: 0, Row: 0}, "owner", AntiEnemyRestore)
	tr := Trigger{Kind: TriggerEnemyShot, By: "enemy"}

	result, fired := mine.Evaluate(tr, ships, hits)
	if !fired {
		t.Fatalf("mine did not fire")
	}
	if len(result.HealedCells) != 2 {
		t.Fatalf("healed %d cells, want 2", len(result.HealedCells))
	}
	if !mine.Exploded {
		t.Fatalf("exploded flag not set")
	}

	hits[Point{Col: 0, Row: 0}] = struct{}{}
	if _, fired := mine.Evaluate(tr, ships, hits); fired {
		t.Fatalf("exploded mine fired again")
	}
	if _, damaged := hits[Point{Col: 0, Row: 0}]; !damaged {
		t.Fatalf("exploded mine healed again")
	}
}

func TestRestoreEffect_HealsShipUnderMine(t *testing.T) {
	ships := testShips(t)
	hits := map[Point]struct{}{
		{Col: 0, Row: 0}: {},
		{Col: 1, Row: 0}: {},
		{Col: 2, Row: 0}: {},
	}

	mine := NewMine(1, Point{Col: 0, Row: 0}, "owner", AntiEnemyRestore)
	result, fired := mine.Evaluate(Trigger{Kind: TriggerEnemyShot, By: "enemy"}, ships, hits)
	if !fired {
		t.Fatalf("mine did not fire")
	}
	if len(result.HealedCells) != RestoreHealLimit {
		t.Fatalf("healed %d, want %d", len(result.HealedCells), RestoreHealLimit)
	}
	if len(hits) != 1 {
		t.Fatalf("hit set size = %d, want 1 after healing two cells", len(hits))
	}
}

// 機雷の位置に艦がなければ、損傷している艦を探して回復する
func TestRestoreEffect_FallsBackToDamagedShip(t *testing.T) {
	ships := testShips(t)
	hits := map[Point]struct{}{{Col: 0, Row: 2}: {}}

	mine := NewMine(1, Point{Col: 9, Row: 9}, "owner", AntiDisasterRestore)
	result, fired := mine.Evaluate(Trigger{Kind: TriggerDisaster}, ships, hits)
	if !fired {
		t.Fatalf("mine did not fire")
	}
	if len(result.HealedCells) != 1 {
		t.Fatalf("healed %d, want 1", len(result.HealedCells))
	}
	if len(hits) != 0 {
		t.Fatalf("damaged cell was not healed")
	}
}

func TestRicochetEffect_MeteorShapedBlast(t *testing.T) {
	ships := testShips(t)
	hits := map[Point]struct{}{}

	mine := NewMine(1, Point{Col: 0, Row: 0}, "owner", AntiDisasterRicochet)
	result, fired := mine.Evaluate(Trigger{Kind: TriggerDisaster}, ships, hits)
	if !fired {
		t.Fatalf("mine did not fire")
	}
	if len(result.BlastCells) != 4 {
		t.Fatalf("corner blast size = %d, want 4", len(result.BlastCells))
	}
	if len(hits) != 4 {
		t.Fatalf("blast cells not marked on the board")
	}
}
