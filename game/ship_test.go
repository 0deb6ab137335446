package game

import (
	"errors"
	"testing"
)

// 17マスの標準的な艦隊配置
func fleetCells() []Point {
	var cells []Point
	rows := []struct{ row, length int }{
		{0, 5}, {2, 4}, {4, 3}, {6, 3}, {8, 2},
	}
	for _, r := range rows {
		for col := 0; col < r.length; col++ {
			cells = append(cells, Point{Col: col, Row: r.row})
		}
	}
	return cells
}

func TestGroupShips_GroupsContiguousRuns(t *testing.T) {
	ships, err := GroupShips(fleetCells())
	if err != nil {
		t.Fatalf("GroupShips failed: %v", err)
	}
	if len(ships) != 5 {
		t.Fatalf("ship count = %d, want 5", len(ships))
	}
	lengths := map[int]int{}
	for _, s := range ships {
		lengths[s.Length]++
		if !s.Placed {
			t.Fatalf("ship %d not marked placed", s.ID)
		}
	}
	if lengths[5] != 1 || lengths[4] != 1 || lengths[3] != 2 || lengths[2] != 1 {
		t.Fatalf("unexpected length distribution: %v", lengths)
	}
}

func TestGroupShips_VerticalRun(t *testing.T) {
	cells := fleetCells()
	// 5マス艦を縦向きに置き換える
	vertical := []Point{{9, 0}, {9, 1}, {9, 2}, {9, 3}, {9, 4}}
	cells = append(vertical, cells[5:]...)

	ships, err := GroupShips(cells)
	if err != nil {
		t.Fatalf("GroupShips failed: %v", err)
	}
	for _, s := range ships {
		if s.Length == 5 {
			if s.Orientation != Vertical {
				t.Fatalf("orientation = %v, want vertical", s.Orientation)
			}
			return
		}
	}
	t.Fatalf("length-5 ship not found")
}

func TestGroupShips_RejectsWrongFleetSize(t *testing.T) {
	for _, n := range []int{16, 18} {
		cells := fleetCells()
		if n < len(cells) {
			cells = cells[:n]
		} else {
			cells = append(cells, Point{Col: 9, Row: 9})
		}
		if _, err := GroupShips(cells); !errors.Is(err, ErrFleetSize) {
			t.Fatalf("n=%d: err = %v, want ErrFleetSize", n, err)
		}
	}
}

func TestGroupShips_RejectsOutOfBounds(t *testing.T) {
	cells := fleetCells()
	cells[0] = Point{Col: 10, Row: 0}
	if _, err := GroupShips(cells); !errors.Is(err, ErrCellOutOfBounds) {
		t.Fatalf("err = %v, want ErrCellOutOfBounds", err)
	}
}

func TestGroupShips_RejectsDuplicates(t *testing.T) {
	cells := fleetCells()
	cells[1] = cells[0]
	if _, err := GroupShips(cells); !errors.Is(err, ErrDuplicateCell) {
		t.Fatalf("err = %v, want ErrDuplicateCell", err)
	}
}

func TestShipCells_DerivedFromAnchor(t *testing.T) {
	s := Ship{ID: 1, Length: 3, Anchor: Point{Col: 2, Row: 7}, Orientation: Horizontal}
	cells := s.Cells()
	want := []Point{{2, 7}, {3, 7}, {4, 7}}
	if len(cells) != len(want) {
		t.Fatalf("cell count = %d, want %d", len(cells), len(want))
	}
	for i, c := range cells {
		if c != want[i] {
			t.Fatalf("cells[%d] = %+v, want %+v", i, c, want[i])
		}
	}
}
