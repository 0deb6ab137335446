package game

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrCellOutOfBounds = errors.New("game: cell out of board bounds")
	ErrDuplicateCell   = errors.New("game: duplicate cell in placement")
	ErrFleetSize       = errors.New("game: placement cell count does not match fleet size")

	ErrUnknownOrientation = errors.New("game: unknown orientation")
)

// Orientation は艦の向きを表します。
type Orientation uint8

const (
	Horizontal Orientation = iota
	Vertical
)

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return "unknown"
	}
}

// Ship は配置済みの艦1隻を表します。配置後は不変で、命中判定の照会のみ受けます。
type Ship struct {
	ID          int         `json:"id"`
	Length      int         `json:"length"`
	Anchor      Point       `json:"anchor"`
	Orientation Orientation `json:"orientation"`
	Placed      bool        `json:"placed"`
}

// Cells はアンカー・向き・長さから占有マスを導出します。
func (s Ship) Cells() []Point {
	cells := make([]Point, 0, s.Length)
	for i := 0; i < s.Length; i++ {
		switch s.Orientation {
		case Horizontal:
			cells = append(cells, Point{Col: s.Anchor.Col + i, Row: s.Anchor.Row})
		case Vertical:
			cells = append(cells, Point{Col: s.Anchor.Col, Row: s.Anchor.Row + i})
		}
	}
	return cells
}

// Occupies は艦が指定マスを占有しているかどうかを返します。
func (s Ship) Occupies(p Point) bool {
	for _, c := range s.Cells() {
		if c == p {
			return true
		}
	}
	return false
}

// GroupShips は生のマス一覧を連続した並びごとにまとめて艦を生成します。
// 盤面外・重複・艦隊マス数との不一致はエラーになります。
func GroupShips(cells []Point) ([]Ship, error) {
	for _, c := range cells {
		if !c.InBounds() {
			return nil, fmt.Errorf("%w: (%d,%d)", ErrCellOutOfBounds, c.Col, c.Row)
		}
	}
	if hasDuplicates(cells) {
		return nil, ErrDuplicateCell
	}
	if len(cells) != FleetCellTotal() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFleetSize, len(cells), FleetCellTotal())
	}

	remaining := make(map[Point]struct{}, len(cells))
	for _, c := range cells {
		remaining[c] = struct{}{}
	}

	// 走査順を安定させる (行優先)
	ordered := make([]Point, len(cells))
	copy(ordered, cells)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Row != ordered[j].Row {
			return ordered[i].Row < ordered[j].Row
		}
		return ordered[i].Col < ordered[j].Col
	})

	var ships []Ship
	nextID := 1
	for _, anchor := range ordered {
		if _, ok := remaining[anchor]; !ok {
			continue
		}
		length, orientation := 1, Horizontal
		// 右方向への連続を優先し、伸びなければ下方向を試す
		for {
			next := Point{Col: anchor.Col + length, Row: anchor.Row}
			if _, ok := remaining[next]; !ok {
				break
			}
			length++
		}
		if length == 1 {
			orientation = Vertical
			for {
				next := Point{Col: anchor.Col, Row: anchor.Row + length}
				if _, ok := remaining[next]; !ok {
					break
				}
				length++
			}
		}
		ship := Ship{
			ID:          nextID,
			Length:      length,
			Anchor:      anchor,
			Orientation: orientation,
			Placed:      true,
		}
		for _, c := range ship.Cells() {
			delete(remaining, c)
		}
		ships = append(ships, ship)
		nextID++
	}
	return ships, nil
}
