package game

// BoardSize は盤面の一辺のマス数です。
const BoardSize = 10

// FleetLengths は配置すべき艦の長さの固定セットです。
var FleetLengths = []int{5, 4, 3, 3, 2}

// FleetCellTotal は艦隊全体が占めるマス数の合計です。
func FleetCellTotal() int {
	total := 0
	for _, l := range FleetLengths {
		total += l
	}
	return total
}

// Point は盤面上の1マスを表します。
type Point struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// InBounds は座標が盤面内に収まっているかどうかを返します。
func (p Point) InBounds() bool {
	return p.Col >= 0 && p.Col < BoardSize && p.Row >= 0 && p.Row < BoardSize
}

// Neighborhood は中心点の周囲 (2*radius+1)^2 のマスを盤面内にクリップして返します。
func Neighborhood(center Point, radius int) []Point {
	cells := make([]Point, 0, (2*radius+1)*(2*radius+1))
	for dr := -radius; dr <= radius; dr++ {
		for dc := -radius; dc <= radius; dc++ {
			p := Point{Col: center.Col + dc, Row: center.Row + dr}
			if p.InBounds() {
				cells = append(cells, p)
			}
		}
	}
	return cells
}

// SpiralNeighborhood は中心点の周囲 radius の近傍を螺旋順(中心→右→時計回りに外側へ)
// に訪問した順序で返します。盤面外のマスは訪問順を保ったままスキップします。
func SpiralNeighborhood(center Point, radius int) []Point {
	cells := make([]Point, 0, (2*radius+1)*(2*radius+1))
	appendIf := func(p Point) {
		if p.InBounds() {
			cells = append(cells, p)
		}
	}

	appendIf(center)
	for r := 1; r <= radius; r++ {
		// 右上の角から時計回りに1周
		col, row := center.Col+r, center.Row-r
		appendIf(Point{Col: col, Row: row})
		for i := 0; i < 2*r; i++ { // 下へ
			row++
			appendIf(Point{Col: col, Row: row})
		}
		for i := 0; i < 2*r; i++ { // 左へ
			col--
			appendIf(Point{Col: col, Row: row})
		}
		for i := 0; i < 2*r; i++ { // 上へ
			row--
			appendIf(Point{Col: col, Row: row})
		}
		for i := 0; i < 2*r-1; i++ { // 右へ（始点の一つ手前まで）
			col++
			appendIf(Point{Col: col, Row: row})
		}
	}
	return cells
}

func hasDuplicates(cells []Point) bool {
	seen := make(map[Point]struct{}, len(cells))
	for _, c := range cells {
		if _, ok := seen[c]; ok {
			return true
		}
		seen[c] = struct{}{}
	}
	return false
}
