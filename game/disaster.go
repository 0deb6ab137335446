package game

import (
	"errors"
	"math/rand/v2"
)

var ErrUnknownDisasterType = errors.New("game: unknown disaster type")

// DisasterType は災害の基本形を表します。
type DisasterType uint8

const (
	Storm DisasterType = iota
	Tsunami
	Whirlpool
	Meteor
)

func (t DisasterType) String() string {
	switch t {
	case Storm:
		return "Storm"
	case Tsunami:
		return "Tsunami"
	case Whirlpool:
		return "Whirlpool"
	case Meteor:
		return "Meteor Strike"
	default:
		return "Unknown"
	}
}

// ParseDisasterType は文字列表現から災害種別を復元します。
func ParseDisasterType(s string) (DisasterType, error) {
	switch s {
	case "Storm":
		return Storm, nil
	case "Tsunami":
		return Tsunami, nil
	case "Whirlpool":
		return Whirlpool, nil
	case "Meteor Strike":
		return Meteor, nil
	default:
		return 0, ErrUnknownDisasterType
	}
}

// 発動までのターン数の乱数範囲
const (
	countdownMin = 4
	countdownMax = 7
	// 加速モディファイア適用後の範囲
	acceleratedCountdownMin = 2
	acceleratedCountdownMax = 4
)

// 難易度スケーリングの閾値 (累計ターン数)
const (
	intensityTurnThreshold  = 25
	intensity3TurnThreshold = 50
)

// DisasterSpec は1回の災害を完全に決定する値です。基本形と適用済み
// モディファイアを平坦に持ち、入れ子のラッパーは使いません。
type DisasterSpec struct {
	Type        DisasterType
	Intensity   int // 1〜3
	Chained     bool
	ChainType   DisasterType
	Accelerated bool
}

// DisasterStrike は発動した災害1件の盤面への影響です。
type DisasterStrike struct {
	Type  DisasterType
	Cells []Point
}

// BuildSpec は累計ターン数と乱数から次の災害の仕様を選択します。
// ターン25未満はモディファイアなし、25以降は強度2、50以降は強度3。
// 基本形がStormの場合のみ、連鎖と加速をそれぞれ1/2の確率で付与します。
func BuildSpec(base DisasterType, turnCount int, rng *rand.Rand) DisasterSpec {
	spec := DisasterSpec{Type: base, Intensity: 1}
	if turnCount < intensityTurnThreshold {
		return spec
	}
	if turnCount < intensity3TurnThreshold {
		spec.Intensity = 2
	} else {
		spec.Intensity = 3
	}
	if base == Storm {
		if rng.IntN(2) == 0 {
			spec.Chained = true
			spec.ChainType = randomType(rng)
		}
		if rng.IntN(2) == 0 {
			spec.Accelerated = true
		}
	}
	return spec
}

// DisasterEngine は次に発動する災害の種別とカウントダウンを管理します。
type DisasterEngine struct {
	rng       *rand.Rand
	next      DisasterType
	countdown int
}

// NewDisasterEngine は次の災害とカウントダウンを乱数で初期化したエンジンを生成します。
func NewDisasterEngine(rng *rand.Rand) *DisasterEngine {
	return &DisasterEngine{
		rng:       rng,
		next:      randomType(rng),
		countdown: randIn(rng, countdownMin, countdownMax),
	}
}

// NewDisasterEngineAt は保存済み状態からエンジンを復元します。カウントダウンは
// 乱数を引き直さず、保存された値をそのまま採用します。
func NewDisasterEngineAt(rng *rand.Rand, next DisasterType, countdown int) *DisasterEngine {
	return &DisasterEngine{
		rng:       rng,
		next:      next,
		countdown: countdown,
	}
}

// Countdown は次の発動までの残りターン数を返します。
func (e *DisasterEngine) Countdown() int { return e.countdown }

// NextType は次に発動する災害の基本形を返します。
func (e *DisasterEngine) NextType() DisasterType { return e.next }

// Tick はカウントダウンを1減らし、残りを返します。
func (e *DisasterEngine) Tick() int {
	e.countdown--
	return e.countdown
}

// Ready はカウントダウンが尽きたかどうかを返します。
func (e *DisasterEngine) Ready() bool { return e.countdown <= 0 }

// Fire は災害を発動し、影響マスを計算して次回の種別とカウントダウンを
// 引き直します。連鎖モディファイアが付いた場合は2件目の災害も解決されます。
func (e *DisasterEngine) Fire(turnCount int) (DisasterSpec, []DisasterStrike) {
	spec := BuildSpec(e.next, turnCount, e.rng)

	strikes := []DisasterStrike{{
		Type:  spec.Type,
		Cells: e.generate(spec.Type, spec.Intensity),
	}}
	if spec.Chained {
		strikes = append(strikes, DisasterStrike{
			Type:  spec.ChainType,
			Cells: e.generate(spec.ChainType, spec.Intensity),
		})
	}

	if spec.Accelerated {
		e.countdown = randIn(e.rng, acceleratedCountdownMin, acceleratedCountdownMax)
	} else {
		e.countdown = randIn(e.rng, countdownMin, countdownMax)
	}
	e.next = randomType(e.rng)
	return spec, strikes
}

func (e *DisasterEngine) generate(t DisasterType, intensity int) []Point {
	switch t {
	case Storm:
		return e.storm(stormSpots(intensity))
	case Tsunami:
		return e.tsunami(intensity)
	case Whirlpool:
		return e.whirlpool(blastRadius(intensity))
	case Meteor:
		return e.meteor(blastRadius(intensity))
	default:
		return nil
	}
}

func stormSpots(intensity int) int {
	switch {
	case intensity >= 3:
		return 12
	case intensity == 2:
		return 8
	default:
		return 5
	}
}

func blastRadius(intensity int) int {
	if intensity >= 2 {
		return 2
	}
	return 1
}

// storm は重複なしでn個のマスを一様に選びます。
func (e *DisasterEngine) storm(n int) []Point {
	picked := make(map[Point]struct{}, n)
	cells := make([]Point, 0, n)
	for len(cells) < n {
		p := Point{Col: e.rng.IntN(BoardSize), Row: e.rng.IntN(BoardSize)}
		if _, ok := picked[p]; ok {
			continue
		}
		picked[p] = struct{}{}
		cells = append(cells, p)
	}
	return cells
}

// tsunami は強度に応じた本数の列を選び、その全行を影響範囲にします。
func (e *DisasterEngine) tsunami(intensity int) []Point {
	columns := intensity // 強度1で1列、以降1列ずつ増える
	if columns > BoardSize {
		columns = BoardSize
	}
	picked := make(map[int]struct{}, columns)
	var cells []Point
	for len(picked) < columns {
		col := e.rng.IntN(BoardSize)
		if _, ok := picked[col]; ok {
			continue
		}
		picked[col] = struct{}{}
		for row := 0; row < BoardSize; row++ {
			cells = append(cells, Point{Col: col, Row: row})
		}
	}
	return cells
}

// whirlpool は中心近傍を螺旋順に訪れ、1つおきに残した疎なパターンを作ります。
func (e *DisasterEngine) whirlpool(radius int) []Point {
	center := Point{Col: e.rng.IntN(BoardSize), Row: e.rng.IntN(BoardSize)}
	visited := SpiralNeighborhood(center, radius)
	cells := make([]Point, 0, (len(visited)+1)/2)
	for i, p := range visited {
		if i%2 == 0 {
			cells = append(cells, p)
		}
	}
	return cells
}

// meteor は中心近傍の全マス(盤面内にクリップ)を影響範囲にします。
func (e *DisasterEngine) meteor(radius int) []Point {
	center := Point{Col: e.rng.IntN(BoardSize), Row: e.rng.IntN(BoardSize)}
	return Neighborhood(center, radius)
}

// MeteorAt は指定位置を中心とした半径1の爆発範囲を返します。
// 機雷のリコシェット効果と小型核の爆心計算が共用します。
func MeteorAt(center Point) []Point {
	return Neighborhood(center, 1)
}

func randomType(rng *rand.Rand) DisasterType {
	return DisasterType(rng.IntN(4))
}

func randIn(rng *rand.Rand, min, max int) int {
	return min + rng.IntN(max-min+1)
}
