package game

import "errors"

var ErrShotOutOfBounds = errors.New("game: shot out of board bounds")

// ShotResult は1発の射撃の解決結果です。
type ShotResult struct {
	Target          Point
	Hit             bool
	ShipDestroyed   bool
	DestroyedShipID int
	RemainingCells  int
	FleetDestroyed  bool
}

// ResolveShot は対象盤面に対する射撃を解決します。状態は一切変更せず、
// 判定を 検証 → 撃沈 → 命中 → 全滅 → 外れ の順で行った結果だけを返します。
// hits には解決前の命中済みマス集合を渡します。
func ResolveShot(ships []Ship, hits map[Point]struct{}, target Point) (ShotResult, error) {
	if !target.InBounds() {
		return ShotResult{}, ErrShotOutOfBounds
	}

	result := ShotResult{Target: target}
	after := func(p Point) map[Point]struct{} {
		next := make(map[Point]struct{}, len(hits)+1)
		for h := range hits {
			next[h] = struct{}{}
		}
		next[p] = struct{}{}
		return next
	}(target)

	remaining := 0
	for _, ship := range ships {
		damaged := 0
		occupies := false
		for _, c := range ship.Cells() {
			if _, ok := after[c]; ok {
				damaged++
			}
			if c == target {
				occupies = true
			}
		}
		remaining += ship.Length - damaged
		if occupies {
			result.Hit = true
			if damaged == ship.Length {
				result.ShipDestroyed = true
				result.DestroyedShipID = ship.ID
			}
		}
	}

	result.RemainingCells = remaining
	result.FleetDestroyed = remaining == 0
	return result, nil
}

// DamagedCells は命中済みマスのうち実際に艦に重なっているものを返します。
func DamagedCells(ships []Ship, hits map[Point]struct{}) []Point {
	var damaged []Point
	for _, ship := range ships {
		for _, c := range ship.Cells() {
			if _, ok := hits[c]; ok {
				damaged = append(damaged, c)
			}
		}
	}
	return damaged
}
