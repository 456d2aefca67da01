package octree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RoughnessHistogram bins the roughness of all occupied leaves into the given
// number of equal-width buckets over [0,1] and returns the per-bucket counts.
// Leaves without a roughness value are skipped. Intended for diagnostics.
func (t *RoughTree) RoughnessHistogram(bins int) []float64 {
	dividers := floats.Span(make([]float64, bins+1), 0, 1)
	// keep roughness exactly 1.0 inside the last bucket
	dividers[bins] = math.Nextafter(1, 2)

	var values []float64
	t.WalkLeaves(func(n *Node, depth uint) bool {
		if !t.IsNodeOccupied(n) || !n.IsRoughSet() {
			return true
		}
		v := float64(n.Rough())
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		values = append(values, v)
		return true
	})
	sort.Float64s(values)

	return stat.Histogram(nil, dividers, values, nil)
}
