package octree

import (
	"math"

	"github.com/golang/geo/r3"
)

// Key addresses a single voxel at the finest tree resolution. Each component
// is the discretized coordinate along one axis, offset so that the origin
// sits at the center of the addressable volume.
type Key struct {
	X, Y, Z uint16
}

// ChildIndex returns the 3-bit octant index this key selects at the given
// level, where level counts down from maxDepth-1 at the root to 0 at the
// finest level.
func (k Key) ChildIndex(level uint) uint8 {
	var pos uint8
	if k.X&(1<<level) != 0 {
		pos |= 1
	}
	if k.Y&(1<<level) != 0 {
		pos |= 2
	}
	if k.Z&(1<<level) != 0 {
		pos |= 4
	}
	return pos
}

// KeyBoolMap tracks voxels whose stairs classification changed since the last
// publish cycle. The value records whether the voxel was freshly created.
type KeyBoolMap map[Key]bool

// coordToKeyComponent discretizes a single coordinate. ok is false when the
// coordinate falls outside the addressable volume.
func (t *RoughTree) coordToKeyComponent(coord float64) (uint16, bool) {
	scaled := int(math.Floor(coord/t.resolution)) + (1 << (t.maxDepth - 1))
	if scaled < 0 || scaled >= 1<<t.maxDepth {
		return 0, false
	}
	return uint16(scaled), true
}

// CoordToKeyChecked converts a metric coordinate into a voxel key, reporting
// failure for points outside the addressable volume.
func (t *RoughTree) CoordToKeyChecked(p r3.Vector) (Key, bool) {
	x, okX := t.coordToKeyComponent(p.X)
	y, okY := t.coordToKeyComponent(p.Y)
	z, okZ := t.coordToKeyComponent(p.Z)
	if !okX || !okY || !okZ {
		return Key{}, false
	}
	return Key{X: x, Y: y, Z: z}, true
}

// KeyToCoord returns the metric center of the voxel addressed by key.
func (t *RoughTree) KeyToCoord(k Key) r3.Vector {
	half := float64(int(1) << (t.maxDepth - 1))
	return r3.Vector{
		X: (float64(k.X) - half + 0.5) * t.resolution,
		Y: (float64(k.Y) - half + 0.5) * t.resolution,
		Z: (float64(k.Z) - half + 0.5) * t.resolution,
	}
}
