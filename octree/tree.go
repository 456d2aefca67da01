package octree

import (
	"math"
	"math/bits"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// RoughTree is a depth-bounded sparse occupancy octree with per-voxel
// roughness and stairs attributes. It is not safe for concurrent mutation;
// callers needing concurrent producers must serialize access externally.
type RoughTree struct {
	logger golog.Logger

	root       *Node
	resolution float64
	maxDepth   uint

	clampMin          float32
	clampMax          float32
	occupancyThresLog float32
	stairsThresLog    float32

	mode           BinaryEncodingMode
	roughThreshold float32
	stairsEnabled  bool
	numBins        uint
	roughBits      uint
	binSize        float32

	changedKeys KeyBoolMap
}

// New creates an empty tree with the given leaf resolution and the default
// codec configuration (binning with 16 bins, stairs enabled).
func New(resolution float64, logger golog.Logger) (*RoughTree, error) {
	if resolution <= 0 {
		return nil, errors.Errorf("invalid resolution (%.4f) for rough tree", resolution)
	}

	t := &RoughTree{
		logger:         logger,
		resolution:     resolution,
		maxDepth:       DefaultMaxDepth,
		clampMin:       defaultClampMin,
		clampMax:       defaultClampMax,
		mode:           BinningMode,
		roughThreshold: DefaultRoughThreshold,
		stairsEnabled:  true,
		changedKeys:    KeyBoolMap{},
	}
	if err := t.SetNumBins(DefaultNumBins); err != nil {
		return nil, err
	}
	return t, nil
}

// Resolution returns the edge length of a voxel at the finest level.
func (t *RoughTree) Resolution() float64 { return t.resolution }

// MaxDepth returns the tree depth; keys address voxels at this depth.
func (t *RoughTree) MaxDepth() uint { return t.maxDepth }

// Root returns the root node, nil while the tree is empty.
func (t *RoughTree) Root() *Node { return t.root }

// EncodingMode returns the configured binary wire format.
func (t *RoughTree) EncodingMode() BinaryEncodingMode { return t.mode }

// SetEncodingMode selects the binary wire format used by the codec.
func (t *RoughTree) SetEncodingMode(m BinaryEncodingMode) { t.mode = m }

// RoughThreshold returns the binarization threshold used by the thresholding
// codec.
func (t *RoughTree) RoughThreshold() float32 { return t.roughThreshold }

// SetRoughThreshold sets the binarization threshold used by the thresholding
// codec. Values must lie in [0,1].
func (t *RoughTree) SetRoughThreshold(thres float32) error {
	if thres < 0 || thres > 1 {
		return errors.Errorf("rough threshold %.4f outside [0,1]", thres)
	}
	t.roughThreshold = thres
	return nil
}

// NumBins returns the roughness quantization bin count, 0 when roughness
// encoding is disabled.
func (t *RoughTree) NumBins() uint { return t.numBins }

// SetNumBins configures roughness quantization for the binning codec. n must
// be a power of two, or 0 to disable roughness encoding entirely.
func (t *RoughTree) SetNumBins(n uint) error {
	if n != 0 && (n < 2 || n&(n-1) != 0) {
		return errors.Errorf("bin count must be a power of two, got %d", n)
	}
	t.numBins = n
	if n == 0 {
		t.roughBits = 0
		t.binSize = 0
		return nil
	}
	t.roughBits = uint(bits.TrailingZeros(n))
	t.binSize = 1.0 / float32(n-1)
	return nil
}

// StairsEnabled reports whether the stairs channel is carried in the
// tree-type identifier.
func (t *RoughTree) StairsEnabled() bool { return t.stairsEnabled }

// SetStairsEnabled toggles the stairs channel flag.
func (t *RoughTree) SetStairsEnabled(enabled bool) { t.stairsEnabled = enabled }

// ClampMin returns the lower log-odds clamping bound.
func (t *RoughTree) ClampMin() float32 { return t.clampMin }

// ClampMax returns the upper log-odds clamping bound.
func (t *RoughTree) ClampMax() float32 { return t.clampMax }

// IsNodeOccupied reports whether the node's occupancy estimate is at or above
// the occupancy threshold.
func (t *RoughTree) IsNodeOccupied(n *Node) bool {
	return n.occupancy >= t.occupancyThresLog
}

// IsNodeStairs reports whether the node's stairs estimate is above the
// registration threshold.
func (t *RoughTree) IsNodeStairs(n *Node) bool {
	return n.stairLogOdds > t.stairsThresLog
}

// Search descends to the node addressed by key. A pruned leaf covering the
// key is returned as-is; nil is returned when no node covers the key.
func (t *RoughTree) Search(key Key) *Node {
	if t.root == nil {
		return nil
	}
	n := t.root
	for depth := uint(0); depth < t.maxDepth; depth++ {
		if !n.HasChildren() {
			// pruned leaf covering the whole octant
			return n
		}
		pos := key.ChildIndex(t.maxDepth - 1 - depth)
		if !n.childExists(pos) {
			return nil
		}
		n = n.children[pos]
	}
	return n
}

// NodeRough returns the roughness at key, NaN when absent.
func (t *RoughTree) NodeRough(key Key) float32 {
	if n := t.Search(key); n != nil {
		return n.Rough()
	}
	return float32(math.NaN())
}

// NodeRoughAtCoord returns the roughness at a metric coordinate, NaN when the
// coordinate is out of the addressable volume or unmapped.
func (t *RoughTree) NodeRoughAtCoord(p r3.Vector) float32 {
	key, ok := t.CoordToKeyChecked(p)
	if !ok {
		return float32(math.NaN())
	}
	return t.NodeRough(key)
}

// SetNodeRough replaces the roughness of the node at key, returning the node
// or nil when absent.
func (t *RoughTree) SetNodeRough(key Key, rough float32) *Node {
	n := t.Search(key)
	if n != nil {
		n.SetRough(rough)
	}
	return n
}

// SetNodeRoughAtCoord replaces roughness by metric coordinate, silently
// returning nil for out-of-volume coordinates.
func (t *RoughTree) SetNodeRoughAtCoord(p r3.Vector, rough float32) *Node {
	key, ok := t.CoordToKeyChecked(p)
	if !ok {
		return nil
	}
	return t.SetNodeRough(key, rough)
}

// AverageNodeRough integrates a roughness measurement at key by averaging
// with the previous value, or sets it when previously unset.
func (t *RoughTree) AverageNodeRough(key Key, rough float32) *Node {
	n := t.Search(key)
	if n != nil {
		if n.IsRoughSet() {
			n.SetRough((n.Rough() + rough) / 2)
		} else {
			n.SetRough(rough)
		}
	}
	return n
}

// IntegrateNodeRough integrates a roughness measurement at key weighted by
// the node's occupancy probability.
func (t *RoughTree) IntegrateNodeRough(key Key, rough float32) *Node {
	n := t.Search(key)
	if n != nil {
		if n.IsRoughSet() {
			prob := float32(n.Occupancy())
			n.SetRough(n.Rough()*prob + rough*(0.99-prob))
		} else {
			n.SetRough(rough)
		}
	}
	return n
}

// SetNodeAgent tags the node at key with an agent id, returning the node or
// nil when absent.
func (t *RoughTree) SetNodeAgent(key Key, agent uint8) *Node {
	n := t.Search(key)
	if n != nil {
		n.SetAgent(agent)
	}
	return n
}

// SetNodeAgentAtCoord tags the node at a metric coordinate, silently
// returning nil for out-of-volume coordinates.
func (t *RoughTree) SetNodeAgentAtCoord(p r3.Vector, agent uint8) *Node {
	key, ok := t.CoordToKeyChecked(p)
	if !ok {
		return nil
	}
	return t.SetNodeAgent(key, agent)
}

// NodeAgent returns the agent tag at key, 0 when absent or unassigned.
func (t *RoughTree) NodeAgent(key Key) uint8 {
	if n := t.Search(key); n != nil {
		return n.Agent()
	}
	return 0
}

// NodeStairLogOdds returns the stairs log-odds at key, 0 when absent.
func (t *RoughTree) NodeStairLogOdds(key Key) float32 {
	if n := t.Search(key); n != nil {
		return n.StairLogOdds()
	}
	return 0
}

// SetNodeStairLogOdds replaces the stairs log-odds of the node at key.
func (t *RoughTree) SetNodeStairLogOdds(key Key, logOdds float32) *Node {
	n := t.Search(key)
	if n != nil {
		n.SetStairLogOdds(logOdds)
	}
	return n
}

// IsNodeCollapsible reports whether all 8 children exist as leaves sharing
// the first child's occupancy value. Roughness, stairs and agent tags are
// deliberately excluded from the comparison: collapsing trades those
// finer-grained differences for size.
func (t *RoughTree) IsNodeCollapsible(n *Node) bool {
	if !n.childExists(0) {
		return false
	}
	first := n.children[0]
	if first.HasChildren() {
		return false
	}
	for i := uint8(1); i < 8; i++ {
		if !n.childExists(i) {
			return false
		}
		child := n.children[i]
		if child.HasChildren() || child.occupancy != first.occupancy {
			return false
		}
	}
	return true
}

// PruneNode collapses a collapsible depth-1 subtree into its parent leaf,
// re-averaging roughness over the children about to be dropped. Returns false
// without side effects when the node is not collapsible.
func (t *RoughTree) PruneNode(n *Node) bool {
	if !t.IsNodeCollapsible(n) {
		return false
	}
	n.CopyData(n.children[0])
	if n.IsRoughSet() {
		n.SetRough(n.AverageChildRough())
	}
	n.children = nil
	return true
}

// UpdateInnerOccupancy refreshes all inner-node attributes from their
// children in a single post-order traversal. Leaves are left untouched.
func (t *RoughTree) UpdateInnerOccupancy() {
	if t.root == nil {
		return
	}
	t.updateInnerOccupancyRecurs(t.root, 0)
}

func (t *RoughTree) updateInnerOccupancyRecurs(n *Node, depth uint) {
	if !n.HasChildren() {
		return
	}
	if depth < t.maxDepth {
		for _, child := range n.children {
			if child != nil {
				t.updateInnerOccupancyRecurs(child, depth+1)
			}
		}
	}
	n.updateInnerAttributes()
}

// WalkLeaves visits every leaf depth-first, reporting the depth at which each
// leaf sits (pruned leaves sit above maxDepth). The walk stops early when fn
// returns false.
func (t *RoughTree) WalkLeaves(fn func(n *Node, depth uint) bool) {
	if t.root == nil {
		return
	}
	t.walkLeavesRecurs(t.root, 0, fn)
}

func (t *RoughTree) walkLeavesRecurs(n *Node, depth uint, fn func(n *Node, depth uint) bool) bool {
	if !n.HasChildren() {
		return fn(n, depth)
	}
	for _, child := range n.children {
		if child != nil {
			if !t.walkLeavesRecurs(child, depth+1, fn) {
				return false
			}
		}
	}
	return true
}

// NumNodes returns the total number of materialized nodes.
func (t *RoughTree) NumNodes() int {
	return countNodes(t.root)
}

func countNodes(n *Node) int {
	if n == nil {
		return 0
	}
	count := 1
	for _, child := range n.children {
		count += countNodes(child)
	}
	return count
}
