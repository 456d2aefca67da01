package octree

import "math"

// Node is one cell of the tree. A node either is a leaf (children == nil) or
// holds a slice of 8 child slots, some of which may be nil when only part of
// an octant has been observed. Nodes are owned exclusively by their parent.
type Node struct {
	occupancy    float32
	rough        float32
	stairLogOdds float32
	agent        uint8
	children     []*Node
}

func newNode() *Node {
	return &Node{rough: float32(math.NaN())}
}

// LogOdds returns the occupancy estimate in log-odds form.
func (n *Node) LogOdds() float32 { return n.occupancy }

// SetLogOdds sets the occupancy estimate in log-odds form.
func (n *Node) SetLogOdds(l float32) { n.occupancy = l }

// Occupancy returns the occupancy estimate as a probability.
func (n *Node) Occupancy() float64 { return Probability(n.occupancy) }

// Rough returns the roughness value, NaN when unset.
func (n *Node) Rough() float32 { return n.rough }

// SetRough replaces the roughness value.
func (n *Node) SetRough(r float32) { n.rough = r }

// IsRoughSet reports whether a roughness value has been integrated.
func (n *Node) IsRoughSet() bool { return !math.IsNaN(float64(n.rough)) }

// StairLogOdds returns the stairs-class confidence in log-odds form.
func (n *Node) StairLogOdds() float32 { return n.stairLogOdds }

// SetStairLogOdds sets the stairs-class confidence in log-odds form.
func (n *Node) SetStairLogOdds(l float32) { n.stairLogOdds = l }

// StairProbability returns the stairs-class confidence as a probability.
func (n *Node) StairProbability() float64 { return Probability(n.stairLogOdds) }

// Agent returns the ownership tag, 0 meaning unassigned.
func (n *Node) Agent() uint8 { return n.agent }

// SetAgent sets the ownership tag.
func (n *Node) SetAgent(a uint8) { n.agent = a }

// CopyData copies all attribute fields from another node, leaving the child
// structure untouched.
func (n *Node) CopyData(from *Node) {
	n.occupancy = from.occupancy
	n.rough = from.rough
	n.stairLogOdds = from.stairLogOdds
	n.agent = from.agent
}

// HasChildren reports whether any child slot is populated.
func (n *Node) HasChildren() bool {
	if n.children == nil {
		return false
	}
	for _, c := range n.children {
		if c != nil {
			return true
		}
	}
	return false
}

func (n *Node) childExists(i uint8) bool {
	return n.children != nil && n.children[i] != nil
}

func (n *Node) createChild(i uint8) *Node {
	if n.children == nil {
		n.children = make([]*Node, 8)
	}
	child := newNode()
	n.children[i] = child
	return child
}

// expand reverses a prune: all 8 children are materialized with a copy of
// this node's attributes, reconstructing the uniform subtree the prune
// collapsed.
func (n *Node) expand() {
	n.children = make([]*Node, 8)
	for i := range n.children {
		child := newNode()
		child.CopyData(n)
		n.children[i] = child
	}
}

// AverageChildRough returns the mean roughness over children with a set
// value, NaN when no child has one.
func (n *Node) AverageChildRough() float32 {
	var sum float32
	count := 0
	for _, c := range n.children {
		if c != nil && c.IsRoughSet() {
			sum += c.rough
			count++
		}
	}
	if count == 0 {
		return float32(math.NaN())
	}
	return sum / float32(count)
}

// MaxChildLogOdds returns the maximum occupancy log-odds over existing
// children, or the most negative representable value when there are none.
func (n *Node) MaxChildLogOdds() float32 {
	max := float32(-math.MaxFloat32)
	for _, c := range n.children {
		if c != nil && c.occupancy > max {
			max = c.occupancy
		}
	}
	return max
}

// MaxChildStairLogOdds returns the maximum stairs log-odds over existing
// children, or the most negative representable value when there are none.
func (n *Node) MaxChildStairLogOdds() float32 {
	max := float32(-math.MaxFloat32)
	for _, c := range n.children {
		if c != nil && c.stairLogOdds > max {
			max = c.stairLogOdds
		}
	}
	return max
}

// MeanChildStairLogOdds converts each child's stairs log-odds to a
// probability, averages them and converts back, NaN when there are no
// children.
func (n *Node) MeanChildStairLogOdds() float32 {
	var mean float64
	count := 0
	for _, c := range n.children {
		if c != nil {
			mean += c.StairProbability()
			count++
		}
	}
	if count == 0 {
		return float32(math.NaN())
	}
	mean /= float64(count)
	return float32(math.Log(mean / (1 - mean)))
}

// updateInnerAttributes refreshes this node's attributes from its children:
// occupancy and stairs take the child maximum, roughness the child average.
// Callers must apply it bottom-up, children before parents.
func (n *Node) updateInnerAttributes() {
	n.occupancy = n.MaxChildLogOdds()
	n.rough = n.AverageChildRough()
	n.stairLogOdds = n.MaxChildStairLogOdds()
}
