package octree

import (
	"testing"

	"go.viam.com/test"
)

func TestUpdateStairsFreshLeaf(t *testing.T) {
	tree := newTestTree(t)
	key := Key{X: 100, Y: 200, Z: 300}

	leaf := tree.UpdateStairs(key, true)
	test.That(t, leaf, test.ShouldNotBeNil)
	test.That(t, float64(leaf.StairLogOdds()), test.ShouldAlmostEqual, float64(float32(stairHitLogOdds)), 1e-6)
	// root plus one node per depth
	test.That(t, tree.NumNodes(), test.ShouldEqual, 17)

	fresh, tracked := tree.ChangedKeys()[key]
	test.That(t, tracked, test.ShouldBeTrue)
	test.That(t, fresh, test.ShouldBeTrue)
}

func TestUpdateStairsNegativeObservation(t *testing.T) {
	tree := newTestTree(t)
	key := Key{X: 5, Y: 5, Z: 5}

	leaf := tree.UpdateStairs(key, false)
	test.That(t, float64(leaf.StairLogOdds()), test.ShouldAlmostEqual, stairMissLogOdds, 1e-6)
	test.That(t, tree.IsNodeStairs(leaf), test.ShouldBeFalse)

	// fresh voxels are tracked regardless of observation sign
	fresh, tracked := tree.ChangedKeys()[key]
	test.That(t, tracked, test.ShouldBeTrue)
	test.That(t, fresh, test.ShouldBeTrue)
}

func TestUpdateStairsClamping(t *testing.T) {
	tree := newTestTree(t)
	key := Key{X: 9, Y: 9, Z: 9}

	for i := 0; i < 30; i++ {
		tree.UpdateStairs(key, true)
	}
	test.That(t, tree.NodeStairLogOdds(key), test.ShouldEqual, tree.ClampMax())

	for i := 0; i < 30; i++ {
		tree.UpdateStairs(key, false)
	}
	test.That(t, tree.NodeStairLogOdds(key), test.ShouldEqual, tree.ClampMin())
}

func TestUpdateStairsEarlyAbort(t *testing.T) {
	tree := newTestTree(t)
	key := Key{X: 77, Y: 78, Z: 79}
	tree.UpdateStairs(key, true)
	tree.ResetChangedKeys()

	leaf := tree.SetNodeStairLogOdds(key, tree.ClampMax())
	test.That(t, leaf, test.ShouldNotBeNil)
	nodesBefore := tree.NumNodes()

	// a positive update against the upper rail touches nothing
	got := tree.UpdateStairs(key, true)
	test.That(t, got, test.ShouldEqual, leaf)
	test.That(t, got.StairLogOdds(), test.ShouldEqual, tree.ClampMax())
	test.That(t, tree.NumNodes(), test.ShouldEqual, nodesBefore)
	test.That(t, len(tree.ChangedKeys()), test.ShouldEqual, 0)

	// the opposite direction still goes through
	got = tree.UpdateStairs(key, false)
	test.That(t, got.StairLogOdds(), test.ShouldBeLessThan, tree.ClampMax())
}

func TestUpdateStairsChangeTracking(t *testing.T) {
	t.Run("flip is tracked once", func(t *testing.T) {
		tree := newTestTree(t)
		key := Key{X: 3, Y: 4, Z: 5}
		tree.UpdateStairs(key, true)
		tree.ResetChangedKeys()

		// 0.24 down past zero flips the classification
		tree.UpdateStairs(key, false)
		fresh, tracked := tree.ChangedKeys()[key]
		test.That(t, tracked, test.ShouldBeTrue)
		test.That(t, fresh, test.ShouldBeFalse)
	})

	t.Run("flip back cancels the entry", func(t *testing.T) {
		tree := newTestTree(t)
		key := Key{X: 3, Y: 4, Z: 5}
		tree.UpdateStairs(key, true)
		tree.ResetChangedKeys()

		tree.UpdateStairs(key, false)
		tree.UpdateStairs(key, true)
		test.That(t, len(tree.ChangedKeys()), test.ShouldEqual, 0)
	})

	t.Run("fresh entry survives a flip", func(t *testing.T) {
		tree := newTestTree(t)
		key := Key{X: 3, Y: 4, Z: 5}
		tree.UpdateStairs(key, true)
		tree.UpdateStairs(key, false)

		fresh, tracked := tree.ChangedKeys()[key]
		test.That(t, tracked, test.ShouldBeTrue)
		test.That(t, fresh, test.ShouldBeTrue)
	})

	t.Run("non-flipping update is not tracked", func(t *testing.T) {
		tree := newTestTree(t)
		key := Key{X: 3, Y: 4, Z: 5}
		tree.UpdateStairs(key, true)
		tree.ResetChangedKeys()

		tree.UpdateStairs(key, true)
		test.That(t, len(tree.ChangedKeys()), test.ShouldEqual, 0)
	})
}

// siblingKeys are the 8 voxels sharing a single depth-15 parent.
func siblingKeys() []Key {
	keys := make([]Key, 0, 8)
	for _, z := range []uint16{8, 9} {
		for _, y := range []uint16{8, 9} {
			for _, x := range []uint16{8, 9} {
				keys = append(keys, Key{X: x, Y: y, Z: z})
			}
		}
	}
	return keys
}

func TestUpdateStairsPruneOnUnwind(t *testing.T) {
	tree := newTestTree(t)
	keys := siblingKeys()

	var last *Node
	for _, k := range keys {
		last = tree.UpdateStairs(k, true)
	}

	// all 8 siblings agree on occupancy, so the parent collapsed and the
	// returned node is that pruned parent
	test.That(t, tree.NumNodes(), test.ShouldEqual, 16)
	test.That(t, last.HasChildren(), test.ShouldBeFalse)
	for _, k := range keys {
		test.That(t, tree.Search(k), test.ShouldEqual, last)
	}
	test.That(t, float64(last.StairLogOdds()), test.ShouldAlmostEqual, float64(float32(stairHitLogOdds)), 1e-6)
}

func TestUpdateStairsExpandsPrunedLeaf(t *testing.T) {
	tree := newTestTree(t)
	for _, k := range siblingKeys() {
		tree.UpdateStairs(k, true)
	}
	test.That(t, tree.NumNodes(), test.ShouldEqual, 16)

	// updating inside the collapsed octant expands it back out, applies the
	// update, and re-prunes on the unwind since occupancy still agrees
	target := Key{X: 8, Y: 8, Z: 8}
	leaf := tree.UpdateStairs(target, true)
	test.That(t, tree.NumNodes(), test.ShouldEqual, 16)
	test.That(t, leaf.HasChildren(), test.ShouldBeFalse)
	test.That(t, float64(leaf.StairLogOdds()), test.ShouldAlmostEqual, float64(float32(stairHitLogOdds)*2), 1e-6)
}
