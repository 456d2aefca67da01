package octree

import "github.com/golang/geo/r3"

// UpdateStairs integrates one stairs observation at key, mapping the boolean
// to the calibrated positive/negative log-odds delta, and returns the leaf
// that now holds the estimate (or the pruned ancestor covering it).
func (t *RoughTree) UpdateStairs(key Key, positive bool) *Node {
	update := float32(stairMissLogOdds)
	if positive {
		update = stairHitLogOdds
	}
	return t.UpdateStairsLogOdds(key, update)
}

// UpdateStairsAtCoord integrates one stairs observation at a metric
// coordinate, silently returning nil when the coordinate lies outside the
// addressable volume.
func (t *RoughTree) UpdateStairsAtCoord(p r3.Vector, positive bool) *Node {
	key, ok := t.CoordToKeyChecked(p)
	if !ok {
		return nil
	}
	return t.UpdateStairs(key, positive)
}

// UpdateStairsLogOdds applies an arbitrary stairs log-odds delta at key,
// lazily creating nodes along the descent path and re-pruning on the way back
// up. Changed voxels are recorded in the changed-keys set.
func (t *RoughTree) UpdateStairsLogOdds(key Key, update float32) *Node {
	// early abort: the update cannot move a value already clamped at the
	// rail it pushes towards
	if leaf := t.Search(key); leaf != nil &&
		((update >= 0 && leaf.stairLogOdds >= t.clampMax) ||
			(update <= 0 && leaf.stairLogOdds <= t.clampMin)) {
		return leaf
	}

	createdRoot := false
	if t.root == nil {
		t.root = newNode()
		createdRoot = true
	}
	return t.updateStairsRecurs(t.root, createdRoot, key, 0, update)
}

func (t *RoughTree) updateStairsRecurs(n *Node, justCreated bool, key Key, depth uint, update float32) *Node {
	if depth < t.maxDepth {
		created := false
		pos := key.ChildIndex(t.maxDepth - 1 - depth)
		if !n.childExists(pos) {
			if !n.HasChildren() && !justCreated {
				// a childless pre-existing node is a pruned leaf;
				// expanding it reconstructs all 8 siblings
				n.expand()
			} else {
				n.createChild(pos)
				created = true
			}
		}

		ret := t.updateStairsRecurs(n.children[pos], created, key, depth+1, update)
		if t.PruneNode(n) {
			// the updated node was collapsed away; the caller must use
			// this now-leaf node instead
			ret = n
		} else {
			n.updateInnerAttributes()
		}
		return ret
	}

	// at the target depth, apply the update and track the change
	stairsBefore := t.IsNodeStairs(n)
	t.applyStairUpdate(n, update)
	if justCreated {
		t.changedKeys[key] = true
	} else if stairsBefore != t.IsNodeStairs(n) {
		fresh, tracked := t.changedKeys[key]
		if !tracked {
			t.changedKeys[key] = false
		} else if !fresh {
			// flipped back within the same epoch, not a net change
			delete(t.changedKeys, key)
		}
	}
	return n
}

// applyStairUpdate adds the delta and clamps. The lower bound is checked
// first so it wins if both were somehow violated at once.
func (t *RoughTree) applyStairUpdate(n *Node, update float32) {
	n.stairLogOdds += update
	if n.stairLogOdds < t.clampMin {
		n.stairLogOdds = t.clampMin
		return
	}
	if n.stairLogOdds > t.clampMax {
		n.stairLogOdds = t.clampMax
	}
}

// ChangedKeys exposes the changed-keys set for incremental publishing. The
// tree only inserts and removes entries; clearing between publish cycles is
// the caller's job, via ResetChangedKeys.
func (t *RoughTree) ChangedKeys() KeyBoolMap {
	return t.changedKeys
}

// ResetChangedKeys empties the changed-keys set.
func (t *RoughTree) ResetChangedKeys() {
	t.changedKeys = KeyBoolMap{}
}
