package octree

import (
	"bytes"
	"testing"

	"go.viam.com/test"
)

func TestFullRoundTrip(t *testing.T) {
	tree := buildSampleTree(t)

	var buf bytes.Buffer
	test.That(t, tree.WriteFull(&buf), test.ShouldBeNil)
	// every node costs its 12-byte record plus one bitmask byte
	test.That(t, buf.Len(), test.ShouldEqual, tree.NumNodes()*(nodeRecordSize+1))

	decoded := newTestTree(t)
	test.That(t, decoded.ReadFull(&buf), test.ShouldBeNil)
	test.That(t, decoded.NumNodes(), test.ShouldEqual, tree.NumNodes())

	// the full format is lossless, attribute for attribute
	var walk func(a, b *Node)
	walk = func(a, b *Node) {
		test.That(t, b, test.ShouldNotBeNil)
		test.That(t, b.LogOdds(), test.ShouldEqual, a.LogOdds())
		test.That(t, b.StairLogOdds(), test.ShouldEqual, a.StairLogOdds())
		test.That(t, b.IsRoughSet(), test.ShouldEqual, a.IsRoughSet())
		if a.IsRoughSet() {
			test.That(t, b.Rough(), test.ShouldEqual, a.Rough())
		}
		for i := uint8(0); i < 8; i++ {
			test.That(t, b.childExists(i), test.ShouldEqual, a.childExists(i))
			if a.childExists(i) && b.childExists(i) {
				walk(a.children[i], b.children[i])
			}
		}
	}
	walk(tree.Root(), decoded.Root())
}

func TestWriteFullEmptyTree(t *testing.T) {
	tree := newTestTree(t)
	var buf bytes.Buffer
	test.That(t, tree.WriteFull(&buf), test.ShouldBeNil)
	test.That(t, buf.Len(), test.ShouldEqual, 0)
}

func TestReadFullErrors(t *testing.T) {
	t.Run("truncated stream", func(t *testing.T) {
		tree := buildSampleTree(t)
		var buf bytes.Buffer
		test.That(t, tree.WriteFull(&buf), test.ShouldBeNil)

		decoded := newTestTree(t)
		err := decoded.ReadFull(bytes.NewReader(buf.Bytes()[:buf.Len()-5]))
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("populated destination rejected", func(t *testing.T) {
		tree := buildSampleTree(t)
		var buf bytes.Buffer
		test.That(t, tree.WriteFull(&buf), test.ShouldBeNil)

		err := tree.ReadFull(&buf)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "already populated")
	})
}
