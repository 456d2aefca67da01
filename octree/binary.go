package octree

import (
	"bytes"
	"io"
	"math"

	"github.com/pkg/errors"
)

// The binary codec mirrors the tree structure itself: every node writes one
// bit-packed header classifying its 8 child slots, then recursively appends
// the encoding of each child that has children of its own, depth-first.
//
// Per-child classification from the first 2 bits:
//
//	10 free leaf, 01 occupied leaf, 00 unknown/absent, 11 has children
//
// Bits are addressed LSB-first within each byte, and every node header is
// padded up to a whole number of bytes symmetrically on write and read.

// bitBuffer is a fixed-size bit array in wire byte order.
type bitBuffer struct {
	data []byte
	n    int
}

func newBitBuffer(n int) *bitBuffer {
	return &bitBuffer{data: make([]byte, (n+7)/8), n: n}
}

func readBitBuffer(r io.Reader, n int) (*bitBuffer, error) {
	b := newBitBuffer(n)
	if _, err := io.ReadFull(r, b.data); err != nil {
		return nil, errors.Wrap(err, "reading node header")
	}
	return b, nil
}

func (b *bitBuffer) set(i int) { b.data[i/8] |= 1 << (i % 8) }

func (b *bitBuffer) get(i int) bool { return b.data[i/8]&(1<<(i%8)) != 0 }

func (b *bitBuffer) bytes() []byte { return b.data }

// Serialize encodes the whole tree with the configured wire format. An empty
// tree yields an empty byte slice.
func (t *RoughTree) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteBinary(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a byte stream produced by Serialize into this tree,
// which must be empty. An empty input leaves the tree empty.
func (t *RoughTree) Deserialize(data []byte) error {
	if len(data) == 0 {
		t.logger.Warn("deserializing empty map data, tree left empty")
		return nil
	}
	return t.ReadBinary(bytes.NewReader(data))
}

// WriteBinary writes the compact bit-packed encoding of the tree to w.
func (t *RoughTree) WriteBinary(w io.Writer) error {
	if t.root == nil {
		return nil
	}
	return t.writeBinaryNode(w, t.root)
}

// ReadBinary reads a compact bit-packed encoding from r. Reading into an
// already populated tree is a precondition violation and is rejected.
func (t *RoughTree) ReadBinary(r io.Reader) error {
	if t.root != nil {
		return errors.New("cannot read binary data into an already populated tree")
	}
	root := newNode()
	if err := t.readBinaryNode(r, root); err != nil {
		return err
	}
	t.root = root
	t.logger.Debugf("read %d nodes from binary stream", t.NumNodes())
	return nil
}

func (t *RoughTree) writeBinaryNode(w io.Writer, n *Node) error {
	switch t.mode {
	case ThresholdingMode:
		return t.writeThresholdingNode(w, n)
	case BinningMode:
		return t.writeBinningNode(w, n)
	default:
		return errors.Errorf("invalid binary encoding mode %d", t.mode)
	}
}

func (t *RoughTree) readBinaryNode(r io.Reader, n *Node) error {
	switch t.mode {
	case ThresholdingMode:
		return t.readThresholdingNode(r, n)
	case BinningMode:
		return t.readBinningNode(r, n)
	default:
		return errors.Errorf("invalid binary encoding mode %d", t.mode)
	}
}

// writeThresholdingNode packs 3 bits per child, 24 bits per node. The third
// bit of an occupied leaf binarizes roughness against the configured
// threshold; the comparison is false for unset (NaN) roughness.
func (t *RoughTree) writeThresholdingNode(w io.Writer, n *Node) error {
	buf := newBitBuffer(24)
	for i := uint8(0); i < 8; i++ {
		if !n.childExists(i) {
			continue
		}
		child := n.children[i]
		base := int(i) * 3
		switch {
		case child.HasChildren():
			buf.set(base)
			buf.set(base + 1)
		case t.IsNodeOccupied(child):
			buf.set(base + 1)
			if child.rough > t.roughThreshold {
				buf.set(base + 2)
			}
		default:
			buf.set(base)
		}
	}
	if _, err := w.Write(buf.bytes()); err != nil {
		return errors.Wrap(err, "writing node header")
	}

	for i := uint8(0); i < 8; i++ {
		if n.childExists(i) && n.children[i].HasChildren() {
			if err := t.writeBinaryNode(w, n.children[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *RoughTree) readThresholdingNode(r io.Reader, n *Node) error {
	buf, err := readBitBuffer(r, 24)
	if err != nil {
		return err
	}

	// any slot left unclassified defaults this node to occupied
	n.SetLogOdds(t.clampMax)

	// children holding a subtree are tracked explicitly; their attributes
	// stay pending until the recursive read below returns
	var pending []uint8
	for i := uint8(0); i < 8; i++ {
		base := int(i) * 3
		free, occupied := buf.get(base), buf.get(base+1)
		switch {
		case free && occupied:
			n.createChild(i)
			pending = append(pending, i)
		case occupied:
			child := n.createChild(i)
			child.SetLogOdds(t.clampMax)
			if buf.get(base + 2) {
				child.SetRough(t.roughThreshold)
			} else {
				child.SetRough(0)
			}
		case free:
			n.createChild(i).SetLogOdds(t.clampMin)
		}
	}

	for _, i := range pending {
		child := n.children[i]
		if err := t.readBinaryNode(r, child); err != nil {
			return err
		}
		child.SetLogOdds(child.MaxChildLogOdds())
	}
	return nil
}

// binningBitsPerChild is 2 occupancy-class bits, log2(B) roughness-bin bits
// and 1 stairs bit.
func (t *RoughTree) binningBitsPerChild() int {
	return 2 + int(t.roughBits) + 1
}

// roughBinIndex quantizes a roughness value into a bin. An input exactly
// equal to the next bin's decoded representative belongs to that bin, floored
// one low only by float roundoff in the quotient.
func (t *RoughTree) roughBinIndex(rough float32) int {
	binIdx := int(math.Floor(float64(rough) / float64(t.binSize)))
	if binIdx+1 < int(t.numBins) && t.roughBinValue(binIdx+1) == rough {
		binIdx++
	}
	if binIdx >= int(t.numBins) {
		binIdx = int(t.numBins) - 1
	}
	if binIdx < 0 {
		binIdx = 0
	}
	return binIdx
}

// roughBinValue is the decoded roughness representative of a bin.
func (t *RoughTree) roughBinValue(binIdx int) float32 {
	return float32(float64(binIdx) * float64(t.binSize))
}

func (t *RoughTree) writeBinningNode(w io.Writer, n *Node) error {
	bpc := t.binningBitsPerChild()
	buf := newBitBuffer(bpc * 8)
	for i := uint8(0); i < 8; i++ {
		if !n.childExists(i) {
			continue
		}
		child := n.children[i]
		base := int(i) * bpc
		switch {
		case child.HasChildren():
			buf.set(base)
			buf.set(base + 1)
		case t.IsNodeOccupied(child):
			buf.set(base + 1)
			if child.IsRoughSet() && t.roughBits > 0 {
				binIdx := t.roughBinIndex(child.rough)
				// roughness bin, most-significant bit first
				for j := 0; j < int(t.roughBits); j++ {
					if binIdx&(1<<(int(t.roughBits)-1-j)) != 0 {
						buf.set(base + 2 + j)
					}
				}
			}
			if t.IsNodeStairs(child) {
				buf.set(base + 2 + int(t.roughBits))
			}
		default:
			buf.set(base)
		}
	}
	if _, err := w.Write(buf.bytes()); err != nil {
		return errors.Wrap(err, "writing node header")
	}

	for i := uint8(0); i < 8; i++ {
		if n.childExists(i) && n.children[i].HasChildren() {
			if err := t.writeBinaryNode(w, n.children[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *RoughTree) readBinningNode(r io.Reader, n *Node) error {
	bpc := t.binningBitsPerChild()
	buf, err := readBitBuffer(r, bpc*8)
	if err != nil {
		return err
	}

	n.SetLogOdds(t.clampMax)

	var pending []uint8
	for i := uint8(0); i < 8; i++ {
		base := int(i) * bpc
		free, occupied := buf.get(base), buf.get(base+1)
		switch {
		case free && occupied:
			n.createChild(i)
			pending = append(pending, i)
		case occupied:
			child := n.createChild(i)
			child.SetLogOdds(t.clampMax)
			if t.roughBits > 0 {
				binIdx := 0
				for j := 0; j < int(t.roughBits); j++ {
					if buf.get(base + 2 + j) {
						binIdx |= 1 << (int(t.roughBits) - 1 - j)
					}
				}
				child.SetRough(t.roughBinValue(binIdx))
			}
			if buf.get(base + 2 + int(t.roughBits)) {
				child.SetStairLogOdds(1)
			} else {
				child.SetStairLogOdds(0)
			}
		case free:
			n.createChild(i).SetLogOdds(t.clampMin)
		}
	}

	for _, i := range pending {
		child := n.children[i]
		if err := t.readBinaryNode(r, child); err != nil {
			return err
		}
		child.SetLogOdds(child.MaxChildLogOdds())
		child.SetStairLogOdds(child.MaxChildStairLogOdds())
	}
	return nil
}
