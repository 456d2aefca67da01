package mapio

import (
	"bytes"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"go.viam.com/roughmap/octree"
)

// ToBinaryMessage serializes a tree with its configured compact binary codec.
func ToBinaryMessage(t *octree.RoughTree) (*Message, error) {
	data, err := t.Serialize()
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:         t.TypeID(),
		Resolution: t.Resolution(),
		Binary:     true,
		Data:       data,
	}, nil
}

// ToFullMessage serializes a tree with the lossless full-state encoding.
func ToFullMessage(t *octree.RoughTree) (*Message, error) {
	var buf bytes.Buffer
	if err := t.WriteFull(&buf); err != nil {
		return nil, err
	}
	return &Message{
		ID:         t.TypeID(),
		Resolution: t.Resolution(),
		Binary:     false,
		Data:       buf.Bytes(),
	}, nil
}

// FromMessage reconstructs a tree from a message, resolving the codec
// configuration from the tree-type identifier alone. An empty payload yields
// an empty tree.
func FromMessage(msg *Message, logger golog.Logger) (*octree.RoughTree, error) {
	t, err := octree.CreateTree(msg.ID, msg.Resolution, logger)
	if err != nil {
		return nil, err
	}
	if len(msg.Data) == 0 {
		logger.Warnf("map message %q has no payload, returning empty tree", msg.ID)
		return t, nil
	}
	if msg.Binary {
		if err := t.Deserialize(msg.Data); err != nil {
			return nil, errors.Wrapf(err, "decoding binary map %q", msg.ID)
		}
	} else {
		if err := t.ReadFull(bytes.NewReader(msg.Data)); err != nil {
			return nil, errors.Wrapf(err, "decoding full map %q", msg.ID)
		}
	}
	return t, nil
}
