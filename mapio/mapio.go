// Package mapio marshals rough-terrain occupancy trees into a framed message
// envelope for persistence and transport. The envelope carries the tree-type
// identifier, the map resolution and the codec payload, so a receiver can
// reconstruct the correct tree and codec configuration purely from the
// envelope. Payloads are checksummed and optionally zstd-compressed.
package mapio

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

const (
	headerMagic   = "RGHM"
	formatVersion = 1

	flagBinary     = 1 << 0
	flagCompressed = 1 << 1
)

// Message is one serialized map: the tree-type identifier with the codec
// configuration embedded in it, the map resolution, whether Data holds the
// compact binary or the full-state encoding, and the payload itself.
type Message struct {
	ID         string
	Resolution float64
	Binary     bool
	Data       []byte
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Marshal frames the message into a self-describing byte stream. When
// compress is set the payload is zstd-compressed; the checksum always covers
// the uncompressed payload.
func (m *Message) Marshal(compress bool) ([]byte, error) {
	if len(m.ID) > math.MaxUint16 {
		return nil, errors.Errorf("tree type identifier too long (%d bytes)", len(m.ID))
	}

	flags := byte(0)
	if m.Binary {
		flags |= flagBinary
	}
	payload := m.Data
	if compress {
		flags |= flagCompressed
		payload = zstdEncoder.EncodeAll(m.Data, nil)
	}

	var buf bytes.Buffer
	buf.WriteString(headerMagic)
	buf.WriteByte(formatVersion)
	buf.WriteByte(flags)
	buf.Write(binary.AppendUvarint(nil, uint64(len(m.ID))))
	buf.WriteString(m.ID)

	var fixed [8]byte
	binary.LittleEndian.PutUint64(fixed[:], math.Float64bits(m.Resolution))
	buf.Write(fixed[:])
	binary.LittleEndian.PutUint64(fixed[:], xxhash.Sum64(m.Data))
	buf.Write(fixed[:])

	buf.Write(binary.AppendUvarint(nil, uint64(len(payload))))
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Unmarshal parses a framed message, decompressing the payload if needed and
// verifying its checksum. Malformed or truncated input is a hard failure.
func Unmarshal(data []byte) (*Message, error) {
	rest := data
	if len(rest) < len(headerMagic)+2 || string(rest[:len(headerMagic)]) != headerMagic {
		return nil, errors.New("not a rough map message")
	}
	rest = rest[len(headerMagic):]
	if rest[0] != formatVersion {
		return nil, errors.Errorf("unsupported map message version %d", rest[0])
	}
	flags := rest[1]
	rest = rest[2:]

	idLen, n := binary.Uvarint(rest)
	if n <= 0 || uint64(len(rest)-n) < idLen {
		return nil, errors.New("truncated tree type identifier")
	}
	rest = rest[n:]
	id := string(rest[:idLen])
	rest = rest[idLen:]

	if len(rest) < 16 {
		return nil, errors.New("truncated map message header")
	}
	resolution := math.Float64frombits(binary.LittleEndian.Uint64(rest[:8]))
	checksum := binary.LittleEndian.Uint64(rest[8:16])
	rest = rest[16:]

	payloadLen, n := binary.Uvarint(rest)
	if n <= 0 || uint64(len(rest)-n) < payloadLen {
		return nil, errors.New("truncated map payload")
	}
	payload := rest[n : n+int(payloadLen)]

	if flags&flagCompressed != 0 {
		var err error
		payload, err = zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, errors.Wrap(err, "decompressing map payload")
		}
	}
	if xxhash.Sum64(payload) != checksum {
		return nil, errors.New("map payload checksum mismatch")
	}

	return &Message{
		ID:         id,
		Resolution: resolution,
		Binary:     flags&flagBinary != 0,
		Data:       payload,
	}, nil
}
