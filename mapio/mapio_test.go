package mapio

import (
	"bytes"
	"testing"

	"go.viam.com/test"
)

func sampleMessage() *Message {
	return &Message{
		ID:         "RoughOcTree-S-16",
		Resolution: 0.15,
		Binary:     true,
		Data:       bytes.Repeat([]byte{3, 0, 0, 6, 0, 0}, 40),
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "uncompressed"
		if compress {
			name = "compressed"
		}
		t.Run(name, func(t *testing.T) {
			msg := sampleMessage()
			data, err := msg.Marshal(compress)
			test.That(t, err, test.ShouldBeNil)

			got, err := Unmarshal(data)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, got, test.ShouldResemble, msg)
		})
	}
}

func TestMarshalCompresses(t *testing.T) {
	msg := sampleMessage()
	plain, err := msg.Marshal(false)
	test.That(t, err, test.ShouldBeNil)
	packed, err := msg.Marshal(true)
	test.That(t, err, test.ShouldBeNil)
	// the payload is highly repetitive, so compression must win
	test.That(t, len(packed), test.ShouldBeLessThan, len(plain))
}

func TestMarshalEmptyPayload(t *testing.T) {
	msg := &Message{ID: "RoughOcTree-0", Resolution: 0.1, Binary: true}
	data, err := msg.Marshal(true)
	test.That(t, err, test.ShouldBeNil)

	got, err := Unmarshal(data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.ID, test.ShouldEqual, msg.ID)
	test.That(t, len(got.Data), test.ShouldEqual, 0)
}

func TestUnmarshalErrors(t *testing.T) {
	msg := sampleMessage()
	data, err := msg.Marshal(false)
	test.That(t, err, test.ShouldBeNil)

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte{}, data...)
		bad[0] = 'X'
		_, err := Unmarshal(bad)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "not a rough map message")
	})

	t.Run("unsupported version", func(t *testing.T) {
		bad := append([]byte{}, data...)
		bad[4] = 99
		_, err := Unmarshal(bad)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "version")
	})

	t.Run("payload corruption is detected", func(t *testing.T) {
		bad := append([]byte{}, data...)
		bad[len(bad)-1] ^= 0xff
		_, err := Unmarshal(bad)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "checksum mismatch")
	})

	t.Run("truncated payload", func(t *testing.T) {
		_, err := Unmarshal(data[:len(data)-10])
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("truncated header", func(t *testing.T) {
		_, err := Unmarshal(data[:3])
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Unmarshal(nil)
		test.That(t, err, test.ShouldNotBeNil)
	})
}
