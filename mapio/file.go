package mapio

import (
	"io"
	"os"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/roughmap/octree"
)

// WriteToFile saves a tree to disk as a compressed binary map message.
func WriteToFile(t *octree.RoughTree, fn string) (err error) {
	msg, err := ToBinaryMessage(t)
	if err != nil {
		return err
	}
	data, err := msg.Marshal(true)
	if err != nil {
		return err
	}

	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	_, err = f.Write(data)
	return err
}

// NewFromFile loads a tree saved by WriteToFile.
func NewFromFile(fn string, logger golog.Logger) (*octree.RoughTree, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	msg, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return FromMessage(msg, logger)
}
