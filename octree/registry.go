package octree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// treeTypeName is the base identifier this tree serializes under. The full
// identifier carries a stairs flag and the bin count so a loader can
// reconstruct the codec configuration from the identifier alone, e.g.
// "RoughOcTree-S-16" or "RoughOcTree-8".
const treeTypeName = "RoughOcTree"

// TypeID returns the full tree-type identifier for this tree's
// configuration.
func (t *RoughTree) TypeID() string {
	if t.stairsEnabled {
		return fmt.Sprintf("%s-S-%d", treeTypeName, t.numBins)
	}
	return fmt.Sprintf("%s-%d", treeTypeName, t.numBins)
}

// TreeFactory builds an empty tree of a registered type.
type TreeFactory func(resolution float64, logger golog.Logger) (*RoughTree, error)

var treeTypes = map[string]TreeFactory{}

// RegisterTreeType registers a factory under a base type name. Registrations
// happen at process start; later calls for the same name overwrite.
func RegisterTreeType(name string, factory TreeFactory) {
	treeTypes[name] = factory
}

func init() {
	RegisterTreeType(treeTypeName, New)
}

// CreateTree builds an empty tree from a full type identifier, restoring the
// stairs flag and bin count embedded in it.
func CreateTree(id string, resolution float64, logger golog.Logger) (*RoughTree, error) {
	name, stairs, bins, err := parseTypeID(id)
	if err != nil {
		return nil, err
	}
	factory, ok := treeTypes[name]
	if !ok {
		return nil, errors.Errorf("unregistered tree type %q", name)
	}
	t, err := factory(resolution, logger)
	if err != nil {
		return nil, err
	}
	t.SetStairsEnabled(stairs)
	if err := t.SetNumBins(bins); err != nil {
		return nil, errors.Wrapf(err, "tree type %q", id)
	}
	return t, nil
}

func parseTypeID(id string) (name string, stairs bool, bins uint, err error) {
	for registered := range treeTypes {
		var suffix string
		switch {
		case id == registered:
			return registered, true, DefaultNumBins, nil
		case strings.HasPrefix(id, registered+"-S-"):
			stairs = true
			suffix = id[len(registered)+3:]
		case strings.HasPrefix(id, registered+"-"):
			suffix = id[len(registered)+1:]
		default:
			continue
		}
		n, convErr := strconv.ParseUint(suffix, 10, 32)
		if convErr != nil {
			return "", false, 0, errors.Wrapf(convErr, "malformed bin count in tree type %q", id)
		}
		return registered, stairs, uint(n), nil
	}
	return "", false, 0, errors.Errorf("unknown tree type %q", id)
}
