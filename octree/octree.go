// Package octree implements a sparse occupancy octree for rough-terrain
// mapping. Each node carries an occupancy estimate plus two auxiliary
// per-voxel attributes, a continuous roughness value and a stairs
// classification in log-odds form, and a small agent ownership tag used when
// maps from multiple contributing agents are merged.
//
// The tree supports incremental key-addressed updates with pruning of uniform
// subtrees, a bottom-up aggregation pass for inner nodes, and two compact
// bit-packed binary wire formats with configurable quantization.
package octree

import "math"

// BinaryEncodingMode selects the wire format used by WriteBinary/ReadBinary.
type BinaryEncodingMode int

// The two supported bit-packed encodings. Thresholding stores a single
// binarized roughness bit per occupied leaf; Binning quantizes roughness into
// a configurable number of bins and additionally stores a stairs bit.
const (
	ThresholdingMode = BinaryEncodingMode(iota)
	BinningMode
)

// Defaults match the calibrated values of the mapping stack this package was
// built for. Clamping bounds the confidence growth of repeated observations.
const (
	DefaultMaxDepth       = 16
	DefaultNumBins        = 16
	DefaultRoughThreshold = 0.99

	defaultClampMin = -2.0
	defaultClampMax = 3.5

	// Log-odds deltas applied by UpdateStairs for a positive/negative
	// stairs observation.
	stairHitLogOdds  = 0.24
	stairMissLogOdds = -0.40546510810816444 // logOdds(0.4)
)

// LogOdds converts a probability into its log-odds representation.
func LogOdds(p float64) float32 {
	return float32(math.Log(p / (1 - p)))
}

// Probability converts a log-odds value back into a probability.
func Probability(logOdds float32) float64 {
	return 1.0 - (1.0 / (1.0 + math.Exp(float64(logOdds))))
}
