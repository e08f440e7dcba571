package pgvector

import "github.com/zoobzio/sift"

// functionFor maps a configured distance metric to its pgvector function.
// Unknown metrics fall back to L2.
func functionFor(metric sift.DistanceMetric) Function {
	switch metric {
	case sift.DistanceCosine:
		return Cosine
	case sift.DistanceInnerProduct:
		return NegInnerProduct
	default:
		return L2
	}
}
