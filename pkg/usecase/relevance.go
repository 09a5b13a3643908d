package usecase

import "math"

// filterByRelevance separates relevant edges from noise in two passes.
// First the coarse absolute ceiling discards edges that are plainly
// unrelated. Then, over the remainder, edges within one standard deviation
// above the mean distance survive. The band self-calibrates: a tight
// cluster keeps nearly everything, a wide spread keeps only the locally
// best group, which a fixed similarity threshold cannot do across candidate
// sets that cluster differently.
func filterByRelevance(edges []scoredEdge, ceiling float64) []scoredEdge {
	within := make([]scoredEdge, 0, len(edges))
	for _, edge := range edges {
		if edge.distance <= ceiling {
			within = append(within, edge)
		}
	}
	if len(within) == 0 {
		return nil
	}

	cutoff := meanDistance(within) + stddevDistance(within)

	kept := make([]scoredEdge, 0, len(within))
	for _, edge := range within {
		if edge.distance <= cutoff {
			kept = append(kept, edge)
		}
	}

	return kept
}

func meanDistance(edges []scoredEdge) float64 {
	var sum float64
	for _, edge := range edges {
		sum += edge.distance
	}
	return sum / float64(len(edges))
}

// stddevDistance is the population standard deviation of the distances
func stddevDistance(edges []scoredEdge) float64 {
	mean := meanDistance(edges)

	var sum float64
	for _, edge := range edges {
		diff := edge.distance - mean
		sum += diff * diff
	}

	return math.Sqrt(sum / float64(len(edges)))
}
