package usecase

// FilterByRelevance is exported for testing
var FilterByRelevance = filterByRelevance

// ScoredEdge is exported for testing the relevance band
type ScoredEdge = scoredEdge

// ScoredEdgeAt builds a scored edge with a fixed distance for testing
func ScoredEdgeAt(distance float64) ScoredEdge {
	return ScoredEdge{distance: distance}
}

// Distances is exported for testing
func Distances(edges []ScoredEdge) []float64 {
	out := make([]float64, 0, len(edges))
	for _, edge := range edges {
		out = append(out, edge.distance)
	}
	return out
}
