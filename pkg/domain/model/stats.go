package model

// GraphStats is a head count of one user's graph
type GraphStats struct {
	Entities      int
	AliasGroups   int
	Relationships int
}
