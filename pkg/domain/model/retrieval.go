package model

// NoInformationMessage is the fixed answer for the defined terminal states:
// no anchor entity, or no edge surviving the relevance filter. It is a
// result, not an error.
const NoInformationMessage = "I don't have any information about that."

const (
	// DefaultMaxHops bounds the breadth-first walk from the anchor entity
	DefaultMaxHops = 4

	// DefaultDistanceCeiling is the coarse absolute cosine-distance cutoff
	// applied before the adaptive mean+sigma band
	DefaultDistanceCeiling = 0.8
)

// Answer is the outcome of one retrieval request
type Answer struct {
	Text          string
	NoInformation bool
	Trace         *RetrievalTrace
}

// RetrievalTrace records what a retrieval request resolved, walked, and
// kept. It is returned to the caller for audit or history logging; this
// engine never persists it.
type RetrievalTrace struct {
	EntityMentions     []string
	AnchorEntity       string
	RelationshipPhrase string
	EdgesWalked        int
	EdgesKept          int
	Statements         []string
	Searched           string
}
