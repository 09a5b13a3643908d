package model

// IngestReceipt summarizes what one statement ingestion did. Fragment
// processing is best-effort: a failing fragment increments Errors and the
// rest of the list still runs, so the receipt can show partial progress.
type IngestReceipt struct {
	Statement      string
	Fragments      int
	EdgesCreated   int
	EdgesExisting  int
	AliasesLinked  int
	ContextAppends int
	Errors         int
}
