package content

import "github.com/google/uuid"

// Insight is the in-memory view of a generated insight artifact, shared
// between the scrape stage (which produces it) and the script/pill stages
// (which consume it via the event bus).
type Insight struct {
	ID       uuid.UUID
	Key      string
	Title    string
	Markdown string
}
