package domain

import "time"

// EntryStatus indicates the state of a journal entry.
type EntryStatus string

const (
	Posted   EntryStatus = "POSTED"
	Reversed EntryStatus = "REVERSED"
)

// EntrySourceManual marks entries created directly by a user rather than
// ingested from an external service.
const EntrySourceManual = "MANUAL"

// JournalEntry represents a single, balanced financial fact composed of at
// least two posting lines. Entries are append-only: corrections are new
// reversing entries, never updates.
type JournalEntry struct {
	EntryID          string        `json:"entryID"`                    // Primary Key (UUID)
	OwnerID          string        `json:"ownerID"`                    // Owning user
	EntryDate        time.Time     `json:"entryDate"`                  // Date the financial fact occurred
	Description      string        `json:"description"`                //
	Reference        string        `json:"reference"`                  // Optional external reference
	Source           string        `json:"source"`                     // MANUAL or originating service name
	Status           EntryStatus   `json:"status"`                     // Default: Posted
	OriginalEntryID  *string       `json:"originalEntryID,omitempty"`  // Set on a reversing entry
	ReversingEntryID *string       `json:"reversingEntryID,omitempty"` // Set on a reversed entry
	Lines            []PostingLine `json:"lines,omitempty"`            // Often loaded separately
	AuditFields
}
