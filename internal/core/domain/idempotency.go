package domain

import "time"

// IdempotencyRecord links an external event identifier to the journal entry it
// produced. One record exists per distinct event ID; it is written atomically
// with the entry and never updated.
type IdempotencyRecord struct {
	EventID   string    `json:"eventID"`   // Producer-supplied, globally unique
	EntryID   string    `json:"entryID"`   // FK -> JournalEntry.entryID
	OwnerID   string    `json:"ownerID"`   //
	AppliedAt time.Time `json:"appliedAt"` //
}
