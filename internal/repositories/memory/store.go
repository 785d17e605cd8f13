package memory

import (
	"sync"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
	portsrepo "github.com/perfinapp/ledger_engine/internal/core/ports/repositories"
)

// Store is an in-memory implementation of every repository facade. It exists
// for tests and for running the service without a database. A single RWMutex
// guards all maps, so every commit is trivially atomic and per-account
// serialization holds by construction.
type Store struct {
	mu sync.RWMutex

	accounts     map[string]domain.Account
	accountOrder []string // creation order

	entries    map[string]domain.JournalEntry
	entryOrder []string

	linesByEntry   map[string][]domain.PostingLine
	linesByAccount map[string][]domain.PostingLine

	idempotency map[string]domain.IdempotencyRecord
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts:       make(map[string]domain.Account),
		entries:        make(map[string]domain.JournalEntry),
		linesByEntry:   make(map[string][]domain.PostingLine),
		linesByAccount: make(map[string][]domain.PostingLine),
		idempotency:    make(map[string]domain.IdempotencyRecord),
	}
}

// NewRepositoryProvider wires a single Store behind all repository facades.
func NewRepositoryProvider() portsrepo.RepositoryProvider {
	s := NewStore()
	return portsrepo.RepositoryProvider{
		AccountRepo:   s,
		JournalRepo:   s,
		ReportingRepo: s,
	}
}
