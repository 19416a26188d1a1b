package ui

import (
	"sync"

	"github.com/cymbal-labs/searchdemo/internal/state"
)

// CommitKey is the key that re-commits the query text.
const CommitKey = "Enter"

// QueryInput is the free-text query field. Every edit is written straight into
// the store; it never starts a search.
type QueryInput struct {
	mu    sync.Mutex
	store *state.Store
	draft string
}

// NewQueryInput binds an input to store, seeded with the store's current query.
func NewQueryInput(store *state.Store) *QueryInput {
	return &QueryInput{store: store, draft: store.Query()}
}

// Value returns the local draft.
func (q *QueryInput) Value() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draft
}

// Change records an edit and publishes it to the store.
func (q *QueryInput) Change(text string) {
	q.mu.Lock()
	q.draft = text
	q.mu.Unlock()

	q.store.SetQuery(text)
}

// Key handles a key press. The commit key re-writes the draft into the store
// and returns true, meaning default handling of the key must be suppressed.
func (q *QueryInput) Key(key string) bool {
	if key != CommitKey {
		return false
	}

	q.mu.Lock()
	draft := q.draft
	q.mu.Unlock()

	q.store.SetQuery(draft)
	return true
}
