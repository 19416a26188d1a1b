// Package state holds the shared, observable state of one client: the current
// query text and the last search response.
package state

import (
	"sync"

	"github.com/cymbal-labs/searchdemo/internal/search"
)

// ResponsePolicy decides which completed search may overwrite the response.
type ResponsePolicy string

const (
	// LastWriteWins lets whichever search resolves last set the response.
	LastWriteWins ResponsePolicy = "last-write-wins"

	// LatestSubmit drops responses that belong to a submit older than the most
	// recent one.
	LatestSubmit ResponsePolicy = "latest-submit"
)

// ParseResponsePolicy normalizes a configured policy name. Unknown or empty
// values select LastWriteWins.
func ParseResponsePolicy(value string) ResponsePolicy {
	if ResponsePolicy(value) == LatestSubmit {
		return LatestSubmit
	}
	return LastWriteWins
}

// Snapshot is an immutable view of the store taken right after a mutation.
type Snapshot struct {
	Query    string
	Response *search.SearchResponse
	Version  uint64
}

// Observer is notified after every mutation.
type Observer func(Snapshot)

// Store is the per-client state container. Setters replace values wholesale
// and notify every observer before returning. Observers run on the caller's
// goroutine, outside the store lock, in subscription order.
type Store struct {
	mu        sync.Mutex
	query     string
	response  *search.SearchResponse
	version   uint64
	ticket    uint64
	policy    ResponsePolicy
	nextID    int
	observers []subscription
}

type subscription struct {
	id int
	fn Observer

	// responseOnly skips query edits.
	responseOnly bool
}

// NewStore returns an empty store using policy for completed searches.
func NewStore(policy ResponsePolicy) *Store {
	if policy == "" {
		policy = LastWriteWins
	}
	return &Store{policy: policy}
}

// Policy returns the response policy in effect.
func (s *Store) Policy() ResponsePolicy {
	return s.policy
}

// Query returns the current query text.
func (s *Store) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Response returns the last response, or nil.
func (s *Store) Response() *search.SearchResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.response
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SetQuery replaces the query text. No validation is performed.
func (s *Store) SetQuery(query string) {
	s.mu.Lock()
	s.query = query
	s.version++
	snap, observers := s.snapshotLocked(), s.observersLocked(false)
	s.mu.Unlock()

	notify(observers, snap)
}

// SetResponse replaces the last response. nil marks an empty result.
func (s *Store) SetResponse(resp *search.SearchResponse) {
	s.mu.Lock()
	s.response = resp
	s.version++
	snap, observers := s.snapshotLocked(), s.observersLocked(true)
	s.mu.Unlock()

	notify(observers, snap)
}

// Begin issues the ticket for a new submit.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticket++
	return s.ticket
}

// SetResponseFor stores the response of the submit identified by ticket. Under
// LatestSubmit the write is skipped when a newer submit has begun; the return
// value reports whether the response was stored.
func (s *Store) SetResponseFor(ticket uint64, resp *search.SearchResponse) bool {
	s.mu.Lock()
	if s.policy == LatestSubmit && ticket < s.ticket {
		s.mu.Unlock()
		return false
	}
	s.response = resp
	s.version++
	snap, observers := s.snapshotLocked(), s.observersLocked(true)
	s.mu.Unlock()

	notify(observers, snap)
	return true
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) func() {
	return s.subscribe(fn, false)
}

// SubscribeResponse registers fn for response writes only. Query edits, one
// per keystroke, do not reach it; a write dropped by LatestSubmit is no write.
func (s *Store) SubscribeResponse(fn Observer) func() {
	return s.subscribe(fn, true)
}

func (s *Store) subscribe(fn Observer, responseOnly bool) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, subscription{id: id, fn: fn, responseOnly: responseOnly})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.observers {
			if sub.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Observers returns the number of registered observers.
func (s *Store) Observers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Query: s.query, Response: s.response, Version: s.version}
}

func (s *Store) observersLocked(responseWrite bool) []Observer {
	out := make([]Observer, 0, len(s.observers))
	for _, sub := range s.observers {
		if sub.responseOnly && !responseWrite {
			continue
		}
		out = append(out, sub.fn)
	}
	return out
}

func notify(observers []Observer, snap Snapshot) {
	for _, fn := range observers {
		fn(snap)
	}
}
