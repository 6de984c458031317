package raffle

import (
	"fmt"
	"sync"
	"time"
)

// Entry is one accepted submission. It is never mutated after creation.
type Entry struct {
	ID          int64             `json:"id"`
	DedupKey    string            `json:"dedup_key"`
	Values      map[string]string `json:"values"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// Ledger is the append-only, deduplicated entry store of one event.
// Entry ids are 1..Count() with no gaps.
type Ledger struct {
	mu       sync.RWMutex
	entries  []Entry
	byKey    map[string]int64
	capacity int // 0 means unlimited
}

func NewLedger(capacity *int) (*Ledger, error) {
	l := &Ledger{byKey: make(map[string]int64)}
	if err := l.SetCapacity(capacity); err != nil {
		return nil, err
	}
	return l, nil
}

// RestoreLedger rebuilds a ledger from stored entries, which must be
// ordered by id starting at 1.
func RestoreLedger(capacity *int, entries []Entry) (*Ledger, error) {
	l := &Ledger{byKey: make(map[string]int64, len(entries))}
	for i, e := range entries {
		if e.ID != int64(i+1) {
			return nil, fmt.Errorf("ledger gap: expected entry #%d, found #%d", i+1, e.ID)
		}
		if prior, ok := l.byKey[e.DedupKey]; ok {
			return nil, fmt.Errorf("ledger corrupt: entries #%d and #%d share dedup key %q", prior, e.ID, e.DedupKey)
		}
		l.byKey[e.DedupKey] = e.ID
		l.entries = append(l.entries, e)
	}
	if capacity != nil {
		l.capacity = *capacity
	}
	return l, nil
}

// Submit validates raw against schema and appends the entry atomically.
func (l *Ledger) Submit(schema FieldSchema, raw map[string]string, dedupKeyValue string, at time.Time) (Entry, error) {
	v, err := schema.Validate(raw)
	if err != nil {
		return Entry{}, err
	}
	key, err := resolveDedupKey(v, dedupKeyValue)
	if err != nil {
		return Entry{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.admit(key, v.Values, at)
	if err != nil {
		return Entry{}, err
	}
	l.append(e)
	return e, nil
}

// Prepare runs the duplicate and capacity checks and returns the entry that
// Commit would append, without changing the ledger. Callers that persist
// the entry in between must serialise Prepare/Commit pairs themselves.
func (l *Ledger) Prepare(v ValidatedEntry, dedupKeyValue string, at time.Time) (Entry, error) {
	key, err := resolveDedupKey(v, dedupKeyValue)
	if err != nil {
		return Entry{}, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.admit(key, v.Values, at)
}

// Commit appends an entry produced by Prepare.
func (l *Ledger) Commit(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.ID != int64(len(l.entries)+1) {
		return fmt.Errorf("stale entry: id %d, next id is %d", e.ID, len(l.entries)+1)
	}
	if _, err := l.admit(e.DedupKey, e.Values, e.SubmittedAt); err != nil {
		return err
	}
	l.append(e)
	return nil
}

func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// All returns the entries ordered by id.
func (l *Ledger) All() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Each calls fn for each entry in id order until fn returns false.
func (l *Ledger) Each(fn func(Entry) bool) {
	for _, e := range l.All() {
		if !fn(e) {
			return
		}
	}
}

func (l *Ledger) Lookup(dedupKey string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byKey[NormalizeDedupKey(dedupKey)]
	if !ok {
		return Entry{}, false
	}
	return l.entries[id-1], true
}

// Capacity returns the limit and whether one is set.
func (l *Ledger) Capacity() (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.capacity, l.capacity > 0
}

// SetCapacity sets the entry limit; nil removes it. A limit below the
// current entry count is rejected.
func (l *Ledger) SetCapacity(limit *int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit == nil {
		l.capacity = 0
		return nil
	}
	if *limit < 1 {
		return &CapacityError{Requested: limit, Entries: len(l.entries), Reason: "capacity must be at least 1"}
	}
	if *limit < len(l.entries) {
		return &CapacityError{
			Requested: limit,
			Entries:   len(l.entries),
			Reason:    fmt.Sprintf("%d entries already exist", len(l.entries)),
		}
	}
	l.capacity = *limit
	return nil
}

// admit must be called with l.mu held.
func (l *Ledger) admit(key string, values map[string]string, at time.Time) (Entry, error) {
	if prior, ok := l.byKey[key]; ok {
		return Entry{}, &DuplicateEntryError{DedupKey: key, PriorEntryID: prior}
	}
	if l.capacity > 0 && len(l.entries) >= l.capacity {
		return Entry{}, &CapacityExceededError{Capacity: l.capacity}
	}
	return Entry{
		ID:          int64(len(l.entries) + 1),
		DedupKey:    key,
		Values:      values,
		SubmittedAt: at,
	}, nil
}

func (l *Ledger) append(e Entry) {
	l.entries = append(l.entries, e)
	l.byKey[e.DedupKey] = e.ID
}

func resolveDedupKey(v ValidatedEntry, explicit string) (string, error) {
	key := NormalizeDedupKey(explicit)
	if key == "" {
		key = v.DedupKey
	}
	if key == "" {
		return "", &ValidationError{Problems: []FieldProblem{{
			Field: "dedup_key", Code: ProblemMissingDedupKey, Message: "a participant key is required",
		}}}
	}
	return key, nil
}
