package batch

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Tracker owns the lifecycle state of every item in a batch. Transitions are
// atomic and visible to observers before the triggering call returns. Invalid
// transitions are programming defects and panic rather than returning errors.
type Tracker struct {
	mu    sync.Mutex
	order []string
	items map[string]*Item
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{items: make(map[string]*Item)}
}

// Create registers a new pending item for the given source path and returns a
// snapshot of it.
func (t *Tracker) Create(sourcePath string) Item {
	t.mu.Lock()
	defer t.mu.Unlock()

	item := &Item{
		ID:         uuid.NewString(),
		SourcePath: sourcePath,
		State:      StatePending,
	}
	t.order = append(t.order, item.ID)
	t.items[item.ID] = item
	return *item
}

// MarkActive transitions a pending item to active.
func (t *Tracker) MarkActive(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	item := t.mustGet(id)
	if item.State != StatePending {
		panic(fmt.Sprintf("batch: MarkActive on item %s in state %s", id, item.State))
	}
	item.State = StateActive
}

// MarkDone transitions an active item to done and records its outcome.
func (t *Tracker) MarkDone(id string, outcome Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	item := t.mustGet(id)
	if item.State != StateActive {
		panic(fmt.Sprintf("batch: MarkDone on item %s in state %s", id, item.State))
	}
	item.State = StateDone
	item.Outcome = &outcome
}

// MarkError transitions an active item to error and records the failure.
func (t *Tracker) MarkError(id string, failure string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	item := t.mustGet(id)
	if item.State != StateActive {
		panic(fmt.Sprintf("batch: MarkError on item %s in state %s", id, item.State))
	}
	item.State = StateError
	item.Failure = failure
}

// Get returns a snapshot of the item with the given id.
func (t *Tracker) Get(id string) (Item, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	item, ok := t.items[id]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// Items returns snapshots of all items in creation order.
func (t *Tracker) Items() []*Item {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*Item, 0, len(t.order))
	for _, id := range t.order {
		copied := *t.items[id]
		out = append(out, &copied)
	}
	return out
}

// Len returns the number of tracked items.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

// CountByState tallies items per lifecycle state.
func (t *Tracker) CountByState() map[State]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts := make(map[State]int, 4)
	for _, item := range t.items {
		counts[item.State]++
	}
	return counts
}

func (t *Tracker) mustGet(id string) *Item {
	item, ok := t.items[id]
	if !ok {
		panic(fmt.Sprintf("batch: unknown item id %s", id))
	}
	return item
}
