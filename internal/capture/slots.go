package capture

import (
	"sort"

	"github.com/glimpse/glimpse/pkg/screen"
)

// Slot holds the last persisted-or-initial frame of one monitor
type Slot struct {
	Index    int
	Baseline screen.Frame
}

// SlotStore maps monitor indices to their baselines. It is owned by a single
// Loop and is not safe for concurrent use.
type SlotStore struct {
	slots map[int]*Slot
}

func NewSlotStore() *SlotStore {
	return &SlotStore{slots: make(map[int]*Slot)}
}

// Get returns the slot for index
func (s *SlotStore) Get(index int) (*Slot, bool) {
	slot, ok := s.slots[index]
	return slot, ok
}

// Create registers frame as the first baseline of its monitor
func (s *SlotStore) Create(frame screen.Frame) *Slot {
	slot := &Slot{Index: frame.Index, Baseline: frame}
	s.slots[frame.Index] = slot
	return slot
}

// Replace swaps in a new baseline for an existing slot
func (s *SlotStore) Replace(frame screen.Frame) {
	if slot, ok := s.slots[frame.Index]; ok {
		slot.Baseline = frame
	}
}

// Prune drops every slot whose index is not in seen and returns the dropped
// indices in ascending order
func (s *SlotStore) Prune(seen map[int]bool) []int {
	var dropped []int
	for idx := range s.slots {
		if !seen[idx] {
			dropped = append(dropped, idx)
		}
	}
	sort.Ints(dropped)
	for _, idx := range dropped {
		delete(s.slots, idx)
	}
	return dropped
}

func (s *SlotStore) Len() int {
	return len(s.slots)
}

// Indices returns the known monitor indices in ascending order
func (s *SlotStore) Indices() []int {
	out := make([]int, 0, len(s.slots))
	for idx := range s.slots {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
