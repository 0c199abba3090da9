package spa

import (
	"slices"
	"sync"
)

// A Subscriber is a consumer registered with a producer together with the
// rate at which it wants deliveries.
type Subscriber struct {
	Address LogicalAddress

	// DeliveryRateDivisor D asks for one delivery every D publish ticks. Zero
	// and one both mean every tick.
	DeliveryRateDivisor uint16
}

// EligibleAt reports whether the subscriber is due on the given publish
// cycle.
func (s Subscriber) EligibleAt(cycle uint64) bool {
	divisor := uint64(max(s.DeliveryRateDivisor, 1))
	return cycle%divisor == 0
}

// DuplicatePolicy decides what happens when an address subscribes twice.
type DuplicatePolicy int

const (
	// RejectDuplicates keeps the first entry and ignores later ones,
	// including their divisor.
	RejectDuplicates DuplicatePolicy = iota

	// AllowDuplicates appends every request as its own entry.
	AllowDuplicates
)

// SubscriberRegistry is an insertion-ordered list of subscribers. All methods
// are safe for concurrent use.
type SubscriberRegistry struct {
	lock        sync.Mutex
	policy      DuplicatePolicy
	subscribers []Subscriber
}

// NewSubscriberRegistry creates an empty registry.
func NewSubscriberRegistry(policy DuplicatePolicy) *SubscriberRegistry {
	return &SubscriberRegistry{
		policy:      policy,
		subscribers: make([]Subscriber, 0, 8),
	}
}

// Add inserts a subscriber. Under RejectDuplicates it returns false and
// leaves the registry unchanged when the address is already present.
func (r *SubscriberRegistry) Add(addr LogicalAddress, divisor uint16) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.policy == RejectDuplicates && r.indexOf(addr) >= 0 {
		return false
	}

	r.subscribers = append(r.subscribers, Subscriber{
		Address:             addr,
		DeliveryRateDivisor: divisor,
	})

	return true
}

// Snapshot returns a copy of the subscribers in insertion order.
func (r *SubscriberRegistry) Snapshot() []Subscriber {
	r.lock.Lock()
	defer r.lock.Unlock()

	return slices.Clone(r.subscribers)
}

// Sorted returns a copy of the subscribers ordered by address.
func (r *SubscriberRegistry) Sorted() []Subscriber {
	subs := r.Snapshot()
	slices.SortStableFunc(subs, func(a, b Subscriber) int {
		return a.Address.Compare(b.Address)
	})

	return subs
}

// Len returns the number of entries.
func (r *SubscriberRegistry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.subscribers)
}

// Contains reports whether addr has at least one entry.
func (r *SubscriberRegistry) Contains(addr LogicalAddress) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.indexOf(addr) >= 0
}

func (r *SubscriberRegistry) indexOf(addr LogicalAddress) int {
	return slices.IndexFunc(r.subscribers, func(s Subscriber) bool {
		return s.Address == addr
	})
}
