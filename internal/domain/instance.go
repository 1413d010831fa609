package domain

import (
	"fmt"
	"sort"
	"strings"
)

// State is the lifecycle state reported by the inventory for an instance.
type State string

const (
	StatePending      State = "pending"
	StateRunning      State = "running"
	StateStopping     State = "stopping"
	StateStopped      State = "stopped"
	StateShuttingDown State = "shutting-down"
	StateTerminated   State = "terminated"
)

// Instance is a compute instance as seen by the inventory.
//
// It is owned by the inventory backend. This tool only reads it and writes
// its tags; it never creates or destroys one.
type Instance struct {
	// ID is the provider identifier (ex: i-0123456789abcdef0).
	// It does not change during a run.
	ID string

	// Tags is the last known tag set. It is replaced on Refresh.
	Tags TagSet

	State State

	// PublicAddress and PrivateAddress are empty when the instance has none.
	PublicAddress  string
	PrivateAddress string
}

// IsRunning reports whether the instance may hold a slot.
func (i *Instance) IsRunning() bool {
	return i != nil && i.State == StateRunning
}

// Address returns the public or private address of the instance.
func (i *Instance) Address(public bool) string {
	if public {
		return i.PublicAddress
	}
	return i.PrivateAddress
}

func (i *Instance) String() string {
	if i == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s(%s)", i.ID, i.State)
}

// TagSet maps tag keys to values. Keys are unique and unordered.
type TagSet map[string]string

// Get returns the value for key, or def when the tag is absent or empty.
func (t TagSet) Get(key, def string) string {
	if v, ok := t[key]; ok && v != "" {
		return v
	}
	return def
}

// Has reports whether key is present with a non-empty value.
func (t TagSet) Has(key string) bool {
	return t.Get(key, "") != ""
}

// Clone returns an independent copy of the tag set.
func (t TagSet) Clone() TagSet {
	out := make(TagSet, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Merge overwrites t with every entry of other.
func (t TagSet) Merge(other TagSet) {
	for k, v := range other {
		t[k] = v
	}
}

// Matches reports whether every non-empty value of filter is present in t
// with the exact same value. Empty filter values are ignored.
func (t TagSet) Matches(filter TagSet) bool {
	for k, v := range filter {
		if v == "" {
			continue
		}
		if t[k] != v {
			return false
		}
	}
	return true
}

// Compact returns a copy of t without empty values.
func (t TagSet) Compact() TagSet {
	out := make(TagSet, len(t))
	for k, v := range t {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// String renders the tags as sorted key=value pairs, for logs.
func (t TagSet) String() string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+t[k])
	}
	return strings.Join(parts, ", ")
}
