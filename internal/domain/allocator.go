package domain

import (
	"fmt"
	"sort"
	"strconv"
)

const (
	// DefaultNumber is assumed for an instance that was never tagged.
	DefaultNumber = "0001"

	// UnknownNumber stands for a peer without a number tag. It sorts last
	// and is outside the allocation range, so it never frees a slot.
	UnknownNumber = "9999"

	MinNumber = 1
	MaxNumber = 9998
)

// Allocation is the outcome of the number allocator.
type Allocation struct {
	Number     string
	Reassigned bool
}

// FormatNumber renders n as a 4-digit zero-padded slot number.
func FormatNumber(n int) string {
	return fmt.Sprintf("%04d", n)
}

// NormalizeNumber returns the 4-digit form of a number tag. An empty or
// non-numeric value maps to UnknownNumber.
func NormalizeNumber(raw string) string {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 9999 {
		return UnknownNumber
	}
	return FormatNumber(n)
}

// PeerNumber returns the normalized number tag of a peer.
func PeerNumber(inst *Instance) string {
	return NormalizeNumber(inst.Tags.Get(TagNumber, ""))
}

// ValidNumber reports whether raw is a 4-digit slot number in
// MinNumber..MaxNumber, exactly as the allocator writes it.
func ValidNumber(raw string) bool {
	n, err := strconv.Atoi(raw)
	if err != nil || n < MinNumber || n > MaxNumber {
		return false
	}
	return FormatNumber(n) == raw
}

// NeedsReassignment reports whether an instance must pick a new number:
// another running instance holds the same slot, its number tag is missing
// or not a valid slot, or one of the derived hostname tags has never been
// written.
func NeedsReassignment(tags TagSet, contenders int) bool {
	if contenders > 0 {
		return true
	}
	if !ValidNumber(tags.Get(TagNumber, "")) {
		return true
	}
	return !tags.Has(TagHostname) || !tags.Has(TagPublicHostname) || !tags.Has(TagPrivateHostname)
}

// LowestAvailable scans MinNumber..MaxNumber and returns the first slot not
// present in occupied.
func LowestAvailable(occupied []string) (string, error) {
	taken := make(map[string]struct{}, len(occupied))
	for _, n := range occupied {
		taken[NormalizeNumber(n)] = struct{}{}
	}

	for i := MinNumber; i <= MaxNumber; i++ {
		candidate := FormatNumber(i)
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: all %d slots in use", ErrExhaustedAllocation, MaxNumber-MinNumber+1)
}

// Allocate keeps current unless reassign is set, in which case it returns
// the lowest slot not held by a peer.
func Allocate(current string, peers []string, reassign bool) (Allocation, error) {
	if current == "" {
		current = DefaultNumber
	}
	if !reassign {
		return Allocation{Number: current}, nil
	}

	number, err := LowestAvailable(peers)
	if err != nil {
		return Allocation{}, err
	}
	return Allocation{Number: number, Reassigned: true}, nil
}

// SortByNumber orders instances by ascending slot number. Instances without
// a number come last; ties are broken by instance ID.
func SortByNumber(instances []*Instance) {
	sort.SliceStable(instances, func(i, j int) bool {
		ni, nj := PeerNumber(instances[i]), PeerNumber(instances[j])
		if ni != nj {
			return ni < nj
		}
		return instances[i].ID < instances[j].ID
	})
}
