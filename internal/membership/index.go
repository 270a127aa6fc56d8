package membership

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/roach88/roster/internal/ir"
)

// Index maps a parent id to the set of child ids that belong to it.
//
// An *Index is immutable once returned. Parents mapped to an empty set are
// never stored; an absent parent and an empty membership are the same thing.
// A nil *Index behaves as the empty index.
type Index struct {
	sets map[string]*MemberSet
}

// Empty returns a new index with no parents.
func Empty() *Index {
	return &Index{sets: make(map[string]*MemberSet)}
}

// NewIndex builds an index from parent -> member ids.
// Parents with no ids are omitted.
func NewIndex(m map[string][]string) *Index {
	idx := &Index{sets: make(map[string]*MemberSet, len(m))}
	for parent, ids := range m {
		if len(ids) == 0 {
			continue
		}
		idx.sets[parent] = NewMemberSet(ids...)
	}
	return idx
}

// Get returns the member set for parent, or nil when the parent is absent.
func (x *Index) Get(parent string) *MemberSet {
	if x == nil {
		return nil
	}
	return x.sets[parent]
}

// Len returns the number of parents.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.sets)
}

// Parents returns the parent ids in ascending order.
func (x *Index) Parents() []string {
	parents := make([]string, 0, x.Len())
	if x != nil {
		for p := range x.sets {
			parents = append(parents, p)
		}
	}
	slices.Sort(parents)
	return parents
}

// Equal reports whether both indexes hold the same parents with the same
// members. Identity of the member sets is not considered.
func (x *Index) Equal(o *Index) bool {
	if x.Len() != o.Len() {
		return false
	}
	if x == nil || x == o {
		return true
	}
	for parent, set := range x.sets {
		other, ok := o.sets[parent]
		if !ok || !set.Equal(other) {
			return false
		}
	}
	return true
}

// ToMap returns parent -> sorted member ids. The result is a fresh copy.
func (x *Index) ToMap() map[string][]string {
	m := make(map[string][]string, x.Len())
	if x != nil {
		for parent, set := range x.sets {
			m[parent] = set.IDs()
		}
	}
	return m
}

// Digest returns the content hash of the index.
// Equal indexes always have equal digests.
func (x *Index) Digest() (string, error) {
	return ir.IndexDigest(x.ToMap())
}

// MarshalJSON encodes the index as canonical JSON: parents sorted, members
// sorted.
func (x *Index) MarshalJSON() ([]byte, error) {
	return ir.MarshalCanonical(x.ToMap())
}

// UnmarshalJSON decodes an object of parent -> member id arrays.
func (x *Index) UnmarshalJSON(data []byte) error {
	var m map[string][]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("unmarshal index: %w", err)
	}
	*x = *NewIndex(m)
	return nil
}

// with returns a copy of x where parent is bound to set. Every other parent
// keeps its *MemberSet.
func (x *Index) with(parent string, set *MemberSet) *Index {
	next := &Index{sets: make(map[string]*MemberSet, x.Len()+1)}
	if x != nil {
		for p, s := range x.sets {
			next.sets[p] = s
		}
	}
	next.sets[parent] = set
	return next
}

// ChangedParents returns, in ascending order, the parents whose member set
// differs by identity between prev and next, including parents present in
// only one of them.
func ChangedParents(prev, next *Index) []string {
	if prev == next {
		return []string{}
	}
	var changed []string
	for _, parent := range next.Parents() {
		if prev.Get(parent) != next.Get(parent) {
			changed = append(changed, parent)
		}
	}
	for _, parent := range prev.Parents() {
		if next.Get(parent) == nil {
			changed = append(changed, parent)
		}
	}
	slices.Sort(changed)
	if changed == nil {
		changed = []string{}
	}
	return changed
}
