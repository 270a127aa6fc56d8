package membership

import "slices"

// MemberSet is an immutable set of child ids.
//
// A *MemberSet is never modified after construction; Union returns a new set
// (or the receiver when nothing would change). The zero value and nil are
// both usable as the empty set.
type MemberSet struct {
	ids map[string]struct{}
}

// NewMemberSet builds a set from ids. Duplicates collapse.
func NewMemberSet(ids ...string) *MemberSet {
	s := &MemberSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Len returns the number of members.
func (s *MemberSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Has reports whether id is a member.
func (s *MemberSet) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// IDs returns the members in ascending order. The slice is a fresh copy.
func (s *MemberSet) IDs() []string {
	ids := make([]string, 0, s.Len())
	if s != nil {
		for id := range s.ids {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Equal reports whether both sets hold the same members.
func (s *MemberSet) Equal(o *MemberSet) bool {
	if s.Len() != o.Len() {
		return false
	}
	if s == nil || s == o {
		return true
	}
	for id := range s.ids {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// Union returns a set holding the members of s plus ids.
// Returns s itself when every id is already a member, including when ids is
// empty. Returns nil when s is nil and ids is empty.
func (s *MemberSet) Union(ids []string) *MemberSet {
	var next *MemberSet
	for _, id := range ids {
		if s.Has(id) || next.Has(id) {
			continue
		}
		if next == nil {
			next = s.clone(len(ids))
		}
		next.ids[id] = struct{}{}
	}
	if next == nil {
		return s
	}
	return next
}

// clone copies s into a new set with room for extra members.
func (s *MemberSet) clone(extra int) *MemberSet {
	next := &MemberSet{ids: make(map[string]struct{}, s.Len()+extra)}
	if s != nil {
		for id := range s.ids {
			next.ids[id] = struct{}{}
		}
	}
	return next
}
