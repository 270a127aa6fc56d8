package ir

import (
	"slices"

	"golang.org/x/text/unicode/norm"
)

// NonNFC returns the parent and child ids of ev that are not in Unicode
// NFC form, sorted and without duplicates.
//
// Ids are compared byte for byte everywhere, so "cafe\u0301" and
// "caf\u00e9" are different members. Producers that mix forms usually
// did not mean to. Callers use this to warn, never to rewrite ids.
func NonNFC(ev Event) []string {
	var ids []string
	check := func(id string) {
		if !norm.NFC.IsNormalString(id) {
			ids = append(ids, id)
		}
	}

	switch e := ev.(type) {
	case MemberAdded:
		check(e.ParentID)
		check(e.ChildID)
	case MembersAddedList:
		check(e.ParentID)
		for _, c := range e.Children {
			check(c.ID)
		}
	case MembersAddedMap:
		check(e.ParentID)
		for k := range e.Children {
			check(k)
		}
	case ParentPayloadReceived:
		check(e.ParentID)
		for _, it := range e.Payload.Items {
			check(it.ChildID)
		}
	}

	slices.Sort(ids)
	return slices.Compact(ids)
}
