package bim

import "sort"

// AnchorSet holds ids that may be referenced as a parent or door target
// without a matching vertex. They stand for space outside the modelled graph.
type AnchorSet map[string]struct{}

// DefaultAnchorIDs are the anchors recognised when none are configured.
var DefaultAnchorIDs = []string{"outside", "corridor"}

// NewAnchorSet builds an anchor set from ids. Empty ids are ignored.
func NewAnchorSet(ids ...string) AnchorSet {
	set := make(AnchorSet, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// DefaultAnchors returns a fresh set of DefaultAnchorIDs
func DefaultAnchors() AnchorSet {
	return NewAnchorSet(DefaultAnchorIDs...)
}

// Contains reports whether id is an external anchor
func (a AnchorSet) Contains(id string) bool {
	_, ok := a[id]
	return ok
}

// IDs returns the anchors in sorted order
func (a AnchorSet) IDs() []string {
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
