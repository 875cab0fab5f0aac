// Package derive computes the relationships implied by a validated element
// set and materializes the set in a graph store.
package derive

import (
	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/registry"
)

// Presence reports whether a vertex is materialized in the store. Edges
// touching an absent vertex are skipped.
type Presence func(id string) bool

// Skip records an edge that was not derived because an endpoint is absent.
type Skip struct {
	Key     bim.EdgeKey `json:"key"`
	Missing string      `json:"missing"`
}

// Result is the output of Derive
type Result struct {
	Edges   []bim.Relationship
	Skipped []Skip
}

// Counts returns the number of derived edges per kind
func (r Result) Counts() map[bim.RelationshipKind]int {
	counts := make(map[bim.RelationshipKind]int, len(bim.RelationshipKinds))
	for _, rel := range r.Edges {
		counts[rel.Kind]++
	}
	return counts
}

// Derive returns the edges implied by set, element by element in input
// order. For each element the rules apply in order PART_OF/CONTAINS,
// HAS_OPENING, CONNECTS_TO. A nil present treats the members of set as
// materialized and anchors as absent.
//
// Derive never fails and never returns the same edge key twice.
func Derive(set *registry.ValidatedSet, present Presence) Result {
	if present == nil {
		present = set.Has
	}

	d := deriver{present: present, seen: make(map[bim.EdgeKey]struct{})}
	set.Each(d.element)
	return d.result
}

type deriver struct {
	present Presence
	seen    map[bim.EdgeKey]struct{}
	result  Result
}

func (d *deriver) element(e *bim.Element) {
	if e.HasParent() {
		d.pair(e.ID, e.ParentID, nil,
			bim.Relationship{From: e.ID, Kind: bim.PartOf, To: e.ParentID},
			bim.Relationship{From: e.ParentID, Kind: bim.Contains, To: e.ID})

		if e.Type.IsOpening() {
			d.pair(e.ParentID, e.ID, nil,
				bim.Relationship{From: e.ParentID, Kind: bim.HasOpening, To: e.ID})
		}
	}

	if e.Type == bim.TypeDoor && len(e.Connects) == 2 {
		a, b := e.Connects[0], e.Connects[1]
		via := bim.Properties{bim.ViaDoorProperty: bim.StringValue(e.ID)}
		d.pair(a, b, via,
			bim.Relationship{From: a, Kind: bim.ConnectsTo, To: b},
			bim.Relationship{From: b, Kind: bim.ConnectsTo, To: a})
	}
}

// pair emits rels when both x and y are present and skips all of them
// otherwise.
func (d *deriver) pair(x, y string, props bim.Properties, rels ...bim.Relationship) {
	missing := ""
	switch {
	case !d.present(x):
		missing = x
	case !d.present(y):
		missing = y
	}

	for _, rel := range rels {
		key := rel.Key()
		if missing != "" {
			d.result.Skipped = append(d.result.Skipped, Skip{Key: key, Missing: missing})
			continue
		}
		if _, dup := d.seen[key]; dup {
			continue
		}
		d.seen[key] = struct{}{}
		rel.Properties = props.Clone()
		d.result.Edges = append(d.result.Edges, rel)
	}
}
