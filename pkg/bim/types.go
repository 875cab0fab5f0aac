package bim

import "fmt"

// ElementType is the discriminant of a building element.
type ElementType string

const (
	TypeProject  ElementType = "Project"
	TypeSite     ElementType = "Site"
	TypeBuilding ElementType = "Building"
	TypeFloor    ElementType = "Floor"
	TypeRoom     ElementType = "Room"
	TypeDoor     ElementType = "Door"
	TypeWindow   ElementType = "Window"
)

// ElementTypes lists every element type from the top of the hierarchy down.
var ElementTypes = []ElementType{
	TypeProject,
	TypeSite,
	TypeBuilding,
	TypeFloor,
	TypeRoom,
	TypeDoor,
	TypeWindow,
}

// ParseElementType converts a string to an ElementType
func ParseElementType(s string) (ElementType, error) {
	for _, t := range ElementTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown element type %q", s)
}

// Valid reports whether t is one of the known element types
func (t ElementType) Valid() bool {
	_, err := ParseElementType(string(t))
	return err == nil
}

// IsOpening reports whether elements of this type sit in a wall (doors and windows).
func (t ElementType) IsOpening() bool {
	return t == TypeDoor || t == TypeWindow
}

// RelationshipKind tags a directed edge.
type RelationshipKind string

const (
	PartOf     RelationshipKind = "PART_OF"
	Contains   RelationshipKind = "CONTAINS"
	HasOpening RelationshipKind = "HAS_OPENING"
	ConnectsTo RelationshipKind = "CONNECTS_TO"
)

// RelationshipKinds lists every relationship kind in derivation order.
var RelationshipKinds = []RelationshipKind{PartOf, Contains, HasOpening, ConnectsTo}

// ParseRelationshipKind converts a string to a RelationshipKind
func ParseRelationshipKind(s string) (RelationshipKind, error) {
	for _, k := range RelationshipKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown relationship kind %q", s)
}

// ViaDoorProperty is set on CONNECTS_TO edges to the id of the door that produced them.
const ViaDoorProperty = "via_door"

// Element is a vertex of the building graph.
//
// Every element kind shares this shape; Type decides which relationships an
// element takes part in. Connects is only meaningful on doors.
type Element struct {
	ID         string      `json:"id" validate:"required,max=256"`
	Type       ElementType `json:"type" validate:"required,element_type"`
	Name       string      `json:"name" validate:"required"`
	ParentID   string      `json:"parent_id,omitempty"`
	Properties Properties  `json:"properties,omitempty"`
	Connects   []string    `json:"connects,omitempty" validate:"omitempty,dive,required"`
}

// HasParent reports whether the element references a parent
func (e *Element) HasParent() bool {
	return e.ParentID != ""
}

// Clone creates a deep copy of an element
func (e *Element) Clone() *Element {
	clone := &Element{
		ID:         e.ID,
		Type:       e.Type,
		Name:       e.Name,
		ParentID:   e.ParentID,
		Properties: e.Properties.Clone(),
	}
	if e.Connects != nil {
		clone.Connects = make([]string, len(e.Connects))
		copy(clone.Connects, e.Connects)
	}
	return clone
}

// EdgeKey is the identity of a relationship. Upserting the same key twice
// replaces the properties of the existing edge.
type EdgeKey struct {
	From string
	Kind RelationshipKind
	To   string
}

func (k EdgeKey) String() string {
	return fmt.Sprintf("%s-[%s]->%s", k.From, k.Kind, k.To)
}

// Relationship is a directed, typed edge between two elements.
type Relationship struct {
	From       string           `json:"from"`
	Kind       RelationshipKind `json:"kind"`
	To         string           `json:"to"`
	Properties Properties       `json:"properties,omitempty"`
}

// Key returns the identity tuple of the relationship
func (r Relationship) Key() EdgeKey {
	return EdgeKey{From: r.From, Kind: r.Kind, To: r.To}
}

// Snapshot is a full copy of a stored graph, used for export.
type Snapshot struct {
	Vertices []Element      `json:"vertices"`
	Edges    []Relationship `json:"edges"`
}
