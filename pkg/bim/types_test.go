package bim

import "testing"

func TestParseElementType(t *testing.T) {
	for _, typ := range ElementTypes {
		got, err := ParseElementType(string(typ))
		if err != nil {
			t.Fatalf("ParseElementType(%q) failed: %v", typ, err)
		}
		if got != typ {
			t.Errorf("ParseElementType(%q) = %q", typ, got)
		}
	}

	if _, err := ParseElementType("room"); err == nil {
		t.Error("lower-case type should not parse")
	}
	if ElementType("Corridor").Valid() {
		t.Error("Corridor should not be a valid element type")
	}
}

func TestIsOpening(t *testing.T) {
	tests := []struct {
		typ  ElementType
		want bool
	}{
		{TypeDoor, true},
		{TypeWindow, true},
		{TypeRoom, false},
		{TypeFloor, false},
	}
	for _, tt := range tests {
		if got := tt.typ.IsOpening(); got != tt.want {
			t.Errorf("%s.IsOpening() = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestParseRelationshipKind(t *testing.T) {
	for _, k := range RelationshipKinds {
		if got, err := ParseRelationshipKind(string(k)); err != nil || got != k {
			t.Errorf("ParseRelationshipKind(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := ParseRelationshipKind("ADJACENT_TO"); err == nil {
		t.Error("unknown kind should not parse")
	}
}

func TestElementClone(t *testing.T) {
	door := &Element{
		ID:         "door_1",
		Type:       TypeDoor,
		Name:       "Main door",
		ParentID:   "room_1",
		Properties: Properties{"width_mm": IntValue(900)},
		Connects:   []string{"room_1", "room_2"},
	}

	clone := door.Clone()
	clone.Connects[1] = "outside"
	clone.Properties["width_mm"] = IntValue(1200)

	if door.Connects[1] != "room_2" {
		t.Error("clone shares connects with original")
	}
	if door.Properties.GetNumber("width_mm", 0) != 900 {
		t.Error("clone shares properties with original")
	}
}

func TestAnchorSet(t *testing.T) {
	anchors := DefaultAnchors()
	if !anchors.Contains("outside") || !anchors.Contains("corridor") {
		t.Errorf("default anchors = %v", anchors.IDs())
	}
	if anchors.Contains("room_1") {
		t.Error("room_1 should not be an anchor")
	}

	custom := NewAnchorSet("street", "", "atrium")
	if got := custom.IDs(); len(got) != 2 || got[0] != "atrium" || got[1] != "street" {
		t.Errorf("IDs() = %v, want [atrium street]", got)
	}
}

func TestEdgeKey(t *testing.T) {
	r := Relationship{From: "room_1", Kind: ConnectsTo, To: "room_2"}
	if got := r.Key().String(); got != "room_1-[CONNECTS_TO]->room_2" {
		t.Errorf("Key().String() = %q", got)
	}
}
