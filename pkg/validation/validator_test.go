package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-bim/pkg/bim"
)

func TestValidateElement(t *testing.T) {
	tests := []struct {
		name        string
		elem        *bim.Element
		expectError bool
		errorField  string
	}{
		{
			name: "Valid room",
			elem: &bim.Element{ID: "rm_1", Type: bim.TypeRoom, Name: "Office", ParentID: "fl_1",
				Properties: bim.Properties{"area_sqm": bim.NumberValue(20)}},
		},
		{
			name: "Valid door with two connects",
			elem: &bim.Element{ID: "dr_1", Type: bim.TypeDoor, Name: "D1", Connects: []string{"rm_1", "outside"}},
		},
		{
			name:        "Missing id",
			elem:        &bim.Element{Type: bim.TypeRoom, Name: "Office"},
			expectError: true,
			errorField:  "id",
		},
		{
			name:        "Missing name",
			elem:        &bim.Element{ID: "rm_1", Type: bim.TypeRoom},
			expectError: true,
			errorField:  "name",
		},
		{
			name:        "Unknown type",
			elem:        &bim.Element{ID: "x", Type: bim.ElementType("Staircase"), Name: "S"},
			expectError: true,
			errorField:  "type",
		},
		{
			name:        "Id too long",
			elem:        &bim.Element{ID: strings.Repeat("a", 257), Type: bim.TypeRoom, Name: "R"},
			expectError: true,
			errorField:  "id",
		},
		{
			name:        "Whitespace around id",
			elem:        &bim.Element{ID: " rm_1", Type: bim.TypeRoom, Name: "R"},
			expectError: true,
			errorField:  "id",
		},
		{
			name: "Self parent is left to traversal cycle guards",
			elem: &bim.Element{ID: "rm_1", Type: bim.TypeRoom, Name: "R", ParentID: "rm_1"},
		},
		{
			name:        "Door with one connect",
			elem:        &bim.Element{ID: "dr_1", Type: bim.TypeDoor, Name: "D", Connects: []string{"rm_1"}},
			expectError: true,
			errorField:  "connects",
		},
		{
			name:        "Empty connects entry",
			elem:        &bim.Element{ID: "dr_1", Type: bim.TypeDoor, Name: "D", Connects: []string{"rm_1", ""}},
			expectError: true,
			errorField:  "connects",
		},
		{
			name:        "Empty property key",
			elem:        &bim.Element{ID: "rm_1", Type: bim.TypeRoom, Name: "R", Properties: bim.Properties{"": bim.NullValue()}},
			expectError: true,
			errorField:  "properties",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateElement(tt.elem)
			if tt.expectError && err == nil {
				t.Fatalf("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if !tt.expectError {
				return
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("Expected *FieldError, got %T: %v", err, err)
			}
			if fe.Field != tt.errorField {
				t.Errorf("Field = %q, want %q (%v)", fe.Field, tt.errorField, err)
			}
		})
	}
}

func TestValidateElementNil(t *testing.T) {
	if err := ValidateElement(nil); err == nil {
		t.Error("Expected error for nil element")
	}
}

func TestValidatePropertyKey(t *testing.T) {
	valid := []string{"area_sqm", "fire-rating", "Room Type", "ifc:GlobalId"}
	for _, k := range valid {
		if err := ValidatePropertyKey(k); err != nil {
			t.Errorf("ValidatePropertyKey(%q) = %v, want nil", k, err)
		}
	}

	invalid := []string{"", strings.Repeat("k", MaxPropertyKey+1), "bad\nkey"}
	for _, k := range invalid {
		if err := ValidatePropertyKey(k); err == nil {
			t.Errorf("ValidatePropertyKey(%q) = nil, want error", k)
		}
	}
}
