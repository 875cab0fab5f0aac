package registry

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"lukechampine.com/blake3"

	"github.com/dd0wney/cluso-bim/pkg/bim"
)

// group is one top-level key of the input document and the type its
// untagged objects default to.
type group struct {
	key         string
	defaultType bim.ElementType
}

// documentGroups is the order elements are read in.
var documentGroups = []group{
	{"project", bim.TypeProject},
	{"site", bim.TypeSite},
	{"buildings", bim.TypeBuilding},
	{"floors", bim.TypeFloor},
	{"rooms", bim.TypeRoom},
	{"doors", bim.TypeDoor},
	{"windows", bim.TypeWindow},
}

// Input is a parsed input document.
type Input struct {
	Path        string
	Fingerprint string
	Elements    []bim.Element
}

// ParseDocument reads a BIM document. Each top-level group holds one object
// or a list of objects; objects without a type take the group default.
// Unknown top-level keys are ignored.
func ParseDocument(r io.Reader) ([]bim.Element, error) {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	var elements []bim.Element
	for _, g := range documentGroups {
		raw, ok := doc[g.key]
		if !ok {
			continue
		}
		items, err := decodeGroup(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", g.key, err)
		}
		for _, item := range items {
			if item.Type == "" {
				item.Type = g.defaultType
			}
			elements = append(elements, item)
		}
	}
	return elements, nil
}

func decodeGroup(raw json.RawMessage) ([]bim.Element, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '{':
		var one bim.Element
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, err
		}
		return []bim.Element{one}, nil
	case '[':
		var many []bim.Element
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return nil, err
		}
		return many, nil
	default:
		return nil, fmt.Errorf("expected object or list, got %q", string(trimmed[:1]))
	}
}

// LoadFile reads and parses the document at path and fingerprints its bytes
// so reloads of an unchanged file can be recognised.
func LoadFile(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	elements, err := ParseDocument(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Input{
		Path:        path,
		Fingerprint: Fingerprint(data),
		Elements:    elements,
	}, nil
}

// Fingerprint is the hex blake3-256 digest of an input document.
func Fingerprint(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
