package api

import (
	"github.com/dd0wney/cluso-bim/pkg/aggregate"
	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/derive"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ElementsResponse is a list of elements
type ElementsResponse struct {
	Elements []*bim.Element `json:"elements"`
	Count    int            `json:"count"`
}

// PathResponse is the answer to a path query. Found is false and Path empty
// when the two elements are not connected.
type PathResponse struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Found    bool           `json:"found"`
	Hops     int            `json:"hops"`
	Path     []string       `json:"path"`
	Elements []*bim.Element `json:"elements,omitempty"`
}

// InfoResponse describes the server's graph
type InfoResponse struct {
	*aggregate.GraphInfo
	LastLoad *derive.LoadReport `json:"last_load,omitempty"`
}

func newElementsResponse(elems []*bim.Element) ElementsResponse {
	if elems == nil {
		elems = []*bim.Element{}
	}
	return ElementsResponse{Elements: elems, Count: len(elems)}
}
