package traversal

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/storage"
)

type frame struct {
	elem  *bim.Element
	depth int
}

// Descendants returns everything below id along CONTAINS edges, depth first.
//
// The walk uses an explicit stack, so siblings come out in reverse store
// order. Direct children are at depth 0; with maxDepth >= 0 nothing deeper
// than maxDepth is returned or expanded, so Descendants(id, 0) holds the
// elements of Children(id) in reverse order; compare the two as sets. Pass
// Unbounded for no limit. The start element is never returned and every
// element is returned at most once, even in cyclic data.
func (e *Engine) Descendants(ctx context.Context, id string, maxDepth int) (result []*bim.Element, err error) {
	visited := map[string]bool{id: true}
	defer func(start time.Time) { e.observe(QueryDescendants, id, start, len(result), len(visited), err) }(time.Now())

	children, err := e.store.Neighbors(ctx, id, storage.Outbound, bim.Contains)
	if err != nil {
		return nil, err
	}

	stack := make([]frame, 0, len(children))
	for _, c := range children {
		stack = append(stack, frame{elem: c, depth: 0})
	}

	result = []*bim.Element{}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[top.elem.ID] {
			continue
		}
		visited[top.elem.ID] = true

		if maxDepth >= 0 && top.depth > maxDepth {
			continue
		}
		result = append(result, top.elem)

		if maxDepth >= 0 && top.depth == maxDepth {
			continue
		}

		children, err := e.store.Neighbors(ctx, top.elem.ID, storage.Outbound, bim.Contains)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if !visited[c.ID] {
				stack = append(stack, frame{elem: c, depth: top.depth + 1})
			}
		}
	}

	return result, nil
}

// Ancestors returns the elements above id along PART_OF edges, nearest
// first, following at most MaxAncestorHops edges. id itself is never
// returned.
func (e *Engine) Ancestors(ctx context.Context, id string) (result []*bim.Element, err error) {
	visited := map[string]bool{id: true}
	defer func(start time.Time) { e.observe(QueryAncestors, id, start, len(result), len(visited), err) }(time.Now())

	result = []*bim.Element{}
	queue := []frame{{elem: &bim.Element{ID: id}, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth == MaxAncestorHops {
			continue
		}

		parents, err := e.store.Neighbors(ctx, current.elem.ID, storage.Outbound, bim.PartOf)
		if err != nil {
			return nil, err
		}
		for _, p := range parents {
			if visited[p.ID] {
				continue
			}
			visited[p.ID] = true
			result = append(result, p)
			queue = append(queue, frame{elem: p, depth: current.depth + 1})
		}
	}

	return result, nil
}
