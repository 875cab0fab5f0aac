package traversal

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/storage"
)

// Children returns the elements id directly contains, in store order
func (e *Engine) Children(ctx context.Context, id string) (children []*bim.Element, err error) {
	defer func(start time.Time) { e.observe(QueryChildren, id, start, len(children), 1, err) }(time.Now())
	return e.store.Neighbors(ctx, id, storage.Outbound, bim.Contains)
}

// ConnectedRooms returns the elements id reaches through a door
func (e *Engine) ConnectedRooms(ctx context.Context, id string) (rooms []*bim.Element, err error) {
	defer func(start time.Time) { e.observe(QueryConnectedRooms, id, start, len(rooms), 1, err) }(time.Now())
	return e.store.Neighbors(ctx, id, storage.Outbound, bim.ConnectsTo)
}

// RoomOpenings returns the doors and windows of a room. Openings of any
// other type are dropped.
func (e *Engine) RoomOpenings(ctx context.Context, id string) (*Openings, error) {
	start := time.Now()

	elems, err := e.store.Neighbors(ctx, id, storage.Outbound, bim.HasOpening)
	if err != nil {
		e.observe(QueryRoomOpenings, id, start, 0, 1, err)
		return nil, err
	}

	openings := &Openings{Doors: []*bim.Element{}, Windows: []*bim.Element{}}
	for _, el := range elems {
		switch el.Type {
		case bim.TypeDoor:
			openings.Doors = append(openings.Doors, el)
		case bim.TypeWindow:
			openings.Windows = append(openings.Windows, el)
		}
	}

	e.observe(QueryRoomOpenings, id, start, len(openings.Doors)+len(openings.Windows), 1, nil)
	return openings, nil
}

// Element returns the element with id, or nil when there is none
func (e *Engine) Element(ctx context.Context, id string) (el *bim.Element, err error) {
	start := time.Now()
	defer func() {
		returned := 0
		if el != nil {
			returned = 1
		}
		e.observe(QueryElement, id, start, returned, 1, err)
	}()

	el, err = e.store.Get(ctx, id)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	return el, err
}

// ElementsByType returns every element of type t in store order
func (e *Engine) ElementsByType(ctx context.Context, t bim.ElementType) (elems []*bim.Element, err error) {
	defer func(start time.Time) { e.observe(QueryByType, string(t), start, len(elems), len(elems), err) }(time.Now())
	return e.store.VerticesByType(ctx, t)
}

// ResolvePath returns the elements along path. Ids no longer stored are left
// out.
func (e *Engine) ResolvePath(ctx context.Context, path []string) (elems []*bim.Element, err error) {
	defer func(start time.Time) {
		from := ""
		if len(path) > 0 {
			from = path[0]
		}
		e.observe(QueryResolvePath, from, start, len(elems), len(path), err)
	}(time.Now())

	elems = make([]*bim.Element, 0, len(path))
	for _, id := range path {
		el, err := e.store.Get(ctx, id)
		if storage.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		elems = append(elems, el)
	}
	return elems, nil
}
