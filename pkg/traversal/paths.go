package traversal

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-bim/pkg/storage"
)

// FindPath returns a shortest chain of ids from fromID to toID, treating
// every edge as undirected. It returns [fromID] when both ids are equal
// without touching the store, and an empty path when toID is unreachable.
func (e *Engine) FindPath(ctx context.Context, fromID, toID string) (path []string, err error) {
	if fromID == toID {
		return []string{fromID}, nil
	}

	visited := map[string]bool{fromID: true}
	defer func(start time.Time) { e.observe(QueryFindPath, fromID, start, len(path), len(visited), err) }(time.Now())

	parent := make(map[string]string)
	queue := []string{fromID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		neighbors, err := e.store.Neighbors(ctx, current, storage.Any)
		if err != nil {
			return nil, err
		}

		for _, n := range neighbors {
			if visited[n.ID] {
				continue
			}
			visited[n.ID] = true
			parent[n.ID] = current

			if n.ID == toID {
				return reconstructPath(fromID, toID, parent), nil
			}
			queue = append(queue, n.ID)
		}
	}

	return []string{}, nil
}

// reconstructPath walks parent links back from toID
func reconstructPath(fromID, toID string, parent map[string]string) []string {
	path := []string{toID}
	for id := toID; id != fromID; {
		id = parent[id]
		path = append(path, id)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
