package health

import (
	"context"
	"runtime"
	"time"
)

// StoreCheck reports whether the graph store answers ping
func StoreCheck(backend string, ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "store",
			Details: map[string]any{"backend": backend},
		}

		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}
		return check
	}
}

// GraphLoadedCheck is degraded until a graph has been loaded. Queries still
// work on an empty graph, they just find nothing.
func GraphLoadedCheck(lastLoad func() (loadID string, at time.Time, ok bool)) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "graph",
			Details: make(map[string]any),
		}

		loadID, at, ok := lastLoad()
		if !ok {
			check.Status = StatusDegraded
			check.Message = "No graph loaded"
			return check
		}

		check.Status = StatusHealthy
		check.Message = "Graph loaded"
		check.Details["load_id"] = loadID
		check.Details["loaded_at"] = at
		check.Details["age_seconds"] = time.Since(at).Seconds()
		return check
	}
}

// MemoryCheck is degraded when the heap holds more than limit bytes. A zero
// limit only reports usage.
func MemoryCheck(limit uint64) CheckFunc {
	return func(ctx context.Context) Check {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		check := Check{
			Name: "memory",
			Details: map[string]any{
				"alloc_bytes": m.Alloc,
				"sys_bytes":   m.Sys,
			},
			Status:  StatusHealthy,
			Message: "Memory usage normal",
		}

		if limit > 0 && m.Alloc > limit {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		}
		return check
	}
}
