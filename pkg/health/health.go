package health

import (
	"context"
	"time"
)

// DefaultTimeout bounds a full round of checks
const DefaultTimeout = 5 * time.Second

// NewChecker creates a checker with no checks registered
func NewChecker() *Checker {
	return &Checker{
		liveChecks:  make(map[string]CheckFunc),
		readyChecks: make(map[string]CheckFunc),
		startedAt:   time.Now(),
		timeout:     DefaultTimeout,
	}
}

// RegisterLivenessCheck registers a liveness check
func (c *Checker) RegisterLivenessCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liveChecks[name] = check
}

// RegisterReadinessCheck registers a readiness check
func (c *Checker) RegisterReadinessCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readyChecks[name] = check
}

// CheckLiveness runs the liveness checks
func (c *Checker) CheckLiveness(ctx context.Context) Response {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.performChecks(ctx, c.liveChecks)
}

// CheckReadiness runs the liveness and readiness checks together
func (c *Checker) CheckReadiness(ctx context.Context) Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := make(map[string]CheckFunc, len(c.liveChecks)+len(c.readyChecks))
	for name, fn := range c.liveChecks {
		all[name] = fn
	}
	for name, fn := range c.readyChecks {
		all[name] = fn
	}
	return c.performChecks(ctx, all)
}

func (c *Checker) performChecks(ctx context.Context, checks map[string]CheckFunc) Response {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(checks)),
		Uptime:    time.Since(c.startedAt).Seconds(),
	}

	for name, checkFunc := range checks {
		start := time.Now()
		check := checkFunc(ctx)
		check.Duration = time.Since(start)
		check.LastChecked = start
		if check.Name == "" {
			check.Name = name
		}
		response.Checks[name] = check

		// Worst status wins
		if check.Status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		} else if check.Status == StatusDegraded && response.Status != StatusUnhealthy {
			response.Status = StatusDegraded
		}
	}

	return response
}
