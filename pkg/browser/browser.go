// Package browser is a terminal UI for walking the building hierarchy.
package browser

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-bim/pkg/aggregate"
	"github.com/dd0wney/cluso-bim/pkg/traversal"
)

// Run starts the browser in the alternate screen and blocks until the user
// quits or ctx is cancelled.
func Run(ctx context.Context, engine *traversal.Engine, aggregator *aggregate.Aggregator, startID string) error {
	p := tea.NewProgram(
		New(ctx, engine, aggregator, startID),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
