package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Start runs the dashboard until the user quits or ctx ends.
func Start(ctx context.Context, client Client, version string) error {
	Version = version
	p := tea.NewProgram(
		initialModel(ctx, client),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	return nil
}
