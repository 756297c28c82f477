package main

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dpshade/prompt-composer/internal/store"
	"github.com/dpshade/prompt-composer/internal/ui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive composer",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		opts, err := a.storeOptions()
		if err != nil {
			return err
		}

		// failed writes surface in the status bar
		saveErrs := make(chan error, 16)
		opts.OnError = func(e store.Effect, err error) {
			select {
			case saveErrs <- fmt.Errorf("%s: %w", e.Name(), err):
			default:
			}
		}

		st, err := a.openStoreWith(cmd.Context(), opts)
		if err != nil {
			return err
		}
		defer st.Close()

		p := tea.NewProgram(ui.NewModel(st, saveErrs), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("failed to run TUI: %w", err)
		}
		return nil
	},
}
