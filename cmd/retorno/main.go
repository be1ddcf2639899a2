// cmd/retorno/main.go
//
// This is the entry point for the retorno CLI.
// When you run `retorno` from any directory, that directory becomes the
// project: its .retorno/ folder holds the config, the journal and the
// remembered queue position.
//
// Flow:
// 1. Make sure .retorno/ exists and load its config
// 2. Apply --input/--output/--sheet on top of config and env
// 3. Launch the TUI (or run a subcommand)

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/retorno/internal/config"
	"github.com/kingrea/retorno/internal/logbook"
	"github.com/kingrea/retorno/internal/tui"
)

var (
	// Global flags
	verbose   bool
	workspace string
	overrides config.Overrides
	remember  bool

	cfg     *config.Config
	journal *logbook.Logbook
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "retorno",
	Short: "Walk a roster of lapsed customers and record who came back",
	Long: `retorno shows one not-yet-contacted customer at a time, opens a
WhatsApp chat with a greeting, and lets you record whether each contacted
customer purchased (and why not). The updated roster is exported back to
a workbook.

Run without arguments to start the interactive interface.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		projectDir := workspace
		if projectDir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			projectDir = cwd
		}
		if err := config.InitRetornoDir(projectDir); err != nil {
			return fmt.Errorf("initialize .retorno directory: %w", err)
		}
		loaded, err := config.NewConfig(projectDir)
		if err != nil {
			return err
		}
		loaded.Apply(overrides)
		cfg = loaded

		journal, err = logbook.New(cfg.JournalPath(), logbook.WithVerbose(verbose))
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		journal.Debug("config loaded from %s", cfg.ProjectConfigPath())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if journal != nil {
			_ = journal.Close()
		}
	},
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Record debug entries in the journal")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Project directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&overrides.Input, "input", "i", "", "Workbook path or http(s) URL (or set RETORNO_INPUT)")
	rootCmd.PersistentFlags().StringVarP(&overrides.Output, "output", "o", "", "Export path (or set RETORNO_OUTPUT)")
	rootCmd.PersistentFlags().StringVar(&overrides.Sheet, "sheet", "", "Sheet name to read and write")
	rootCmd.Flags().BoolVar(&remember, "remember", false, "Save --input to .retorno/config.yaml")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(resetCursorCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runTUI launches the interactive interface.
func runTUI(cmd *cobra.Command, args []string) error {
	if remember && overrides.Input != "" {
		if err := cfg.SetInput(overrides.Input); err != nil {
			return err
		}
		journal.Info("Saved input %s to %s", cfg.Input(), cfg.ProjectConfigPath())
	}

	app, err := tui.NewApp(cfg, tui.WithLogbook(journal))
	if err != nil {
		return err
	}
	defer app.Close()

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(), // Use alternate screen buffer (like vim does)
	)

	// Run blocks until the user quits
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}
