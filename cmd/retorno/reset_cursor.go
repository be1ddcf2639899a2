package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/retorno/internal/kv"
)

// resetCursorCmd forgets the remembered queue position
var resetCursorCmd = &cobra.Command{
	Use:   "reset-cursor",
	Short: "Start the next session at the first untouched customer",
	Args:  cobra.NoArgs,
	RunE:  runResetCursor,
}

func runResetCursor(cmd *cobra.Command, args []string) error {
	store, err := kv.Open(cfg.StateBackend(), cfg.StatePath())
	if err != nil {
		return err
	}
	defer store.Close()

	if _, ok, _ := kv.LoadInt(cmd.Context(), store, kv.CursorKey); !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "No saved position.")
		return nil
	}
	if err := store.Delete(cmd.Context(), kv.CursorKey); err != nil {
		return fmt.Errorf("reset cursor: %w", err)
	}
	journal.Info("Cursor reset in %s", cfg.StatePath())
	fmt.Fprintln(cmd.OutOrStdout(), "Saved position cleared.")
	return nil
}
