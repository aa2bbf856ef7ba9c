package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yashrajoria/webook/store"
)

func newStockCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Stage and confirm inventory changes",
	}
	cmd.AddCommand(
		newStageCmd(a, "set", "ID=VALUE...", "Set stock levels", func(id uint, v int) { a.store.ProposeStock(id, v) }),
		newStageCmd(a, "adjust", "ID=DELTA...", "Change stock levels by a delta", func(id uint, v int) { a.store.AdjustStock(id, v) }),
	)
	return cmd
}

// newStageCmd stages every assignment, shows the result and confirms it
// unless --dry-run is set.
func newStageCmd(a *app, name, argsUse, short string, stage func(uint, int)) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   name + " " + argsUse,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, values, err := parseAssignments(args)
			if err != nil {
				return err
			}
			a.store.SetView(store.ViewAdmin)
			for i, id := range ids {
				if _, ok := a.store.State().Book(id); !ok {
					return fmt.Errorf("book %d not found", id)
				}
				stage(id, values[i])
			}

			st := a.store.State()
			printBooks(cmd, st, st.Books)
			n := a.store.PendingStockCount()
			if dryRun || n == 0 {
				a.store.DiscardStocks()
				fmt.Fprintf(cmd.OutOrStdout(), "%d change(s) not saved\n", n)
				return nil
			}
			if err := a.store.ConfirmStocks(cmd.Context()); err != nil {
				return fmt.Errorf("%d of %d change(s) failed: %w", a.store.PendingStockCount(), n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d change(s)\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the staged result without saving")
	return cmd
}
