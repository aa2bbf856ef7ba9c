package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yashrajoria/webook/store"
)

func newCartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and edit the signed-in user's cart",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			return a.requireUser()
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printCart(cmd, a.store.State())
			return nil
		},
	}

	var dryRun bool
	set := &cobra.Command{
		Use:   "set ID=QTY...",
		Short: "Set quantities; 0 removes a line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, values, err := parseAssignments(args)
			if err != nil {
				return err
			}
			a.store.SetView(store.ViewHome)
			for i, id := range ids {
				if _, ok := a.store.State().Book(id); !ok {
					return fmt.Errorf("book %d not found", id)
				}
				a.store.ProposeCartQuantity(id, values[i])
			}

			st := a.store.State()
			w := cmd.OutOrStdout()
			for _, id := range ids {
				book, _ := st.Book(id)
				fmt.Fprintf(w, "%s: %d -> %d\n", book.Title, st.CartQuantity(id), st.DisplayedCartQuantity(id))
			}
			n := a.store.PendingCartCount()
			if dryRun || n == 0 {
				a.store.DiscardCart()
				fmt.Fprintf(w, "%d change(s) not saved\n", n)
				return nil
			}
			if err := a.store.ConfirmCart(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(w, "Cart updated: %d item(s), total %s\n", a.store.CartCount(), a.store.CartTotal())
			return nil
		},
	}
	set.Flags().BoolVar(&dryRun, "dry-run", false, "show the staged result without saving")

	clearCart := &cobra.Command{
		Use:   "clear",
		Short: "Remove every line from the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.store.ClearCart(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared")
			return nil
		},
	}

	cmd.AddCommand(show, set, clearCart)
	return cmd
}

func printCart(cmd *cobra.Command, st store.State) {
	out := cmd.OutOrStdout()
	if len(st.Cart) == 0 {
		fmt.Fprintln(out, "Cart is empty")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range st.Cart {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", l.BookID, l.Title, l.Quantity, l.Price.StringFixed(2), l.Subtotal().StringFixed(2))
	}
	_ = w.Flush()
	fmt.Fprintf(out, "Total: %s (%d item(s))\n", st.CartTotal().StringFixed(2), st.CartCount())
}
