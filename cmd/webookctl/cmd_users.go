package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer accounts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.store.LoadUsers(cmd.Context()); err != nil {
				return err
			}
			users := a.store.State().Users
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE")
			for _, u := range users {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
			}
			return w.Flush()
		},
	}

	toggle := &cobra.Command{
		Use:   "toggle-role ID",
		Short: "Switch an account between admin and user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if len(a.store.State().Users) == 0 {
				if err := a.store.LoadUsers(cmd.Context()); err != nil {
					return err
				}
			}
			if err := a.store.ToggleUserRole(cmd.Context(), id); err != nil {
				return err
			}
			for _, u := range a.store.State().Users {
				if u.ID == id {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, u.Role)
				}
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.store.DeleteUser(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, toggle, del)
	return cmd
}
