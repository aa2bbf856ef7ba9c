package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yashrajoria/webook/models"
	"github.com/yashrajoria/webook/store"
)

func newBooksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List and edit the catalog",
	}
	cmd.AddCommand(newBooksListCmd(a), newBooksAddCmd(a), newBooksUpdateCmd(a), newBooksDeleteCmd(a))
	return cmd
}

func newBooksListCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.store.SetSearchQuery(search)
			printBooks(cmd, a.store.State(), a.store.FilteredBooks())
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by title")
	return cmd
}

type bookFlags struct {
	title, author, category, price, cover string
	stocks                                int
}

func (f *bookFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "title")
	cmd.Flags().StringVar(&f.author, "author", "", "author")
	cmd.Flags().StringVar(&f.category, "category", "", "category")
	cmd.Flags().StringVar(&f.price, "price", "0", "price, e.g. 12.50")
	cmd.Flags().IntVar(&f.stocks, "stocks", 0, "copies on hand")
	cmd.Flags().StringVar(&f.cover, "cover", "", "cover image URL")
}

// apply copies the flags the user set onto draft.
func (f *bookFlags) apply(cmd *cobra.Command, draft store.BookForm) (store.BookForm, error) {
	changed := cmd.Flags().Changed
	if changed("title") {
		draft.Title = f.title
	}
	if changed("author") {
		draft.Author = f.author
	}
	if changed("category") {
		draft.Category = f.category
	}
	if changed("price") {
		p, err := decimal.NewFromString(f.price)
		if err != nil {
			return draft, fmt.Errorf("invalid price %q", f.price)
		}
		draft.Price = p
	}
	if changed("stocks") {
		draft.Stocks = f.stocks
	}
	if changed("cover") {
		draft.Cover = f.cover
	}
	return draft, nil
}

func newBooksAddCmd(a *app) *cobra.Command {
	f := &bookFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			draft, err := f.apply(cmd, store.BookForm{})
			if err != nil {
				return err
			}
			a.store.SetFormDraft(draft)
			if err := a.store.SubmitForm(cmd.Context()); err != nil {
				return err
			}
			book := a.store.State().Books[0]
			fmt.Fprintf(cmd.OutOrStdout(), "Added book %d: %s\n", book.ID, book.Title)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newBooksUpdateCmd(a *app) *cobra.Command {
	f := &bookFlags{}
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Edit a book; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, ok := a.store.State().Book(id); !ok {
				return fmt.Errorf("book %d not found", id)
			}
			a.store.BeginEdit(id)
			draft, err := f.apply(cmd, a.store.State().FormDraft)
			if err != nil {
				return err
			}
			a.store.SetFormDraft(draft)
			if err := a.store.SubmitForm(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated book %d\n", id)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newBooksDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.store.DeleteBook(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted book %d\n", id)
			return nil
		},
	}
}

// printBooks shows staged stock next to the confirmed value.
func printBooks(cmd *cobra.Command, st store.State, books []models.Book) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tCATEGORY\tPRICE\tSTOCK")
	for _, b := range books {
		stock := fmt.Sprint(b.Stocks)
		if v, ok := st.PendingStocks[b.ID]; ok {
			stock = fmt.Sprintf("%d -> %d", b.Stocks, v)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", b.ID, b.Title, b.Author, b.Category, b.Price.StringFixed(2), stock)
	}
	_ = w.Flush()
}
