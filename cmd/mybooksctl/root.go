package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mybooks/internal/books"
	"mybooks/internal/codec"
	"mybooks/internal/models"
	"mybooks/internal/storage"
)

type opener func(ctx context.Context) (*books.Store, storage.Storage, error)

type cli struct {
	open  opener
	store *books.Store
	db    storage.Storage
	newID func() models.ID
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{
		open:  open,
		newID: func() models.ID { return models.StringID(uuid.NewString()) },
	}

	root := &cobra.Command{
		Use:           "mybooksctl",
		Short:         "Manage the mybooks collection from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			c.store, c.db = store, db
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.db == nil {
				return nil
			}
			return c.db.Close()
		},
	}

	root.AddCommand(
		c.listCmd(),
		c.addCmd(),
		c.idCmd("remove", "Remove a book", (*books.Store).RemoveBook),
		c.idCmd("read", "Mark a book as being read", (*books.Store).MarkAsReading),
		c.idCmd("toggle-reading", "Start or stop reading a book", (*books.Store).ToggleReading),
		c.idCmd("toggle-favorite", "Add or remove a book from favorites", (*books.Store).ToggleFavorite),
		c.statusCmd(),
		c.importCmd(),
		c.exportCmd(),
	)
	return root
}

var views = map[string]func(models.Book) bool{
	"library":   books.AnyBook,
	"bookshelf": books.OnBookshelf,
	"wishlist":  books.OnWishlist,
	"reading":   books.BeingRead,
	"favorites": books.IsFavorite,
}

func (c *cli) listCmd() *cobra.Command {
	var view string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keep, ok := views[view]
			if !ok {
				return fmt.Errorf("unknown view %q (expected library, bookshelf, wishlist, reading or favorites)", view)
			}
			printBooks(cmd.OutOrStdout(), books.Filter(c.store.Books(), keep))
			return nil
		},
	}
	cmd.Flags().StringVar(&view, "view", "library", "library, bookshelf, wishlist, reading or favorites")
	return cmd
}

func (c *cli) addCmd() *cobra.Command {
	var id, author, status, comment string
	var favorite bool
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book := models.Book{
				ID:       c.newID(),
				Title:    args[0],
				Author:   author,
				State:    models.ParseReadingState(status),
				Favorite: favorite,
				Comment:  comment,
			}
			if id != "" {
				book.ID = models.ParseID(id)
			}
			if !c.store.AddBook(cmd.Context(), book) {
				return fmt.Errorf("book %s already exists", book.ID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (ID: %s)\n", book.Title, book.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "book id (generated when empty)")
	cmd.Flags().StringVar(&author, "author", "", "author")
	cmd.Flags().StringVar(&status, "status", "", "reading status")
	cmd.Flags().StringVar(&comment, "comment", "", "comment")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "mark as favorite")
	return cmd
}

// idCmd builds a command applying a single-id mutation.
func (c *cli) idCmd(use, short string, apply func(*books.Store, context.Context, models.ID) bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := c.store.ResolveID(args[0])
			if !apply(c.store, cmd.Context(), id) {
				return fmt.Errorf("book %s not found", id)
			}
			c.printBook(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> [status]",
		Short: "Set the reading status of a book (empty clears it)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := c.store.ResolveID(args[0])
			var status string
			if len(args) == 2 {
				status = args[1]
			}
			if !c.store.UpdateBookStatus(cmd.Context(), id, models.ParseReadingState(status)) {
				return fmt.Errorf("book %s not found", id)
			}
			c.printBook(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var layout string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the collection as JSON to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := codec.ParseLayout(layout)
			if err != nil {
				return err
			}
			raw, err := codec.EncodeLayout(c.store.Books(), l)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&layout, "layout", "unified", "unified, flags or status")
	return cmd
}

func (c *cli) printBook(w io.Writer, id models.ID) {
	if book, ok := c.store.Book(id); ok {
		printBooks(w, []models.Book{book})
	}
}

func printBooks(w io.Writer, list []models.Book) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No books.")
		return
	}
	fmt.Fprintf(w, "%-36s %-40s %-25s %-10s %s\n", "ID", "Title", "Author", "Status", "Fav")
	fmt.Fprintln(w, strings.Repeat("-", 118))
	for _, book := range list {
		fav := ""
		if book.Favorite {
			fav = "*"
		}
		fmt.Fprintf(w, "%-36s %-40s %-25s %-10s %s\n",
			book.ID, truncateString(book.Title, 40), truncateString(book.Author, 25),
			truncateString(book.State.Status(), 10), fav)
	}
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
