package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mybooks/internal/books"
	"mybooks/internal/codec"
)

type importResult struct {
	Imported int
	Skipped  int
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a JSON export of either app into the collection",
		Long: "Reads a JSON array of book records, as stored by either app, and adds " +
			"every record whose id is not already in the collection.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			_, err = importBooks(cmd.Context(), c.store, string(data), cmd.OutOrStdout())
			return err
		},
	}
}

// importBooks adds each decoded record to store, skipping ids it already
// holds, and reports one line per record plus a summary.
func importBooks(ctx context.Context, store *books.Store, raw string, out io.Writer) (importResult, error) {
	var result importResult

	list, err := codec.Decode(raw, true)
	if err != nil {
		return result, err
	}

	for _, book := range list {
		fmt.Fprintf(out, "Importing: %s (ID: %s)... ", displayTitle(book.Title), book.ID)
		if !store.AddBook(ctx, book) {
			fmt.Fprintln(out, "SKIP - already in the collection")
			result.Skipped++
			continue
		}
		fmt.Fprintln(out, "SUCCESS")
		result.Imported++
	}

	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", result.Imported)
	fmt.Fprintf(out, "Skipped: %d\n", result.Skipped)
	return result, nil
}

func displayTitle(title string) string {
	if title == "" {
		return "(untitled)"
	}
	return title
}
