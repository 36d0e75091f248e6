package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/semmy-space/shelf/internal/api"
	"github.com/semmy-space/shelf/internal/output"
)

var bookColumns = []output.Column{
	{Name: "ID", Key: "ID"},
	{Name: "Title", Key: "Title", Width: 40},
	{Name: "Author", Key: "Author", Width: 30},
	{Name: "Year", Key: "Year"},
	{Name: "Category", Key: "Category"},
}

// BooksListCmd implements the books list command
type BooksListCmd struct {
	Category string `help:"Only show books in this category (case-insensitive)"`
	Author   string `help:"Only show books whose author contains this text"`
}

// Run executes the list command
func (cmd *BooksListCmd) Run(ctx context.Context, sp *SessionProvider, fp *FormatterProvider, streams *Streams) error {
	sess, _, err := sp.SignedIn(ctx)
	if err != nil {
		return MapError(err)
	}

	resp, err := sess.Books.List(ctx)
	if err != nil {
		return MapError(err)
	}

	books := cmd.filter(resp.Data)
	if len(books) == 0 {
		fmt.Fprintf(streams.Err, "No books found\n")
		return nil
	}
	return fp.Formatter.PrintList(books, bookColumns)
}

func (cmd *BooksListCmd) filter(books []api.Book) []api.Book {
	if cmd.Category == "" && cmd.Author == "" {
		return books
	}

	var out []api.Book
	for _, b := range books {
		if cmd.Category != "" && !strings.EqualFold(b.Category, cmd.Category) {
			continue
		}
		if cmd.Author != "" && !strings.Contains(strings.ToLower(b.Author), strings.ToLower(cmd.Author)) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// BooksAddCmd implements the books add command
type BooksAddCmd struct {
	Title    string `help:"Title" required:""`
	Author   string `help:"Author" required:""`
	Year     int    `help:"Publication year" required:""`
	Category string `help:"Category" required:""`
}

// Run executes the add command
func (cmd *BooksAddCmd) Run(ctx context.Context, sp *SessionProvider, streams *Streams) error {
	sess, _, err := sp.SignedIn(ctx)
	if err != nil {
		return MapError(err)
	}

	in := api.BookInput{Title: cmd.Title, Author: cmd.Author, Year: cmd.Year, Category: cmd.Category}
	if err := sess.Books.Add(ctx, in); err != nil {
		return MapError(err)
	}

	fmt.Fprintf(streams.Err, "Added %q\n", cmd.Title)
	return nil
}

// BooksUpdateCmd implements the books update command
type BooksUpdateCmd struct {
	ID       int64  `arg:"" help:"Book ID"`
	Title    string `help:"Title" required:""`
	Author   string `help:"Author" required:""`
	Year     int    `help:"Publication year" required:""`
	Category string `help:"Category" required:""`
}

// Run executes the update command
func (cmd *BooksUpdateCmd) Run(ctx context.Context, sp *SessionProvider, streams *Streams) error {
	sess, _, err := sp.SignedIn(ctx)
	if err != nil {
		return MapError(err)
	}

	req := api.UpdateBookRequest{ID: cmd.ID, Title: cmd.Title, Author: cmd.Author, Year: cmd.Year, Category: cmd.Category}
	if err := sess.Books.Update(ctx, req); err != nil {
		return MapError(err)
	}

	fmt.Fprintf(streams.Err, "Updated book %d\n", cmd.ID)
	return nil
}

// BooksDeleteCmd implements the books delete command
type BooksDeleteCmd struct {
	ID int64 `arg:"" help:"Book ID"`
}

// Run executes the delete command
func (cmd *BooksDeleteCmd) Run(ctx context.Context, sp *SessionProvider, globals *Globals, streams *Streams) error {
	sess, _, err := sp.SignedIn(ctx)
	if err != nil {
		return MapError(err)
	}

	ok, err := newPrompter(streams, globals).confirm(fmt.Sprintf("Delete book %d?", cmd.ID), globals.Force)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(streams.Err, "Aborted\n")
		return nil
	}

	if err := sess.Books.Delete(ctx, cmd.ID); err != nil {
		return MapError(err)
	}

	fmt.Fprintf(streams.Err, "Deleted book %d\n", cmd.ID)
	return nil
}
