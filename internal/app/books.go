package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/semmy-space/shelf/internal/api"
	"github.com/semmy-space/shelf/internal/pipeline"
)

// ErrRejected is returned when the server answers a book mutation with an
// error message in the result envelope.
var ErrRejected = errors.New("request rejected")

// Catalog runs the book operations.
type Catalog struct {
	list     *pipeline.Pipeline[api.BooksResponse]
	mutation *pipeline.Pipeline[api.OutputBase]
}

func newCatalog(s *Session) *Catalog {
	return &Catalog{
		list:     NewPipeline[api.BooksResponse](s),
		mutation: NewPipeline[api.OutputBase](s),
	}
}

// List returns every book.
func (c *Catalog) List(ctx context.Context) (*api.BooksResponse, error) {
	st := c.list.Do(ctx, api.GetBooks())
	if err := st.Err(); err != nil {
		return nil, err
	}
	if msg := st.Data.Message(); msg != "" {
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return st.Data, nil
}

// Add creates a book.
func (c *Catalog) Add(ctx context.Context, in api.BookInput) error {
	if err := api.Check(in); err != nil {
		return err
	}
	return c.mutate(ctx, api.AddBook(in))
}

// Update replaces a book.
func (c *Catalog) Update(ctx context.Context, req api.UpdateBookRequest) error {
	if err := api.Check(req); err != nil {
		return err
	}
	return c.mutate(ctx, api.UpdateBook(req))
}

// Delete removes the book with id.
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	if err := api.Check(api.DeleteBookRequest{ID: id}); err != nil {
		return err
	}
	return c.mutate(ctx, api.DeleteBook(id))
}

func (c *Catalog) mutate(ctx context.Context, desc pipeline.Descriptor[api.OutputBase]) error {
	st := c.mutation.Do(ctx, desc)
	if err := st.Err(); err != nil {
		return err
	}
	if msg := st.Data.Message(); msg != "" {
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return nil
}
