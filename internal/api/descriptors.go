package api

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/semmy-space/shelf/internal/pipeline"
	"github.com/semmy-space/shelf/internal/schema"
)

// API paths, relative to the configured base URL.
const (
	PathLogin      = "/login"
	PathRegister   = "/register"
	PathUser       = "/user"
	PathGetBooks   = "/template/GetBooks"
	PathAddBook    = "/template/AddBook"
	PathUpdateBook = "/template/UpdateBook"
	PathDeleteBook = "/template/DeleteBook"
)

// Check validates a request body and returns schema.Issues on failure.
func Check(req validation.Validatable) error {
	return schema.FromError(req.Validate()).Err()
}

// Login exchanges credentials for a token.
func Login(req LoginRequest) pipeline.Descriptor[LoginResponse] {
	return pipeline.Descriptor[LoginResponse]{
		Path:   PathLogin,
		Method: http.MethodPost,
		Body:   req,
		Schema: schema.JSON[LoginResponse](),
	}
}

// Register creates an account.
func Register(req RegisterRequest) pipeline.Descriptor[UserResponse] {
	return pipeline.Descriptor[UserResponse]{
		Path:   PathRegister,
		Method: http.MethodPost,
		Body:   req,
		Schema: schema.JSON[UserResponse](),
	}
}

// CurrentUser fetches the account behind the stored credential.
func CurrentUser() pipeline.Descriptor[UserResponse] {
	return pipeline.Descriptor[UserResponse]{
		Path:   PathUser,
		Method: http.MethodGet,
		Schema: schema.JSON[UserResponse](),
	}
}

// UpdateUser changes the signed-in account.
func UpdateUser(req UpdateUserRequest) pipeline.Descriptor[UserResponse] {
	return pipeline.Descriptor[UserResponse]{
		Path:   PathUser,
		Method: http.MethodPut,
		Body:   req,
		Schema: schema.JSON[UserResponse](),
	}
}

// GetBooks lists the catalogue.
func GetBooks() pipeline.Descriptor[BooksResponse] {
	return pipeline.Descriptor[BooksResponse]{
		Path:   PathGetBooks,
		Method: http.MethodGet,
		Schema: schema.JSON[BooksResponse](),
	}
}

// AddBook creates a book.
func AddBook(req BookInput) pipeline.Descriptor[OutputBase] {
	return pipeline.Descriptor[OutputBase]{
		Path:   PathAddBook,
		Method: http.MethodPost,
		Body:   req,
		Schema: schema.JSON[OutputBase](),
	}
}

// UpdateBook replaces a book.
func UpdateBook(req UpdateBookRequest) pipeline.Descriptor[OutputBase] {
	return pipeline.Descriptor[OutputBase]{
		Path:   PathUpdateBook,
		Method: http.MethodPatch,
		Body:   req,
		Schema: schema.JSON[OutputBase](),
	}
}

// DeleteBook removes a book. The id travels in the request body.
func DeleteBook(id int64) pipeline.Descriptor[OutputBase] {
	return pipeline.Descriptor[OutputBase]{
		Path:   PathDeleteBook,
		Method: http.MethodDelete,
		Body:   DeleteBookRequest{ID: id},
		Schema: schema.JSON[OutputBase](),
	}
}
