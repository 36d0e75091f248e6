// Package api describes the book-management REST API: payload types with
// their validation rules and ready-made pipeline descriptors.
package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// User is the account returned by /user, /register and PUT /user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u User) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.ID, validation.Required),
		validation.Field(&u.Username, validation.Required),
		validation.Field(&u.Email, validation.Required, is.Email),
	)
}

// UserResponse wraps a User. It is also the cached form of the signed-in user.
type UserResponse struct {
	Data User `json:"data"`
}

func (r UserResponse) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Data),
	)
}

// Token carries the credential issued by /login.
type Token struct {
	Token string `json:"token"`
}

func (t Token) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Token, validation.Required),
	)
}

// LoginResponse is the body of a successful /login.
type LoginResponse struct {
	Data Token `json:"data"`
}

func (r LoginResponse) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Data),
	)
}

// Book is one entry of the catalogue. Every member must be present in a
// response; schema.JSON reports the missing ones.
type Book struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Year      int    `json:"year"`
	Category  string `json:"category"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// OutputBase is the result envelope of every book mutation.
type OutputBase struct {
	ResultCode   *int    `json:"resultCode,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
}

// Message returns the server-side error message, if any.
func (o OutputBase) Message() string {
	if o.ErrorMessage == nil {
		return ""
	}
	return *o.ErrorMessage
}

// BooksResponse is the body of GetBooks. data and totalBooks are required,
// the OutputBase members are optional.
type BooksResponse struct {
	Data       []Book `json:"data"`
	TotalBooks int    `json:"totalBooks"`
	OutputBase
}

func (r BooksResponse) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Data, validation.NotNil),
	)
}

// LoginRequest is posted to /login. Key is a username or an email address.
type LoginRequest struct {
	Key      string `json:"key"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Key, validation.Required.Error("Email/Username is required")),
		validation.Field(&r.Password, validation.Required.Error("Password is required")),
	)
}

// RegisterRequest is posted to /register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// UpdateUserRequest is sent with PUT /user. An empty password is omitted
// from the body and leaves the password unchanged.
type UpdateUserRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Username, validation.Required),
	)
}

// BookInput is the body of AddBook.
type BookInput struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Year     int    `json:"year"`
	Category string `json:"category"`
}

func (b BookInput) Validate() error {
	return validation.ValidateStruct(&b, bookRules(&b.Title, &b.Author, &b.Year, &b.Category)...)
}

// UpdateBookRequest is the body of UpdateBook.
type UpdateBookRequest struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Year     int    `json:"year"`
	Category string `json:"category"`
}

func (r UpdateBookRequest) Validate() error {
	rules := append([]*validation.FieldRules{
		validation.Field(&r.ID, validation.Required),
	}, bookRules(&r.Title, &r.Author, &r.Year, &r.Category)...)
	return validation.ValidateStruct(&r, rules...)
}

// DeleteBookRequest is the body of DeleteBook.
type DeleteBookRequest struct {
	ID int64 `json:"id"`
}

func (r DeleteBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
	)
}

// MinYear is the earliest publication year accepted for a book.
const MinYear = 1000

func bookRules(title, author *string, year *int, category *string) []*validation.FieldRules {
	return []*validation.FieldRules{
		validation.Field(title, validation.Required.Error("Title is required")),
		validation.Field(author, validation.Required.Error("Author is required")),
		validation.Field(year,
			validation.Required.Error("Year must be a number"),
			validation.Min(MinYear).Error("Year seems too old"),
			validation.Max(time.Now().Year()).Error("Year cannot be in the future"),
		),
		validation.Field(category, validation.Required.Error("Category is required")),
	}
}
