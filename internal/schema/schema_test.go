package schema

import (
	"errors"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenData struct {
	Token string `json:"token"`
}

func (d tokenData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Token, validation.Required),
	)
}

type loginResponse struct {
	Data tokenData `json:"data"`
}

func (r loginResponse) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Data),
	)
}

type account struct {
	Email string   `json:"email"`
	Tags  []string `json:"tags,omitempty"`
}

func (a *account) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Email, validation.Required, is.Email),
		validation.Field(&a.Tags, validation.Each(validation.Length(2, 0))),
	)
}

func TestJSONSchema(t *testing.T) {
	s := JSON[loginResponse]()

	tests := []struct {
		name      string
		body      string
		wantToken string
		wantPaths []string
	}{
		{
			name:      "valid",
			body:      `{"data":{"token":"abc"}}`,
			wantToken: "abc",
		},
		{
			name:      "wrong type",
			body:      `{"data":{"token":123}}`,
			wantPaths: []string{"data.token"},
		},
		{
			name:      "missing member",
			body:      `{"data":{}}`,
			wantPaths: []string{"data.token"},
		},
		{
			name:      "invalid json",
			body:      `{"data":`,
			wantPaths: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, issues := s.Parse([]byte(tt.body))
			if tt.wantPaths == nil {
				require.Empty(t, issues)
				assert.Equal(t, tt.wantToken, got.Data.Token)
				return
			}

			require.Len(t, issues, len(tt.wantPaths))
			for i, p := range tt.wantPaths {
				assert.Equal(t, p, issues[i].Path)
			}
			assert.Equal(t, loginResponse{}, got)
		})
	}
}

func TestTypeMismatchMessage(t *testing.T) {
	_, issues := JSON[loginResponse]().Parse([]byte(`{"data":{"token":123}}`))
	require.Len(t, issues, 1)
	assert.Equal(t, "data.token Expected string, received number", issues.Error())
}

type shelfEntry struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Year   int     `json:"year"`
	Rating float64 `json:"rating"`
	Note   *string `json:"note"`
	Extra  string  `json:"extra,omitempty"`
}

type shelfPage struct {
	Items []shelfEntry `json:"items"`
	Total int          `json:"total"`
	Meta
}

type Meta struct {
	Code *int `json:"code,omitempty"`
}

func TestShapeIssues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "complete",
			body: `{"items":[{"id":1,"title":"Dune","year":1965,"rating":4.5,"note":null}],"total":1}`,
		},
		{
			name: "missing members",
			body: `{"items":[{"id":1}]}`,
			want: "items.0.title Required, items.0.year Required, items.0.rating Required, total Required",
		},
		{
			name: "every mismatch",
			body: `{"items":[{"id":"1","title":2,"year":"x","rating":true,"note":3}],"total":"1","code":"0"}`,
			want: "items.0.id Expected number, received string, " +
				"items.0.title Expected string, received number, " +
				"items.0.year Expected number, received string, " +
				"items.0.rating Expected number, received boolean, " +
				"items.0.note Expected string, received number, " +
				"total Expected number, received string, " +
				"code Expected number, received string",
		},
		{
			name: "null where a value is required",
			body: `{"items":null,"total":1}`,
			want: "items Expected array, received null",
		},
		{
			name: "fractional integer",
			body: `{"items":[],"total":1.5}`,
			want: "total Expected integer, received float",
		},
		{
			name: "wrong root",
			body: `[1,2]`,
			want: "Expected object, received array",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, issues := JSON[shelfPage]().Parse([]byte(tt.body))
			if tt.want == "" {
				require.Empty(t, issues)
				require.Len(t, got.Items, 1)
				assert.Equal(t, "Dune", got.Items[0].Title)
				return
			}
			assert.Equal(t, tt.want, issues.Error())
			assert.Equal(t, shelfPage{}, got)
		})
	}
}

func TestShapeIssuesSuppressRuleIssues(t *testing.T) {
	_, issues := JSON[loginResponse]().Parse([]byte(`{"data":{"token":123}}`))
	assert.Equal(t, "data.token Expected string, received number", issues.Error())

	_, issues = JSON[loginResponse]().Parse([]byte(`{"data":"abc"}`))
	assert.Equal(t, "data Expected object, received string", issues.Error())

	_, issues = JSON[loginResponse]().Parse([]byte(`{"data":{}}`))
	assert.Equal(t, "data.token Required", issues.Error())
}

func TestPointerReceiverRules(t *testing.T) {
	_, issues := JSON[account]().Parse([]byte(`{"email":"nope","tags":["ok","x"]}`))
	require.Len(t, issues, 2)
	assert.Equal(t, "email", issues[0].Path)
	assert.Equal(t, "tags.1", issues[1].Path)

	got, issues := JSON[account]().Parse([]byte(`{"email":"a@example.com"}`))
	assert.Empty(t, issues)
	assert.Equal(t, "a@example.com", got.Email)
}

func TestTypesWithoutRules(t *testing.T) {
	got, issues := JSON[map[string]int]().Parse([]byte(`{"a":1}`))
	assert.Empty(t, issues)
	assert.Equal(t, map[string]int{"a": 1}, got)

	_, issues = JSON[[]string]().Parse([]byte(`{"a":1}`))
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "Expected array, received object")
}

func TestIssuesError(t *testing.T) {
	issues := Issues{
		{Path: "data.title", Message: "cannot be blank"},
		{Path: "data.year", Message: "must be no less than 1000"},
	}
	assert.Equal(t, "data.title cannot be blank, data.year must be no less than 1000", issues.Error())

	var err error = issues
	var target Issues
	require.True(t, errors.As(err, &target))
	assert.Len(t, target, 2)

	assert.NoError(t, Issues(nil).Err())
	assert.Error(t, issues.Err())
}

func TestFunc(t *testing.T) {
	s := Func[int](func(data []byte) (int, Issues) {
		return len(data), nil
	})
	n, issues := s.Parse([]byte("four"))
	assert.Empty(t, issues)
	assert.Equal(t, 4, n)
}
