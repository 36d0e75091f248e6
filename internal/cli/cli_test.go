package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/adrg/xdg"
	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semmy-space/shelf/internal/api"
	"github.com/semmy-space/shelf/internal/app"
	"github.com/semmy-space/shelf/internal/auth"
	"github.com/semmy-space/shelf/internal/output"
	"github.com/semmy-space/shelf/internal/pipeline"
	"github.com/semmy-space/shelf/internal/schema"
	"github.com/semmy-space/shelf/internal/secrets"
)

const testSecret = "cli-test-secret"

// bookServer accepts alice/pw and serves a fixed catalogue to token "tok".
type bookServer struct {
	mu      sync.Mutex
	deleted []int64
}

func (b *bookServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"wrong password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"token":"tok"}}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case api.PathUser:
			_, _ = w.Write([]byte(`{"data":{"id":"1","username":"alice","email":"alice@example.com"}}`))
		case api.PathGetBooks:
			_, _ = w.Write([]byte(`{"data":[` +
				`{"id":1,"title":"Dune","author":"Frank Herbert","year":1965,"category":"SF","createdAt":"2024-01-01","updatedAt":"2024-01-01"},` +
				`{"id":2,"title":"Emma","author":"Jane Austen","year":1815,"category":"Classic","createdAt":"2024-01-02","updatedAt":"2024-01-02"}` +
				`],"totalBooks":2}`))
		case api.PathDeleteBook:
			var req api.DeleteBookRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			b.mu.Lock()
			b.deleted = append(b.deleted, req.ID)
			b.mu.Unlock()
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return mux
}

type harness struct {
	t       *testing.T
	cfgPath string
	apiURL  string
	books   *bookServer
}

// newHarness isolates config and file store in temp directories.
func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("SHELF_QUIET", "1")
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	books := &bookServer{}
	srv := httptest.NewServer(books.handler())
	t.Cleanup(srv.Close)

	return &harness{
		t:       t,
		cfgPath: filepath.Join(dir, "config", "shelf", "config.json5"),
		apiURL:  srv.URL,
		books:   books,
	}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func (h *harness) run(args ...string) result {
	h.t.Helper()

	var out, errOut bytes.Buffer
	root := New(Streams{In: strings.NewReader(""), Out: &out, Err: &errOut})
	root.cfgPath = h.cfgPath

	code := execute(context.Background(), root, "test", args, kong.Exit(func(int) {}))
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

// remote runs a command against the test server with the file store.
func (h *harness) remote(args ...string) result {
	h.t.Helper()
	base := []string{"--api-url", h.apiURL, "--secret-key", testSecret, "--store", "file", "-o", "plain", "--no-input"}
	return h.run(append(base, args...)...)
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	r := h.run("version")
	assert.Equal(t, output.ExitOK, r.code)
	assert.Equal(t, "shelf version test\n", r.stdout)
}

func TestConfigCommands(t *testing.T) {
	h := newHarness(t)

	r := h.run("config", "set", "api_url", "https://books.example.com/api")
	require.Equal(t, output.ExitOK, r.code, r.stderr)

	r = h.run("config", "get", "api_url")
	assert.Equal(t, "https://books.example.com/api\n", r.stdout)

	r = h.run("config", "path")
	assert.Equal(t, h.cfgPath+"\n", r.stdout)

	r = h.run("-o", "plain", "config", "list")
	assert.Contains(t, r.stdout, "api_url\thttps://books.example.com/api")

	r = h.run("config", "get", "region")
	assert.Equal(t, output.ExitNotFound, r.code)

	r = h.run("config", "set", "timeout", "soon")
	assert.Equal(t, output.ExitUsage, r.code)
}

func TestBrokenConfigIsConfigError(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(h.cfgPath), 0700))
	require.NoError(t, os.WriteFile(h.cfgPath, []byte("{not json5"), 0600))

	r := h.run("version")
	assert.Equal(t, output.ExitConfigError, r.code)
	assert.Contains(t, r.stderr, "Failed to load config")
}

func TestLoginWhoamiAndBooks(t *testing.T) {
	h := newHarness(t)

	r := h.remote("auth", "login", "alice", "--password", "pw")
	require.Equal(t, output.ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stderr, "Signed in as alice")

	// A fresh invocation reads the credential back from the file store.
	r = h.remote("auth", "whoami")
	require.Equal(t, output.ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Username\talice")

	r = h.remote("books", "list", "--category", "sf")
	require.Equal(t, output.ExitOK, r.code, r.stderr)
	assert.Equal(t, "ID\tTitle\tAuthor\tYear\tCategory\n1\tDune\tFrank Herbert\t1965\tSF\n", r.stdout)

	r = h.remote("books", "delete", "2", "--force")
	require.Equal(t, output.ExitOK, r.code, r.stderr)
	h.books.mu.Lock()
	assert.Equal(t, []int64{2}, h.books.deleted)
	h.books.mu.Unlock()

	r = h.remote("auth", "logout")
	require.Equal(t, output.ExitOK, r.code, r.stderr)

	r = h.remote("auth", "whoami")
	assert.Equal(t, output.ExitAuth, r.code)
	assert.Contains(t, r.stderr, "hint: Run: shelf auth login")
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t)

	r := h.remote("auth", "login", "alice", "--password", "nope")
	assert.Equal(t, output.ExitAuth, r.code)
	assert.Contains(t, r.stderr, "wrong password")

	r = h.remote("auth", "login", "alice")
	assert.Equal(t, output.ExitUsage, r.code, "password is required with --no-input")

	r = h.run("--api-url", h.apiURL, "--store", "memory", "auth", "login", "alice", "--password", "pw")
	assert.Equal(t, output.ExitConfigError, r.code, "no secret key")
	assert.Contains(t, r.stderr, "SHELF_AES_SECRET_KEY")

	r = h.run("--secret-key", testSecret, "--store", "memory", "auth", "login", "alice", "--password", "pw")
	assert.Equal(t, output.ExitConfigError, r.code, "no api url")
}

func TestStaleCredentialIsAuthError(t *testing.T) {
	h := newHarness(t)

	r := h.remote("store", "set", auth.TokenKey, "stale")
	require.Equal(t, output.ExitOK, r.code, r.stderr)

	r = h.remote("books", "list")
	assert.Equal(t, output.ExitAuth, r.code)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, output.ExitOK, h.remote("auth", "login", "alice", "--password", "pw").code)

	r := h.remote("books", "delete", "1")
	assert.Equal(t, output.ExitUsage, r.code)
	h.books.mu.Lock()
	assert.Empty(t, h.books.deleted)
	h.books.mu.Unlock()
}

func TestTemplateCommands(t *testing.T) {
	h := newHarness(t)

	r := h.remote("template", "get")
	require.Equal(t, output.ExitOK, r.code, r.stderr)
	assert.Equal(t, "0\n", r.stdout)

	require.Equal(t, output.ExitOK, h.remote("template", "set", "2").code)

	r = h.remote("template", "get")
	assert.Equal(t, "2\n", r.stdout)
}

func TestStoreCommands(t *testing.T) {
	h := newHarness(t)

	r := h.remote("store", "set", "prefs", `{"theme":"dark"}`, "--json")
	require.Equal(t, output.ExitOK, r.code, r.stderr)

	r = h.remote("store", "get", "prefs")
	require.Equal(t, output.ExitOK, r.code, r.stderr)
	assert.JSONEq(t, `{"theme":"dark"}`, r.stdout)

	r = h.remote("store", "keys")
	require.Equal(t, output.ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "prefs\tYes")
	assert.Contains(t, r.stderr, "Backend: file")

	// The file only holds ciphertext.
	raw, err := os.ReadFile(secrets.DefaultFilePath())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dark")

	r = h.run("--api-url", h.apiURL, "--secret-key", "other-secret", "--store", "file", "store", "get", "prefs")
	assert.Equal(t, output.ExitNotFound, r.code, "wrong key reads as absent")

	require.Equal(t, output.ExitOK, h.remote("store", "rm", "prefs").code)
	require.Equal(t, output.ExitOK, h.remote("store", "rm", "prefs").code, "removing twice is fine")

	r = h.remote("store", "get", "prefs")
	assert.Equal(t, output.ExitNotFound, r.code)

	r = h.remote("store", "set", "prefs", "{oops", "--json")
	assert.Equal(t, output.ExitUsage, r.code)
}

func TestMetricsFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "shelf.prom")

	r := h.remote("--metrics-file", path, "auth", "login", "alice", "--password", "pw")
	require.Equal(t, output.ExitOK, r.code, r.stderr)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "shelf_requests_total")
	assert.Contains(t, string(data), `shelf_pipeline_outcomes_total{outcome="success"} 1`)
}

func TestMapError(t *testing.T) {
	passthrough := output.NewCLIError(output.ExitForbidden, "nope")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"cli error", passthrough, output.ExitForbidden},
		{"missing key", fmt.Errorf("failed to store token: %w", secrets.ErrMissingKey), output.ExitConfigError},
		{"incomplete", pipeline.ErrIncomplete, output.ExitCanceled},
		{"canceled", context.Canceled, output.ExitCanceled},
		{"deadline", context.DeadlineExceeded, output.ExitTimeout},
		{"input issues", schema.Issues{{Path: "title", Message: "Title is required"}}, output.ExitValidation},
		{"response validation", &pipeline.Error{Status: pipeline.ValidationError, Detail: "Data validation failed: x"}, output.ExitValidation},
		{"no response", &pipeline.Error{Status: pipeline.TransportError, Detail: "dial tcp: refused"}, output.ExitNetworkError},
		{"not authenticated", auth.ErrNotAuthenticated, output.ExitAuth},
		{"rejected", fmt.Errorf("%w: book not found", app.ErrRejected), output.ExitAPIError},
		{"other", errors.New("boom"), output.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ExitCode)
			assert.NotEmpty(t, got.Message)
		})
	}

	missing := MapError(fmt.Errorf("failed to store token: %w", secrets.ErrMissingKey))
	assert.ErrorIs(t, missing, secrets.ErrMissingKey)
	assert.Equal(t, secretHint, missing.Hint)

	var issues schema.Issues
	assert.ErrorAs(t, MapError(schema.Issues{{Path: "year", Message: "Year seems too old"}}), &issues)

	assert.Same(t, passthrough, MapError(passthrough))
	assert.Nil(t, MapError(nil))
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{name: "empty string", value: "", expected: ""},
		{name: "1 char", value: "a", expected: "****"},
		{name: "4 chars", value: "abcd", expected: "****"},
		{name: "5 chars", value: "abcde", expected: "****bcde"},
		{name: "long string", value: "secret-key-12345", expected: "****2345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskSecret(tt.value))
		})
	}
}

func TestFormatBool(t *testing.T) {
	assert.Equal(t, "Yes", formatBool(true))
	assert.Equal(t, "No", formatBool(false))
}
