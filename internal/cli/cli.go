package cli

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/willabides/kongplete"

	"github.com/semmy-space/shelf/internal/config"
	"github.com/semmy-space/shelf/internal/logging"
	"github.com/semmy-space/shelf/internal/output"
)

// FormatterProvider wraps the formatter interface for Kong binding
type FormatterProvider struct {
	Formatter output.Formatter
}

// Streams are the process streams commands read from and write to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// CLI is the root command structure
type CLI struct {
	Globals

	Auth       AuthCmd                       `cmd:"" help:"Sign in, register and sign out"`
	Profile    ProfileCmd                    `cmd:"" help:"Show or update the signed-in account"`
	Books      BooksCmd                      `cmd:"" help:"Manage the book catalogue"`
	Template   TemplateCmd                   `cmd:"" help:"Show or choose the display template"`
	Store      StoreCmd                      `cmd:"" help:"Inspect the encrypted local store"`
	Config     ConfigCmd                     `cmd:"" help:"Configuration commands"`
	Completion kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`
	Version    VersionCmd                    `cmd:"" help:"Show version information"`

	streams  Streams
	sessions *SessionProvider
	cfgPath  string
}

// New creates the root command. Nil streams default to the process streams.
func New(streams Streams) *CLI {
	if streams.In == nil {
		streams.In = os.Stdin
	}
	if streams.Out == nil {
		streams.Out = os.Stdout
	}
	if streams.Err == nil {
		streams.Err = os.Stderr
	}
	return &CLI{streams: streams}
}

// BeforeApply hook runs before any command execution
// It loads config, creates formatter and session provider, and binds dependencies
func (c *CLI) BeforeApply(ctx *kong.Context) error {
	path := c.cfgPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return output.Wrap(output.ExitConfigError, err, "Failed to load config")
	}

	formatter := &FormatterProvider{
		Formatter: output.NewWithWriters(c.ResolvedOutput(cfg.DefaultOutput), c.streams.Out, c.streams.Err),
	}

	log := logging.New(c.streams.Err, c.Verbose)
	c.sessions = NewSessionProvider(cfg, &c.Globals, log)

	ctx.Bind(cfg)
	ctx.Bind(formatter)
	ctx.Bind(&c.Globals)
	ctx.Bind(&c.streams)
	ctx.Bind(c.sessions)

	return nil
}

// Formatter returns a formatter for reporting errors outside a command.
func (c *CLI) Formatter() output.Formatter {
	return output.NewWithWriters(c.ResolvedOutput(""), c.streams.Out, c.streams.Err)
}

// Close releases the session, if one was opened, and writes the metrics
// file when requested.
func (c *CLI) Close() error {
	if c.sessions == nil {
		return nil
	}
	return c.sessions.Close()
}

// AuthCmd holds authentication subcommands
type AuthCmd struct {
	Login    AuthLoginCmd    `cmd:"" help:"Sign in and store the credential"`
	Register AuthRegisterCmd `cmd:"" help:"Create an account"`
	Logout   AuthLogoutCmd   `cmd:"" help:"Remove the stored credential and cached user"`
	Whoami   AuthWhoamiCmd   `cmd:"" help:"Show the signed-in user"`
}

// ProfileCmd holds profile subcommands
type ProfileCmd struct {
	Show   ProfileShowCmd   `cmd:"" help:"Show the account fetched from the server"`
	Update ProfileUpdateCmd `cmd:"" help:"Change email, username or password"`
}

// BooksCmd holds book subcommands
type BooksCmd struct {
	List   BooksListCmd   `cmd:"" help:"List books"`
	Add    BooksAddCmd    `cmd:"" help:"Add a book"`
	Update BooksUpdateCmd `cmd:"" help:"Update a book"`
	Delete BooksDeleteCmd `cmd:"" help:"Delete a book"`
}

// TemplateCmd holds template subcommands
type TemplateCmd struct {
	Get TemplateGetCmd `cmd:"" help:"Show the selected template"`
	Set TemplateSetCmd `cmd:"" help:"Select a template"`
}

// StoreCmd holds store subcommands
type StoreCmd struct {
	Get   StoreGetCmd   `cmd:"" help:"Decrypt and print a stored value"`
	Set   StoreSetCmd   `cmd:"" help:"Encrypt and store a value"`
	Rm    StoreRmCmd    `cmd:"" help:"Remove a stored value"`
	Clear StoreClearCmd `cmd:"" help:"Remove every stored value"`
	Keys  StoreKeysCmd  `cmd:"" help:"List stored keys"`
}

// ConfigCmd holds configuration subcommands
type ConfigCmd struct {
	Get   ConfigGetCmd        `cmd:"" help:"Get a configuration value"`
	Set   ConfigSetCmd        `cmd:"" help:"Set a configuration value"`
	Unset ConfigUnsetCmd      `cmd:"" help:"Remove a configuration value"`
	List  ConfigListConfigCmd `cmd:"" name:"list" help:"List all configuration values"`
	Path  ConfigPathCmd       `cmd:"" help:"Show config file path"`
}

// VersionCmd shows version information
type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *kong.Context, streams *Streams) error {
	version := ctx.Model.Vars()["version"]
	_, err := io.WriteString(streams.Out, "shelf version "+version+"\n")
	return err
}
