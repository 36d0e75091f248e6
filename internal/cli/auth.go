package cli

import (
	"context"
	"fmt"

	"github.com/semmy-space/shelf/internal/api"
	"github.com/semmy-space/shelf/internal/secrets"
)

// AuthLoginCmd implements the auth login command
type AuthLoginCmd struct {
	Key      string `arg:"" optional:"" help:"Username or email address"`
	Password string `help:"Password (prompted when omitted)" env:"SHELF_PASSWORD"`
}

// Run executes the login command
func (cmd *AuthLoginCmd) Run(ctx context.Context, sp *SessionProvider, globals *Globals, streams *Streams) error {
	sess, err := sp.Remote()
	if err != nil {
		return err
	}

	p := newPrompter(streams, globals)
	key, err := p.line("Email or username", cmd.Key)
	if err != nil {
		return err
	}
	password, err := p.secret("Password", cmd.Password)
	if err != nil {
		return err
	}

	if err := sess.Auth.Login(ctx, api.LoginRequest{Key: key, Password: password}); err != nil {
		return MapError(err)
	}

	fmt.Fprintf(streams.Err, "Signed in as %s\n", key)
	fmt.Fprintf(streams.Err, "Credential stored in %s\n", secrets.Describe(sess.Store().Backend()))
	return nil
}

// AuthRegisterCmd implements the auth register command
type AuthRegisterCmd struct {
	Email    string `help:"Email address"`
	Username string `help:"Username"`
	Password string `help:"Password (prompted when omitted)" env:"SHELF_PASSWORD"`
}

// Run executes the register command
func (cmd *AuthRegisterCmd) Run(ctx context.Context, sp *SessionProvider, globals *Globals, streams *Streams, fp *FormatterProvider) error {
	sess, err := sp.Remote()
	if err != nil {
		return err
	}

	p := newPrompter(streams, globals)
	email, err := p.line("Email", cmd.Email)
	if err != nil {
		return err
	}
	username, err := p.line("Username", cmd.Username)
	if err != nil {
		return err
	}
	password, err := p.secret("Password", cmd.Password)
	if err != nil {
		return err
	}

	user, err := sess.Auth.Register(ctx, api.RegisterRequest{Email: email, Username: username, Password: password})
	if err != nil {
		return MapError(err)
	}

	fmt.Fprintf(streams.Err, "Account created. Run: shelf auth login %s\n", user.Username)
	return fp.Formatter.Print(user)
}

// AuthLogoutCmd implements the auth logout command
type AuthLogoutCmd struct{}

// Run executes the logout command
func (cmd *AuthLogoutCmd) Run(sp *SessionProvider, streams *Streams) error {
	sess, err := sp.Session()
	if err != nil {
		return err
	}

	if err := sess.Auth.Logout(); err != nil {
		return MapError(err)
	}

	fmt.Fprintf(streams.Err, "Signed out\n")
	return nil
}

// AuthWhoamiCmd implements the auth whoami command
type AuthWhoamiCmd struct{}

// Run executes the whoami command. It answers from the cached user when
// possible and checks the stored credential otherwise.
func (cmd *AuthWhoamiCmd) Run(ctx context.Context, sp *SessionProvider, fp *FormatterProvider) error {
	_, user, err := sp.SignedIn(ctx)
	if err != nil {
		return MapError(err)
	}
	return fp.Formatter.Print(user)
}
