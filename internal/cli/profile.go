package cli

import (
	"context"
	"fmt"

	"github.com/semmy-space/shelf/internal/api"
)

// ProfileShowCmd implements the profile show command
type ProfileShowCmd struct{}

// Run fetches the account from the server, bypassing the cache.
func (cmd *ProfileShowCmd) Run(ctx context.Context, sp *SessionProvider, fp *FormatterProvider) error {
	sess, err := sp.Remote()
	if err != nil {
		return err
	}

	user, err := sess.Auth.FetchUser(ctx)
	if err != nil {
		return MapError(err)
	}
	return fp.Formatter.Print(user)
}

// ProfileUpdateCmd implements the profile update command
type ProfileUpdateCmd struct {
	Email    string `help:"New email address (default: current)"`
	Username string `help:"New username (default: current)"`
	Password bool   `help:"Also change the password (prompted)"`
}

// Run executes the update command
func (cmd *ProfileUpdateCmd) Run(ctx context.Context, sp *SessionProvider, globals *Globals, streams *Streams, fp *FormatterProvider) error {
	sess, current, err := sp.SignedIn(ctx)
	if err != nil {
		return MapError(err)
	}

	req := api.UpdateUserRequest{
		Email:    orDefault(cmd.Email, current.Email),
		Username: orDefault(cmd.Username, current.Username),
	}
	if cmd.Password {
		req.Password, err = newPrompter(streams, globals).secret("New password", "")
		if err != nil {
			return err
		}
	}

	user, err := sess.Auth.UpdateProfile(ctx, req)
	if err != nil {
		return MapError(err)
	}

	fmt.Fprintf(streams.Err, "Profile updated\n")
	return fp.Formatter.Print(user)
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
