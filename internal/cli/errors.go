package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/semmy-space/shelf/internal/app"
	"github.com/semmy-space/shelf/internal/auth"
	"github.com/semmy-space/shelf/internal/output"
	"github.com/semmy-space/shelf/internal/pipeline"
	"github.com/semmy-space/shelf/internal/schema"
	"github.com/semmy-space/shelf/internal/secrets"
)

const (
	loginHint  = "Run: shelf auth login"
	secretHint = "Set SHELF_AES_SECRET_KEY or pass --secret-key"
)

// MapError turns a command error into a *output.CLIError with an exit code.
// Errors that already are CLIErrors pass through unchanged.
func MapError(err error) *output.CLIError {
	if err == nil {
		return nil
	}

	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	if errors.Is(err, secrets.ErrMissingKey) {
		return output.Wrap(output.ExitConfigError, err, "Cannot write to the store").WithHint(secretHint)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return output.Wrap(output.ExitTimeout, err, "Request timed out")
	}
	if errors.Is(err, pipeline.ErrIncomplete) || errors.Is(err, context.Canceled) {
		return output.Wrap(output.ExitCanceled, err, "Canceled")
	}

	var pErr *pipeline.Error
	if errors.As(err, &pErr) {
		return mapPipelineError(err, pErr)
	}

	var issues schema.Issues
	if errors.As(err, &issues) {
		return output.Wrap(output.ExitValidation, err, "Invalid input")
	}

	if errors.Is(err, auth.ErrNotAuthenticated) {
		return output.Wrap(output.ExitAuth, err, "Not signed in").WithHint(loginHint)
	}

	if errors.Is(err, app.ErrRejected) {
		return output.Wrap(output.ExitAPIError, err, "Server rejected the request")
	}

	return output.Wrap(output.ExitGeneral, err, "Command failed")
}

func mapPipelineError(err error, pErr *pipeline.Error) *output.CLIError {
	if pErr.Status == pipeline.ValidationError {
		return output.Wrap(output.ExitValidation, err, "Unexpected response")
	}

	switch code := pErr.StatusCode(); {
	case pErr.Unauthorized():
		return output.Wrap(output.ExitAuth, err, "Authentication failed").WithHint(loginHint)
	case code == http.StatusNotFound:
		return output.Wrap(output.ExitNotFound, err, "Not found")
	case code == http.StatusConflict:
		return output.Wrap(output.ExitConflict, err, "Conflict")
	case code == http.StatusTooManyRequests:
		return output.Wrap(output.ExitRateLimit, err, "Rate limited").WithHint("Lower config rate_limit or retry later")
	case code > 0:
		return output.Wrap(output.ExitAPIError, err, "API error")
	default:
		return output.Wrap(output.ExitNetworkError, err, "Request failed").WithHint("Check api_url and your network connection")
	}
}
