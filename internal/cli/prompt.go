package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/semmy-space/shelf/internal/output"
)

// prompter reads answers from the input stream. Password input is hidden
// when the input is a terminal.
type prompter struct {
	streams *Streams
	noInput bool
	reader  *bufio.Reader
}

func newPrompter(streams *Streams, globals *Globals) *prompter {
	return &prompter{
		streams: streams,
		noInput: globals.NoInput,
		reader:  bufio.NewReader(streams.In),
	}
}

func (p *prompter) missing(what string) error {
	return output.NewCLIError(output.ExitUsage, fmt.Sprintf("%s is required", what)).
		WithHint("Pass it as a flag, or drop --no-input to be prompted")
}

// line asks for a visible value. An existing value is returned as is.
func (p *prompter) line(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	if p.noInput {
		return "", p.missing(label)
	}

	fmt.Fprintf(p.streams.Err, "%s: ", label)
	text, err := p.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", label, err)
	}
	return strings.TrimSpace(text), nil
}

// secret asks for a hidden value. An existing value is returned as is.
func (p *prompter) secret(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	if p.noInput {
		return "", p.missing(label)
	}

	if f, ok := p.streams.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(p.streams.Err, "%s: ", label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.streams.Err)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", label, err)
		}
		return string(b), nil
	}

	// Not a terminal: read a plain line so scripts can pipe the value in.
	return p.line(label, "")
}

// confirm asks a yes/no question. --force answers yes; --no-input refuses.
func (p *prompter) confirm(question string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	if p.noInput {
		return false, output.NewCLIError(output.ExitUsage, "confirmation required").WithHint("Pass --force to skip confirmation")
	}

	answer, err := p.line(question+" [y/N]", "")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}
