package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/posener/complete"
	"github.com/willabides/kongplete"

	"github.com/semmy-space/shelf/internal/app"
	"github.com/semmy-space/shelf/internal/auth"
	"github.com/semmy-space/shelf/internal/config"
	"github.com/semmy-space/shelf/internal/output"
)

// NewParser builds the kong parser for root. ctx is bound as context.Context
// for every command's Run method.
func NewParser(ctx context.Context, root *CLI, version string, opts ...kong.Option) (*kong.Kong, error) {
	options := append([]kong.Option{
		kong.Name("shelf"),
		kong.Description("Command-line client for the book catalogue API"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Writers(root.streams.Out, root.streams.Err),
	}, opts...)

	parser, err := kong.New(root, options...)
	if err != nil {
		return nil, err
	}

	// Exits the process when invoked by the shell for completion.
	kongplete.Complete(parser,
		kongplete.WithPredictor("config-key", complete.PredictSet(config.Keys()...)),
		kongplete.WithPredictor("store-key", complete.PredictSet(auth.TokenKey, app.UserKey, app.TemplateKey)),
	)
	return parser, nil
}

// Execute parses args, runs the selected command and returns the exit code.
func Execute(ctx context.Context, streams Streams, version string, args []string, opts ...kong.Option) int {
	return execute(ctx, New(streams), version, args, opts...)
}

func execute(ctx context.Context, root *CLI, version string, args []string, opts ...kong.Option) int {
	parser, err := NewParser(ctx, root, version, opts...)
	if err != nil {
		fmt.Fprintf(root.streams.Err, "error: %v\n", err)
		return output.ExitGeneral
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		var cliErr *output.CLIError
		if errors.As(err, &cliErr) {
			// Raised by BeforeApply, not a usage problem.
			output.ReportError(root.Formatter(), cliErr)
			return cliErr.ExitCode
		}
		parser.Errorf("%s", err)
		return output.ExitUsage
	}

	runErr := kctx.Run()
	closeErr := root.Close()

	if runErr != nil {
		mapped := MapError(runErr)
		output.ReportError(root.Formatter(), mapped)
		return mapped.ExitCode
	}
	if closeErr != nil {
		output.ReportError(root.Formatter(), closeErr)
		return output.ExitGeneral
	}
	return output.ExitOK
}
