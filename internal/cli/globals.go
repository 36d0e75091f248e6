package cli

import (
	"os"
	"time"

	"golang.org/x/term"
)

// Globals holds global flags available to all commands
type Globals struct {
	APIURL       string        `help:"API base URL (overrides config api_url)" name:"api-url" env:"SHELF_API_URL"`
	SecretKey    string        `help:"Secret used to encrypt stored data" name:"secret-key" env:"SHELF_AES_SECRET_KEY"`
	StoreBackend string        `help:"Storage backend" name:"store" enum:"auto,keyring,file,memory,none," default:"" env:"SHELF_STORE"`
	Output       string        `help:"Output format" default:"" enum:"json,plain,rich,auto," short:"o" env:"SHELF_OUTPUT"`
	Timeout      time.Duration `help:"Per-request timeout (overrides config timeout)" env:"SHELF_TIMEOUT"`
	Verbose      bool          `help:"Verbose output" short:"v" env:"SHELF_VERBOSE"`
	NoInput      bool          `help:"Disable interactive prompts (fail instead)" env:"SHELF_NO_INPUT"`
	Force        bool          `help:"Skip confirmation prompts for destructive operations" env:"SHELF_FORCE"`
	MetricsFile  string        `help:"Write request metrics in Prometheus text format to this file on exit" name:"metrics-file" type:"path" env:"SHELF_METRICS_FILE"`
}

// ResolvedOutput returns the effective output mode: flag > config > auto.
// "auto" detects TTY: if stdout is TTY -> rich, else -> plain
func (g *Globals) ResolvedOutput(configured string) string {
	mode := g.Output
	if mode == "" {
		mode = configured
	}
	if mode != "" && mode != "auto" {
		return mode
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "rich"
	}

	return "plain"
}
