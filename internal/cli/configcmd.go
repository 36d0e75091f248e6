package cli

import (
	"fmt"
	"os"

	"github.com/semmy-space/shelf/internal/config"
	"github.com/semmy-space/shelf/internal/output"
)

func unknownKey(key string, code int) *output.CLIError {
	return output.NewCLIError(code, fmt.Sprintf("Unknown config key: %s", key)).
		WithHint("Run: shelf config list")
}

// ConfigGetCmd implements config get command
type ConfigGetCmd struct {
	Key string `arg:"" help:"Config key to get (e.g., api_url, timeout)" predictor:"config-key"`
}

// Run executes the get command
func (cmd *ConfigGetCmd) Run(cfg *config.Config, streams *Streams) error {
	value, err := cfg.Get(cmd.Key)
	if err != nil {
		return unknownKey(cmd.Key, output.ExitNotFound)
	}

	fmt.Fprintln(streams.Out, value)
	return nil
}

// ConfigSetCmd implements config set command
type ConfigSetCmd struct {
	Key   string `arg:"" help:"Config key to set" predictor:"config-key"`
	Value string `arg:"" help:"Value to set"`
}

// Run executes the set command
func (cmd *ConfigSetCmd) Run(cfg *config.Config, streams *Streams) error {
	if _, err := cfg.Get(cmd.Key); err != nil {
		return unknownKey(cmd.Key, output.ExitUsage)
	}

	if err := cfg.Set(cmd.Key, cmd.Value); err != nil {
		return output.Wrap(output.ExitUsage, err, "Failed to set %s", cmd.Key)
	}

	fmt.Fprintf(streams.Err, "Set %s = %s\n", cmd.Key, cmd.Value)
	return nil
}

// ConfigUnsetCmd implements config unset command
type ConfigUnsetCmd struct {
	Key string `arg:"" help:"Config key to remove" predictor:"config-key"`
}

// Run executes the unset command
func (cmd *ConfigUnsetCmd) Run(cfg *config.Config, streams *Streams) error {
	if _, err := cfg.Get(cmd.Key); err != nil {
		return unknownKey(cmd.Key, output.ExitUsage)
	}

	if err := cfg.Unset(cmd.Key); err != nil {
		return output.Wrap(output.ExitGeneral, err, "Failed to unset config")
	}

	fmt.Fprintf(streams.Err, "Unset %s\n", cmd.Key)
	return nil
}

// ConfigListConfigCmd implements config list command
type ConfigListConfigCmd struct{}

// Run executes the list command. The encryption secret is never part of the
// config file; its presence is reported from the environment, masked.
func (cmd *ConfigListConfigCmd) Run(cfg *config.Config, globals *Globals, fp *FormatterProvider) error {
	type ConfigItem struct {
		Key   string
		Value string
	}

	var items []ConfigItem
	for _, key := range config.Keys() {
		value, _ := cfg.Get(key)
		items = append(items, ConfigItem{Key: key, Value: value})
	}
	items = append(items, ConfigItem{Key: "secret_key (env)", Value: maskSecret(globals.SecretKey)})

	cols := []output.Column{
		{Name: "Key", Key: "Key"},
		{Name: "Value", Key: "Value"},
	}

	return fp.Formatter.PrintList(items, cols)
}

// maskSecret masks sensitive values, showing only last 4 characters
func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// ConfigPathCmd implements config path command
type ConfigPathCmd struct{}

// Run executes the path command
func (cmd *ConfigPathCmd) Run(cfg *config.Config, streams *Streams) error {
	path := cfg.Path()

	fmt.Fprintln(streams.Out, path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(streams.Err, "(file does not exist yet - will be created on first write)\n")
	} else {
		fmt.Fprintf(streams.Err, "(file exists)\n")
	}

	return nil
}
