package cli

import (
	"encoding/json"
	"fmt"

	"github.com/semmy-space/shelf/internal/output"
	"github.com/semmy-space/shelf/internal/secrets"
)

// StoreGetCmd implements the store get command
type StoreGetCmd struct {
	Name string `arg:"" help:"Key to read" predictor:"store-key"`
}

// Run prints the decrypted value. Strings print as is, structured values as JSON.
func (cmd *StoreGetCmd) Run(sp *SessionProvider, streams *Streams) error {
	sess, err := sp.Session()
	if err != nil {
		return err
	}

	value, ok := sess.Store().Get(cmd.Name)
	if !ok {
		return output.NewCLIError(output.ExitNotFound, fmt.Sprintf("No readable value stored under %q", cmd.Name))
	}

	if s, isString := value.(string); isString {
		fmt.Fprintln(streams.Out, s)
		return nil
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(streams.Out, string(data))
	return nil
}

// StoreSetCmd implements the store set command
type StoreSetCmd struct {
	Name  string `arg:"" help:"Key to write"`
	Value string `arg:"" help:"Value to store"`
	JSON  bool   `help:"Parse the value as JSON before storing" name:"json"`
}

// Run encrypts and stores the value.
func (cmd *StoreSetCmd) Run(sp *SessionProvider, streams *Streams) error {
	sess, err := sp.Session()
	if err != nil {
		return err
	}

	var value any = cmd.Value
	if cmd.JSON {
		if !json.Valid([]byte(cmd.Value)) {
			return output.NewCLIError(output.ExitUsage, "value is not valid JSON")
		}
		value = json.RawMessage(cmd.Value)
	}

	if err := sess.Store().Set(cmd.Name, value); err != nil {
		return MapError(err)
	}
	if sess.Store().Backend() == nil {
		fmt.Fprintf(streams.Err, "No storage backend: value was not saved\n")
		return nil
	}

	fmt.Fprintf(streams.Err, "Stored %s\n", cmd.Name)
	return nil
}

// StoreRmCmd implements the store rm command
type StoreRmCmd struct {
	Name string `arg:"" help:"Key to remove" predictor:"store-key"`
}

// Run removes the key. Removing a missing key is not an error.
func (cmd *StoreRmCmd) Run(sp *SessionProvider, streams *Streams) error {
	sess, err := sp.Session()
	if err != nil {
		return err
	}

	if err := sess.Store().Remove(cmd.Name); err != nil {
		return MapError(err)
	}

	fmt.Fprintf(streams.Err, "Removed %s\n", cmd.Name)
	return nil
}

// StoreClearCmd implements the store clear command
type StoreClearCmd struct{}

// Run removes every stored value after confirmation.
func (cmd *StoreClearCmd) Run(sp *SessionProvider, globals *Globals, streams *Streams) error {
	sess, err := sp.Session()
	if err != nil {
		return err
	}

	ok, err := newPrompter(streams, globals).confirm("Remove every stored value, including the credential?", globals.Force)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(streams.Err, "Aborted\n")
		return nil
	}

	if err := sess.Store().Clear(); err != nil {
		return MapError(err)
	}

	fmt.Fprintf(streams.Err, "Store cleared\n")
	return nil
}

// StoreKeysCmd implements the store keys command
type StoreKeysCmd struct{}

// Run lists stored keys along with the backend holding them.
func (cmd *StoreKeysCmd) Run(sp *SessionProvider, fp *FormatterProvider, streams *Streams) error {
	sess, err := sp.Session()
	if err != nil {
		return err
	}

	keys, err := sess.Store().Keys()
	if err != nil {
		return MapError(err)
	}

	fmt.Fprintf(streams.Err, "Backend: %s\n", secrets.Describe(sess.Store().Backend()))

	type keyItem struct {
		Key      string
		Readable string
	}
	items := make([]keyItem, len(keys))
	for i, k := range keys {
		_, ok := sess.Store().Get(k)
		items[i] = keyItem{Key: k, Readable: formatBool(ok)}
	}

	return fp.Formatter.PrintList(items, []output.Column{
		{Name: "Key", Key: "Key"},
		{Name: "Readable", Key: "Readable"},
	})
}

func formatBool(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
