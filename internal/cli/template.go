package cli

import (
	"fmt"
)

// TemplateGetCmd implements the template get command
type TemplateGetCmd struct{}

// Run prints the selected template number.
func (cmd *TemplateGetCmd) Run(sp *SessionProvider, streams *Streams) error {
	sess, err := sp.Session()
	if err != nil {
		return err
	}

	value, _ := sess.Template.Get()
	fmt.Fprintf(streams.Out, "%d\n", value)
	return nil
}

// TemplateSetCmd implements the template set command
type TemplateSetCmd struct {
	Value int `arg:"" help:"Template number"`
}

// Run persists the selection.
func (cmd *TemplateSetCmd) Run(sp *SessionProvider, streams *Streams) error {
	sess, err := sp.Session()
	if err != nil {
		return err
	}

	if err := sess.Template.Set(cmd.Value); err != nil {
		return MapError(err)
	}

	fmt.Fprintf(streams.Err, "Template set to %d\n", cmd.Value)
	return nil
}
