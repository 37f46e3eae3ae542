package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/marketplace-adapter/pkg/marketplace"
)

var validFormats = []string{"text", "json"}

type rootOptions struct {
	Program string
	Format  string

	program *marketplace.Program
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "adapterctl",
		Short:         "Offline tooling for the marketplace program",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return errors.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}

			program, err := marketplace.NewProgramFromAddress(opts.Program)
			if err != nil {
				return err
			}
			opts.program = program
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Program, "program", marketplace.DefaultProgramAddress, "marketplace program address")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newDeriveCommand(opts))
	cmd.AddCommand(newDecodeCommand(opts))
	cmd.AddCommand(newInspectCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

// output writes v as indented JSON, or text as is.
func (o *rootOptions) output(w io.Writer, text string, v interface{}) error {
	if o.Format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	}

	_, err := fmt.Fprintln(w, text)
	return err
}
