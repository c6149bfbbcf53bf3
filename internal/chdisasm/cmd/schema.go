package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

// Config mirrors the root command flags.
type Config struct {
	File    string `json:"file" jsonschema:"title=Input,description=Input binary file"`
	Output  string `json:"output,omitempty" jsonschema:"title=Output,description=Disassembly output path; - writes to stdout"`
	Arch    string `json:"arch,omitempty" jsonschema:"title=Architecture,enum=x86,enum=arm,enum=mips,enum=riscv,default=x86"`
	Strings string `json:"strings,omitempty" jsonschema:"title=Strings,description=String extraction output path; disables disassembly"`
	Debug   bool   `json:"debug,omitempty" jsonschema:"title=Debug,description=Enable debug logging"`
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "schema",
		Short:  "Generate JSON schema for configuration",
		Long:   "Generate JSON schema for the chdisasm configuration",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reflector := new(jsonschema.Reflector)
			bts, err := json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bts))
			return nil
		},
	}
}
