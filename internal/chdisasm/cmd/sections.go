package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"chdisasm/internal/chdisasm/styles"
	"chdisasm/internal/objfile"
)

func newSectionsCmd(fs afero.Fs) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "sections",
		Short: "List the sections of an object file",
		Long: `List the container format, declared machine and sections of the input.
The section that would be disassembled is marked.`,
		Example: `
chdisasm sections -f ./a.out
  `,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readInput(fs, file)
			if err != nil {
				return err
			}

			md := sectionsMarkdown(file, objfile.Load(data))
			out := cmd.OutOrStdout()
			if !isTerminal(out) {
				_, err := fmt.Fprint(out, md)
				return err
			}

			width := 80
			if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
				width = w
			}
			r, err := styles.GetMarkdownRenderer(width - 2)
			if err != nil {
				return fmt.Errorf("create renderer: %w", err)
			}
			rendered, err := r.Render(md)
			if err != nil {
				return fmt.Errorf("render sections: %w", err)
			}
			_, err = fmt.Fprint(out, rendered)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Input binary file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// sectionsMarkdown describes im as a markdown document with one table row
// per section.
func sectionsMarkdown(name string, im *objfile.Image) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", name)

	if !im.Structured() {
		fmt.Fprintf(&sb, "**Format:** flat image, %d bytes disassembled at `%#x`\n", len(im.Raw), objfile.FlatBase)
		return sb.String()
	}

	machine := lo.Ternary(im.Machine == "", "unknown", im.Machine)
	fmt.Fprintf(&sb, "**Format:** %s  \n**Machine:** %s\n\n", im.Format, machine)

	code, hasCode := im.CodeSection()
	rows := lo.Map(im.Sections, func(s objfile.Section, i int) string {
		mark := ""
		if hasCode && s.Name == code.Label && s.Addr == code.Addr {
			mark = "code"
		}
		return fmt.Sprintf("| %d | `%s` | %#x | %d | %s |", i, s.Name, s.Addr, s.Size, mark)
	})

	sb.WriteString("| # | Name | Address | Size | Disassembled |\n")
	sb.WriteString("|---:|---|---:|---:|---|\n")
	sb.WriteString(strings.Join(rows, "\n"))
	sb.WriteString("\n")
	return sb.String()
}
