package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/pprof"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"chdisasm/internal/chdisasm/log"
	"chdisasm/internal/disasm"
	"chdisasm/internal/objfile"
	"chdisasm/internal/report"
	"chdisasm/internal/strscan"
	"chdisasm/internal/ui/colorize"
)

// errOutputRequired is returned when disassembly is requested without an
// output path.
var errOutputRequired = errors.New("output file is required for disassembly")

// options holds the parsed root command flags.
type options struct {
	file    string
	output  string
	strings string
	arch    disasm.Arch
}

// NewRootCmd builds the command tree. All file access goes through fs.
func NewRootCmd(fs afero.Fs) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "chdisasm",
		Short: "A simple disassembler CLI",
		Long: `chdisasm disassembles the code section of an ELF, PE or Mach-O file, or a
whole flat binary loaded at 0x1000, and writes the listing to a file.
With --strings it extracts printable strings instead.`,
		Example: `
# Disassemble an x86-64 executable
chdisasm -f ./a.out -o a.asm

# Disassemble a raw MIPS image
chdisasm -f firmware.bin -a mips -o firmware.asm

# Extract strings instead
chdisasm -f ./a.out -s strings.txt
  `,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			log.Setup(debug)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			stop, err := startProfiling(cmd)
			if err != nil {
				return err
			}
			defer stop()

			return run(fs, opts, cmd.OutOrStdout())
		},
	}

	cmd.PersistentFlags().BoolP("debug", "d", false, "Debug")

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "Input binary file")
	flags.StringVarP(&opts.output, "output", "o", "", "Output assembly file (required for disassembly, optional for strings)")
	flags.VarP(&opts.arch, "arch", "a", "Architecture (available: x86, arm (not thumb), mips, riscv)")
	flags.StringVarP(&opts.strings, "strings", "s", "", "Extract strings and write them to this file")
	flags.String("cpuprofile", "", "Write CPU profile to file")
	flags.String("memprofile", "", "Write memory profile to file")
	_ = flags.MarkHidden("cpuprofile")
	_ = flags.MarkHidden("memprofile")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.RegisterFlagCompletionFunc("arch", cobra.FixedCompletions(disasm.Arches(), cobra.ShellCompDirectiveNoFileComp))

	cmd.AddCommand(newSectionsCmd(fs), newSchemaCmd())
	return cmd
}

// run executes one invocation: string extraction when a strings path is
// set, disassembly otherwise.
func run(fs afero.Fs, opts options, stdout io.Writer) error {
	if opts.strings != "" {
		return runStrings(fs, opts, stdout)
	}
	if opts.output == "" {
		return errOutputRequired
	}

	dec, err := disasm.New(opts.arch)
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	data, err := readInput(fs, opts.file)
	if err != nil {
		return err
	}

	im := objfile.Load(data)
	slog.Debug("Loaded input", "file", opts.file, "format", im.Format.String(), "sections", len(im.Sections), "bytes", len(data))
	if im.Machine != "" && im.Machine != opts.arch.String() {
		slog.Warn("Container machine differs from selected architecture", "machine", im.Machine, "arch", opts.arch.String())
	}

	listing, err := report.Disassembly(dec, im.Regions())
	if err != nil {
		return err
	}

	if opts.output == report.Stdout && isTerminal(stdout) {
		if colored, err := colorize.Listing(listing, opts.arch); err == nil {
			listing = colored
		} else {
			slog.Debug("Highlighting failed", "error", err)
		}
	}

	if err := report.Write(fs, opts.output, listing, stdout); err != nil {
		return err
	}
	confirm(stdout, "Disassembly written to", opts.output)
	return nil
}

func runStrings(fs afero.Fs, opts options, stdout io.Writer) error {
	data, err := readInput(fs, opts.file)
	if err != nil {
		return err
	}

	found := strscan.Extract(data, strscan.DefaultMinLength)
	slog.Debug("Extracted strings", "file", opts.file, "count", len(found))

	if err := report.Write(fs, opts.strings, report.Strings(found), stdout); err != nil {
		return err
	}
	confirm(stdout, "Strings written to", opts.strings)
	return nil
}

func readInput(fs afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// confirm prints the success line naming the written file. Nothing is
// printed when the report itself went to stdout.
func confirm(w io.Writer, msg, path string) {
	if path == report.Stdout {
		return
	}
	if isTerminal(w) {
		path = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Render(path)
	}
	fmt.Fprintf(w, "%s %s\n", msg, path)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// startProfiling honours --cpuprofile and --memprofile. The returned func
// stops CPU profiling and writes the heap profile.
func startProfiling(cmd *cobra.Command) (func(), error) {
	var stops []func()
	stop := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}

	cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return nil, fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("could not start CPU profile: %w", err)
		}
		stops = append(stops, func() {
			pprof.StopCPUProfile()
			f.Close()
		})
	}

	memprofile, _ := cmd.Flags().GetString("memprofile")
	if memprofile != "" {
		stops = append(stops, func() {
			f, err := os.Create(memprofile)
			if err != nil {
				slog.Error("Could not create memory profile", "error", err)
				return
			}
			defer f.Close()
			if err := pprof.WriteHeapProfile(f); err != nil {
				slog.Error("Could not write memory profile", "error", err)
			}
		})
	}

	return stop, nil
}

// printError keeps the single "Error: " line format under fang.
func printError(w io.Writer, _ fang.Styles, err error) {
	fmt.Fprintf(w, "Error: %s\n", err)
}

func Execute() {
	root := NewRootCmd(afero.NewOsFs())

	var err error
	if term.IsTerminal(os.Stdout.Fd()) {
		// fang adds styled help and interrupt handling on a terminal
		err = fang.Execute(
			context.Background(),
			root,
			fang.WithNotifySignal(os.Interrupt),
			fang.WithErrorHandler(printError),
		)
	} else {
		err = root.Execute()
	}

	if cerr := log.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "Error: close log: %v\n", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
