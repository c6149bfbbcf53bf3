// Package colorize highlights disassembly listings for terminal output.
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"chdisasm/internal/disasm"
)

// Disabled reports whether CHDISASM_NO_COLOR turns highlighting off.
func Disabled() bool {
	return os.Getenv("CHDISASM_NO_COLOR") != ""
}

// lexerNames lists chroma lexers in order of preference for each arch.
var lexerNames = map[disasm.Arch][]string{
	disasm.ArchX86:   {"nasm", "gas"},
	disasm.ArchARM:   {"armasm", "gas"},
	disasm.ArchMIPS:  {"gas"},
	disasm.ArchRISCV: {"gas"},
}

// getAssemblyLexer returns an appropriate assembly lexer with fallbacks
func getAssemblyLexer(arch disasm.Arch) chroma.Lexer {
	for _, name := range lexerNames[arch] {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// getDisasmStyle returns the disassembly style with fallbacks
func getDisasmStyle() *chroma.Style {
	for _, name := range []string{"disasm-dark", "dracula", "monokai"} {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Listing highlights a rendered listing for arch. The input is returned
// unchanged when colors are disabled or no lexer is available.
func Listing(code string, arch disasm.Arch) (string, error) {
	if Disabled() {
		return code, nil
	}

	lexer := getAssemblyLexer(arch)
	if lexer == nil {
		return code, nil
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}

	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getDisasmStyle(), iterator); err != nil {
		return code, err
	}
	return buf.String(), nil
}
