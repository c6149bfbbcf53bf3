// Package report renders disassembly listings and string tables as plain
// text and writes them out in a single call.
package report

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/afero"

	"chdisasm/internal/disasm"
	"chdisasm/internal/objfile"
)

// Stdout is the output path that writes to standard output.
const Stdout = "-"

// FormatInst renders one listing line.
func FormatInst(inst disasm.Inst) string {
	return fmt.Sprintf("%08x:\t%-8s\t%s\n", inst.Addr, inst.Mnemonic, inst.Operands)
}

// FormatHeader renders the block that precedes a section's listing.
func FormatHeader(r objfile.Region) string {
	return fmt.Sprintf("Disassembly of section %s:\n  Size: %d\n  Address: %#x\n\n", r.Label, r.Size, r.Addr)
}

// Disassembly decodes every region with d and returns the full listing.
// A decoder panic aborts the report and is returned as an error.
func Disassembly(d disasm.Decoder, regions []objfile.Region) (out string, err error) {
	var sb strings.Builder
	var pc uint64
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("%s decoder failed near %#x: %v", d.Arch(), pc, r)
		}
	}()

	for _, r := range regions {
		if r.Header {
			slog.Info("Disassembling section", "section", r.Label, "addr", fmt.Sprintf("%#x", r.Addr), "size", r.Size)
			sb.WriteString(FormatHeader(r))
		}
		pc = r.Addr
		count := 0
		for inst := range disasm.Walk(d, r.Data, r.Addr) {
			sb.WriteString(FormatInst(inst))
			pc = inst.Addr + uint64(inst.Len)
			count++
		}
		slog.Debug("Region decoded", "region", r.Label, "instructions", count, "end", fmt.Sprintf("%#x", pc))
	}
	return sb.String(), nil
}

// Strings joins extracted strings one per line.
func Strings(list []string) string {
	return strings.Join(list, "\n")
}

// Write replaces the contents of path with content, or copies it to stdout
// when path is Stdout.
func Write(fs afero.Fs, path string, content string, stdout io.Writer) error {
	if path == Stdout {
		if _, err := io.WriteString(stdout, content); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
		return nil
	}
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
