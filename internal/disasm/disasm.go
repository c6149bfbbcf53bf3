// Package disasm defines a common instruction representation and the
// per-architecture decoders that produce it.
package disasm

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
)

var (
	// ErrTruncated is returned when the remaining bytes are too short to
	// hold a complete instruction.
	ErrTruncated = errors.New("truncated instruction")
	// ErrInvalid is returned for encodings the decoder does not recognise.
	ErrInvalid = errors.New("invalid instruction")
)

// Inst is a single decoded instruction.
type Inst struct {
	Addr     uint64 // virtual address of instruction
	Len      int    // encoded length in bytes
	Mnemonic string // lowercase, prefixes included
	Operands string // operand text, may be empty
}

// Decoder decodes one instruction at a time.
type Decoder interface {
	// Arch returns the architecture the decoder was built for.
	Arch() Arch
	// Decode decodes the instruction at the start of code, which is
	// loaded at address pc.
	Decode(code []byte, pc uint64) (Inst, error)
}

// New returns the decoder for arch.
func New(arch Arch) (Decoder, error) {
	switch arch {
	case ArchX86:
		return x86Decoder{}, nil
	case ArchARM:
		return armDecoder{}, nil
	case ArchMIPS:
		return mipsDecoder{}, nil
	case ArchRISCV:
		return riscvDecoder{}, nil
	default:
		return nil, fmt.Errorf("no decoder for architecture %d", int(arch))
	}
}

// Walk returns a forward-only sequence of the instructions in code, with
// the first one at base. The sequence ends at the end of code or at the
// first instruction that cannot be decoded.
func Walk(d Decoder, code []byte, base uint64) iter.Seq[Inst] {
	return func(yield func(Inst) bool) {
		pc := base
		for off := 0; off < len(code); {
			inst, err := d.Decode(code[off:], pc)
			if err == nil && inst.Len <= 0 {
				err = fmt.Errorf("%w: zero-length decode", ErrInvalid)
			}
			if err != nil {
				slog.Debug("Decoding stopped",
					"arch", d.Arch().String(),
					"addr", fmt.Sprintf("%#x", pc),
					"remaining", len(code)-off,
					"error", err)
				return
			}
			if !yield(inst) {
				return
			}
			off += inst.Len
			pc += uint64(inst.Len)
		}
	}
}

// splitText separates assembler text into mnemonic and operands. Leading
// prefixes are kept with the mnemonic.
func splitText(text string, prefixes map[string]bool) (string, string) {
	text = strings.TrimSpace(text)
	var mnemonic []string
	for {
		word, rest, _ := strings.Cut(text, " ")
		mnemonic = append(mnemonic, strings.ToLower(word))
		text = strings.TrimSpace(rest)
		if !prefixes[strings.ToLower(word)] || text == "" {
			break
		}
	}
	return strings.Join(mnemonic, " "), text
}
