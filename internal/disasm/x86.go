package disasm

import (
	"errors"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

var x86Prefixes = map[string]bool{
	"rep": true, "repe": true, "repz": true, "repne": true, "repnz": true,
	"lock": true, "bnd": true, "notrack": true,
	"xacquire": true, "xrelease": true,
	"data16": true, "addr32": true,
}

// x86Decoder decodes 64-bit x86 code and renders it in Intel syntax.
type x86Decoder struct{}

func (x86Decoder) Arch() Arch { return ArchX86 }

func (x86Decoder) Decode(code []byte, pc uint64) (Inst, error) {
	in, err := x86asm.Decode(code, 64)
	if err != nil {
		if errors.Is(err, x86asm.ErrTruncated) {
			return Inst{}, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		return Inst{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	// x86asm reports a dangling prefix or opcode byte as an Inst with no Op.
	if in.Op == 0 {
		if in.Len >= len(code) {
			return Inst{}, ErrTruncated
		}
		return Inst{}, fmt.Errorf("%w: stray byte %#02x", ErrInvalid, code[0])
	}
	mnemonic, operands := splitText(x86asm.IntelSyntax(in, pc, nil), x86Prefixes)
	return Inst{Addr: pc, Len: in.Len, Mnemonic: mnemonic, Operands: operands}, nil
}
