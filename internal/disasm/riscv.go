package disasm

import (
	"fmt"
	"strings"

	"golang.org/x/arch/riscv64/riscv64asm"
)

// riscvDecoder decodes RV64GC code, compressed instructions included.
type riscvDecoder struct{}

func (riscvDecoder) Arch() Arch { return ArchRISCV }

func (riscvDecoder) Decode(code []byte, pc uint64) (Inst, error) {
	// The two low bits select between 16-bit and 32-bit encodings.
	switch {
	case len(code) < 2:
		return Inst{}, ErrTruncated
	case code[0]&0x3 == 0x3 && len(code) < 4:
		return Inst{}, ErrTruncated
	}
	in, err := riscv64asm.Decode(code)
	if err != nil {
		return Inst{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	mnemonic, operands := splitText(riscv64asm.GNUSyntax(in), nil)
	return Inst{Addr: pc, Len: in.Len, Mnemonic: mnemonic, Operands: riscvTarget(in, pc, operands)}, nil
}

// riscvTarget replaces the pc-relative offset that GNU syntax prints as the
// last operand of a branch or jal with the absolute target.
func riscvTarget(in riscv64asm.Inst, pc uint64, operands string) string {
	var off riscv64asm.Simm
	switch in.Op {
	case riscv64asm.BEQ, riscv64asm.BNE, riscv64asm.BLT, riscv64asm.BGE, riscv64asm.BLTU, riscv64asm.BGEU:
		off = in.Args[2].(riscv64asm.Simm)
	case riscv64asm.JAL:
		off = in.Args[1].(riscv64asm.Simm)
	default:
		return operands
	}
	target := fmt.Sprintf("%#x", pc+uint64(int64(off.Imm)))
	i := strings.LastIndexByte(operands, ',')
	return operands[:i+1] + target
}
