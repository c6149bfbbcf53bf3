package disasm

import (
	"fmt"
	"strings"

	"golang.org/x/arch/arm/armasm"
)

// armDecoder decodes 32-bit ARM (non-Thumb) code in GNU syntax.
type armDecoder struct{}

func (armDecoder) Arch() Arch { return ArchARM }

func (armDecoder) Decode(code []byte, pc uint64) (Inst, error) {
	if len(code) < 4 {
		return Inst{}, ErrTruncated
	}
	in, err := armasm.Decode(code, armasm.ModeARM)
	if err != nil {
		return Inst{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	mnemonic, operands := splitText(armasm.GNUSyntax(in), nil)
	return Inst{Addr: pc, Len: in.Len, Mnemonic: mnemonic, Operands: armTargets(in, pc, operands)}, nil
}

// armTargets rewrites GNU's ".+off" labels as absolute addresses. The
// offset is relative to pc+8.
func armTargets(in armasm.Inst, pc uint64, operands string) string {
	for _, arg := range in.Args {
		rel, ok := arg.(armasm.PCRel)
		if !ok {
			continue
		}
		target := uint32(pc) + 8 + uint32(int32(rel))
		operands = strings.Replace(operands, fmt.Sprintf(".%+#x", int32(rel)+4), fmt.Sprintf("%#x", target), 1)
	}
	return operands
}
