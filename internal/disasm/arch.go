package disasm

import (
	"fmt"
	"strings"
)

// Arch selects the instruction set and mode used to decode code bytes.
type Arch int

const (
	ArchX86   Arch = iota // x86-64
	ArchARM               // 32-bit ARM, non-Thumb
	ArchMIPS              // MIPS32, little endian
	ArchRISCV             // RISC-V 64
)

var archNames = []string{
	ArchX86:   "x86",
	ArchARM:   "arm",
	ArchMIPS:  "mips",
	ArchRISCV: "riscv",
}

// Arches lists the accepted architecture names in declaration order.
func Arches() []string {
	return append([]string(nil), archNames...)
}

// ParseArch maps a command line name onto an Arch.
func ParseArch(s string) (Arch, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range archNames {
		if n == name {
			return Arch(i), nil
		}
	}
	return 0, fmt.Errorf("unknown architecture %q (available: %s)", s, strings.Join(archNames, ", "))
}

func (a Arch) String() string {
	if a < 0 || int(a) >= len(archNames) {
		return fmt.Sprintf("Arch(%d)", int(a))
	}
	return archNames[a]
}

// Set implements pflag.Value.
func (a *Arch) Set(s string) error {
	v, err := ParseArch(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Type implements pflag.Value.
func (a *Arch) Type() string {
	return "arch"
}
