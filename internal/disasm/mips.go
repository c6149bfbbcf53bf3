package disasm

import (
	"encoding/binary"
	"fmt"
)

var mipsGPR = [32]string{
	"$zero", "$at", "$v0", "$v1", "$a0", "$a1", "$a2", "$a3",
	"$t0", "$t1", "$t2", "$t3", "$t4", "$t5", "$t6", "$t7",
	"$s0", "$s1", "$s2", "$s3", "$s4", "$s5", "$s6", "$s7",
	"$t8", "$t9", "$k0", "$k1", "$gp", "$sp", "$fp", "$ra",
}

// mipsDecoder decodes little-endian MIPS32 release 2 integer, COP0 and
// basic COP1 instructions. golang.org/x/arch has no MIPS package.
type mipsDecoder struct{}

func (mipsDecoder) Arch() Arch { return ArchMIPS }

// mipsWord holds the fields shared by every MIPS32 encoding.
type mipsWord struct {
	w     uint32
	pc    uint64
	op    uint32
	rs    uint32
	rt    uint32
	rd    uint32
	sa    uint32
	funct uint32
}

func (m mipsWord) simm() int64 { return int64(int16(m.w)) }

func (m mipsWord) uimm() uint32 { return m.w & 0xffff }

func (m mipsWord) reg(r uint32) string { return mipsGPR[r&31] }

func (m mipsWord) branch() string {
	return fmt.Sprintf("%#x", m.pc+4+uint64(m.simm()<<2))
}

func (m mipsWord) jump() string {
	return fmt.Sprintf("%#x", ((m.pc+4)&^0x0fffffff)|uint64(m.w&0x03ffffff)<<2)
}

func (m mipsWord) mem() string {
	return fmt.Sprintf("%s(%s)", mipsImm(m.simm()), m.reg(m.rs))
}

// mipsImm prints small values in decimal and everything else in hex.
func mipsImm(v int64) string {
	switch {
	case v > 9:
		return fmt.Sprintf("%#x", v)
	case v < -9:
		return fmt.Sprintf("-%#x", -v)
	default:
		return fmt.Sprintf("%d", v)
	}
}

func (d mipsDecoder) Decode(code []byte, pc uint64) (Inst, error) {
	if len(code) < 4 {
		return Inst{}, ErrTruncated
	}
	w := binary.LittleEndian.Uint32(code)
	m := mipsWord{
		w:     w,
		pc:    pc,
		op:    w >> 26,
		rs:    (w >> 21) & 31,
		rt:    (w >> 16) & 31,
		rd:    (w >> 11) & 31,
		sa:    (w >> 6) & 31,
		funct: w & 63,
	}

	var mnemonic, operands string
	var ok bool
	switch m.op {
	case 0x00:
		mnemonic, operands, ok = m.special()
	case 0x01:
		mnemonic, operands, ok = m.regimm()
	case 0x10:
		mnemonic, operands, ok = m.cop0()
	case 0x11:
		mnemonic, operands, ok = m.cop1()
	case 0x1c:
		mnemonic, operands, ok = m.special2()
	case 0x1f:
		mnemonic, operands, ok = m.special3()
	default:
		mnemonic, operands, ok = m.immediate()
	}
	if !ok {
		return Inst{}, fmt.Errorf("%w: %#08x", ErrInvalid, w)
	}
	return Inst{Addr: pc, Len: 4, Mnemonic: mnemonic, Operands: operands}, nil
}

func (m mipsWord) special() (string, string, bool) {
	rd, rs, rt := m.reg(m.rd), m.reg(m.rs), m.reg(m.rt)
	three := func(op string) (string, string, bool) {
		return op, rd + ", " + rs + ", " + rt, true
	}
	shift := func(op string) (string, string, bool) {
		return op, fmt.Sprintf("%s, %s, %d", rd, rt, m.sa), true
	}
	shiftv := func(op string) (string, string, bool) {
		return op, rd + ", " + rt + ", " + rs, true
	}
	trap := func(op string) (string, string, bool) {
		return op, rs + ", " + rt, true
	}

	switch m.funct {
	case 0x00:
		switch m.w {
		case 0:
			return "nop", "", true
		case 0x40:
			return "ssnop", "", true
		case 0xc0:
			return "ehb", "", true
		}
		return shift("sll")
	case 0x02:
		if m.rs == 1 {
			return shift("rotr")
		}
		return shift("srl")
	case 0x03:
		return shift("sra")
	case 0x04:
		return shiftv("sllv")
	case 0x06:
		if m.sa == 1 {
			return shiftv("rotrv")
		}
		return shiftv("srlv")
	case 0x07:
		return shiftv("srav")
	case 0x08:
		return "jr", rs, true
	case 0x09:
		if m.rd == 31 {
			return "jalr", rs, true
		}
		return "jalr", rd + ", " + rs, true
	case 0x0a:
		return three("movz")
	case 0x0b:
		return three("movn")
	case 0x0c, 0x0d:
		op := "syscall"
		if m.funct == 0x0d {
			op = "break"
		}
		if code := (m.w >> 6) & 0xfffff; code != 0 {
			return op, mipsImm(int64(code)), true
		}
		return op, "", true
	case 0x0f:
		if m.sa != 0 {
			return "sync", mipsImm(int64(m.sa)), true
		}
		return "sync", "", true
	case 0x10:
		return "mfhi", rd, true
	case 0x11:
		return "mthi", rs, true
	case 0x12:
		return "mflo", rd, true
	case 0x13:
		return "mtlo", rs, true
	case 0x18:
		return trap("mult")
	case 0x19:
		return trap("multu")
	case 0x1a:
		return trap("div")
	case 0x1b:
		return trap("divu")
	case 0x20:
		return three("add")
	case 0x21:
		if m.rt == 0 {
			return "move", rd + ", " + rs, true
		}
		return three("addu")
	case 0x22:
		return three("sub")
	case 0x23:
		if m.rs == 0 {
			return "negu", rd + ", " + rt, true
		}
		return three("subu")
	case 0x24:
		return three("and")
	case 0x25:
		if m.rt == 0 {
			return "move", rd + ", " + rs, true
		}
		return three("or")
	case 0x26:
		return three("xor")
	case 0x27:
		if m.rt == 0 {
			return "not", rd + ", " + rs, true
		}
		return three("nor")
	case 0x2a:
		return three("slt")
	case 0x2b:
		return three("sltu")
	case 0x30:
		return trap("tge")
	case 0x31:
		return trap("tgeu")
	case 0x32:
		return trap("tlt")
	case 0x33:
		return trap("tltu")
	case 0x34:
		return trap("teq")
	case 0x36:
		return trap("tne")
	}
	return "", "", false
}

var (
	mipsRegimmBranches = map[uint32]string{
		0x00: "bltz", 0x01: "bgez", 0x02: "bltzl", 0x03: "bgezl",
		0x10: "bltzal", 0x11: "bgezal", 0x12: "bltzall", 0x13: "bgezall",
	}

	mipsRegimmTraps = map[uint32]string{
		0x08: "tgei", 0x09: "tgeiu", 0x0a: "tlti", 0x0b: "tltiu", 0x0c: "teqi", 0x0e: "tnei",
	}

	mipsLoadStore = map[uint32]string{
		0x20: "lb", 0x21: "lh", 0x22: "lwl", 0x23: "lw", 0x24: "lbu", 0x25: "lhu", 0x26: "lwr",
		0x28: "sb", 0x29: "sh", 0x2a: "swl", 0x2b: "sw", 0x2e: "swr",
		0x30: "ll", 0x38: "sc",
	}

	mipsFPLoadStore = map[uint32]string{
		0x31: "lwc1", 0x35: "ldc1", 0x39: "swc1", 0x3d: "sdc1",
	}

	mipsCop0Ops = map[uint32]string{
		0x01: "tlbr", 0x02: "tlbwi", 0x06: "tlbwr", 0x08: "tlbp", 0x18: "eret", 0x20: "wait",
	}

	mipsFPFormats = map[uint32]string{0x10: "s", 0x11: "d", 0x14: "w"}

	mipsFPBinary = map[uint32]string{0x00: "add", 0x01: "sub", 0x02: "mul", 0x03: "div"}

	mipsFPUnary = map[uint32]string{
		0x04: "sqrt", 0x05: "abs", 0x06: "mov", 0x07: "neg",
		0x0d: "trunc.w", 0x20: "cvt.s", 0x21: "cvt.d", 0x24: "cvt.w",
	}

	mipsFPCompare = map[uint32]string{0x32: "c.eq", 0x3c: "c.lt", 0x3e: "c.le"}
)

// fpUnaryValid rejects conversions to the source format and word-format
// operations other than conversion.
func fpUnaryValid(op, f string) bool {
	if op == "cvt."+f {
		return false
	}
	return f != "w" || op == "cvt.s" || op == "cvt.d"
}

func (m mipsWord) regimm() (string, string, bool) {
	rs := m.reg(m.rs)
	if m.rt == 0x11 && m.rs == 0 {
		return "bal", m.branch(), true
	}
	if op, ok := mipsRegimmBranches[m.rt]; ok {
		return op, rs + ", " + m.branch(), true
	}
	if op, ok := mipsRegimmTraps[m.rt]; ok {
		return op, rs + ", " + mipsImm(m.simm()), true
	}
	return "", "", false
}

func (m mipsWord) immediate() (string, string, bool) {
	rs, rt := m.reg(m.rs), m.reg(m.rt)
	arith := func(op string, v int64) (string, string, bool) {
		return op, rt + ", " + rs + ", " + mipsImm(v), true
	}

	switch m.op {
	case 0x02:
		return "j", m.jump(), true
	case 0x03:
		return "jal", m.jump(), true
	case 0x04:
		switch {
		case m.rs == 0 && m.rt == 0:
			return "b", m.branch(), true
		case m.rt == 0:
			return "beqz", rs + ", " + m.branch(), true
		}
		return "beq", rs + ", " + rt + ", " + m.branch(), true
	case 0x05:
		if m.rt == 0 {
			return "bnez", rs + ", " + m.branch(), true
		}
		return "bne", rs + ", " + rt + ", " + m.branch(), true
	case 0x06:
		return "blez", rs + ", " + m.branch(), true
	case 0x07:
		return "bgtz", rs + ", " + m.branch(), true
	case 0x08:
		return arith("addi", m.simm())
	case 0x09:
		return arith("addiu", m.simm())
	case 0x0a:
		return arith("slti", m.simm())
	case 0x0b:
		return arith("sltiu", m.simm())
	case 0x0c:
		return arith("andi", int64(m.uimm()))
	case 0x0d:
		return arith("ori", int64(m.uimm()))
	case 0x0e:
		return arith("xori", int64(m.uimm()))
	case 0x0f:
		return "lui", rt + ", " + mipsImm(int64(m.uimm())), true
	case 0x14:
		return "beql", rs + ", " + rt + ", " + m.branch(), true
	case 0x15:
		return "bnel", rs + ", " + rt + ", " + m.branch(), true
	case 0x16:
		return "blezl", rs + ", " + m.branch(), true
	case 0x17:
		return "bgtzl", rs + ", " + m.branch(), true
	case 0x2f:
		return "cache", mipsImm(int64(m.rt)) + ", " + m.mem(), true
	case 0x33:
		return "pref", mipsImm(int64(m.rt)) + ", " + m.mem(), true
	}

	if op, ok := mipsLoadStore[m.op]; ok {
		return op, rt + ", " + m.mem(), true
	}
	if op, ok := mipsFPLoadStore[m.op]; ok {
		return op, fmt.Sprintf("$f%d, %s", m.rt, m.mem()), true
	}
	return "", "", false
}

func (m mipsWord) cop0() (string, string, bool) {
	switch m.rs {
	case 0x00:
		return "mfc0", fmt.Sprintf("%s, $%d, %d", m.reg(m.rt), m.rd, m.w&7), true
	case 0x04:
		return "mtc0", fmt.Sprintf("%s, $%d, %d", m.reg(m.rt), m.rd, m.w&7), true
	case 0x0b:
		op := "di"
		if m.w&0x20 != 0 {
			op = "ei"
		}
		if m.rt == 0 {
			return op, "", true
		}
		return op, m.reg(m.rt), true
	case 0x10:
		if op, ok := mipsCop0Ops[m.funct]; ok {
			return op, "", true
		}
	}
	return "", "", false
}

func (m mipsWord) cop1() (string, string, bool) {
	fs := fmt.Sprintf("$f%d", m.rd)
	switch m.rs {
	case 0x00:
		return "mfc1", m.reg(m.rt) + ", " + fs, true
	case 0x02:
		return "cfc1", m.reg(m.rt) + ", $" + fmt.Sprint(m.rd), true
	case 0x04:
		return "mtc1", m.reg(m.rt) + ", " + fs, true
	case 0x06:
		return "ctc1", m.reg(m.rt) + ", $" + fmt.Sprint(m.rd), true
	case 0x08:
		ops := []string{"bc1f", "bc1t", "bc1fl", "bc1tl"}
		return ops[m.rt&3], m.branch(), true
	}

	f, ok := mipsFPFormats[m.rs]
	if !ok {
		return "", "", false
	}
	fd := fmt.Sprintf("$f%d", m.sa)
	ft := fmt.Sprintf("$f%d", m.rt)

	if op, ok := mipsFPBinary[m.funct]; ok && f != "w" {
		return op + "." + f, fd + ", " + fs + ", " + ft, true
	}
	if op, ok := mipsFPUnary[m.funct]; ok && fpUnaryValid(op, f) {
		return op + "." + f, fd + ", " + fs, true
	}
	if op, ok := mipsFPCompare[m.funct]; ok && f != "w" {
		return op + "." + f, fs + ", " + ft, true
	}
	return "", "", false
}

func (m mipsWord) special2() (string, string, bool) {
	rd, rs, rt := m.reg(m.rd), m.reg(m.rs), m.reg(m.rt)
	switch m.funct {
	case 0x00:
		return "madd", rs + ", " + rt, true
	case 0x01:
		return "maddu", rs + ", " + rt, true
	case 0x02:
		return "mul", rd + ", " + rs + ", " + rt, true
	case 0x04:
		return "msub", rs + ", " + rt, true
	case 0x05:
		return "msubu", rs + ", " + rt, true
	case 0x20:
		return "clz", rd + ", " + rs, true
	case 0x21:
		return "clo", rd + ", " + rs, true
	case 0x3f:
		return "sdbbp", "", true
	}
	return "", "", false
}

func (m mipsWord) special3() (string, string, bool) {
	rd, rs, rt := m.reg(m.rd), m.reg(m.rs), m.reg(m.rt)
	switch m.funct {
	case 0x00:
		return "ext", fmt.Sprintf("%s, %s, %d, %d", rt, rs, m.sa, m.rd+1), true
	case 0x04:
		if m.rd < m.sa {
			return "", "", false
		}
		return "ins", fmt.Sprintf("%s, %s, %d, %d", rt, rs, m.sa, m.rd+1-m.sa), true
	case 0x20:
		switch m.sa {
		case 0x02:
			return "wsbh", rd + ", " + rt, true
		case 0x10:
			return "seb", rd + ", " + rt, true
		case 0x18:
			return "seh", rd + ", " + rt, true
		}
	case 0x3b:
		return "rdhwr", fmt.Sprintf("%s, $%d", rt, m.rd), true
	}
	return "", "", false
}
