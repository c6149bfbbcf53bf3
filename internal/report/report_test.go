package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chdisasm/internal/disasm"
	"chdisasm/internal/objfile"
)

func x86(t *testing.T) disasm.Decoder {
	t.Helper()
	d, err := disasm.New(disasm.ArchX86)
	require.NoError(t, err)
	return d
}

func TestFormatInst(t *testing.T) {
	tests := []struct {
		name string
		inst disasm.Inst
		want string
	}{
		{
			name: "empty operands",
			inst: disasm.Inst{Addr: 0x1000, Mnemonic: "ret"},
			want: "00001000:\tret     \t\n",
		},
		{
			name: "operands",
			inst: disasm.Inst{Addr: 0x401004, Mnemonic: "mov", Operands: "rbp, rsp"},
			want: "00401004:\tmov     \trbp, rsp\n",
		},
		{
			name: "long mnemonic is not truncated",
			inst: disasm.Inst{Addr: 0x10, Mnemonic: "rep stosq", Operands: "qword ptr [rdi], rax"},
			want: "00000010:\trep stosq\tqword ptr [rdi], rax\n",
		},
		{
			name: "wide address",
			inst: disasm.Inst{Addr: 0x100000f80, Mnemonic: "nop"},
			want: "100000f80:\tnop     \t\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatInst(tt.inst))
		})
	}
}

func TestDisassemblyFlat(t *testing.T) {
	im := objfile.Load([]byte{0xc3})
	got, err := Disassembly(x86(t), im.Regions())
	require.NoError(t, err)
	assert.Equal(t, "00001000:\tret     \t\n", got)
}

func TestDisassemblyHeader(t *testing.T) {
	regions := []objfile.Region{{
		Label:  ".text",
		Addr:   0x401000,
		Size:   6,
		Data:   []byte{0x55, 0x48, 0x89, 0xe5, 0x5d, 0xc3},
		Header: true,
	}}

	got, err := Disassembly(x86(t), regions)
	require.NoError(t, err)

	want := "Disassembly of section .text:\n" +
		"  Size: 6\n" +
		"  Address: 0x401000\n" +
		"\n" +
		"00401000:\tpush    \trbp\n" +
		"00401001:\tmov     \trbp, rsp\n" +
		"00401004:\tpop     \trbp\n" +
		"00401005:\tret     \t\n"
	assert.Equal(t, want, got)
}

func TestDisassemblyNoRegions(t *testing.T) {
	got, err := Disassembly(x86(t), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

type panicDecoder struct{}

func (panicDecoder) Arch() disasm.Arch { return disasm.ArchMIPS }

func (panicDecoder) Decode([]byte, uint64) (disasm.Inst, error) {
	panic("corrupt decoder state")
}

func TestDisassemblyDecoderPanic(t *testing.T) {
	regions := []objfile.Region{{Label: "flat", Addr: 0x1000, Data: []byte{0, 0, 0, 0}}}
	got, err := Disassembly(panicDecoder{}, regions)
	require.Error(t, err)
	assert.Empty(t, got)
	assert.Contains(t, err.Error(), "corrupt decoder state")
	assert.Contains(t, err.Error(), "0x1000")
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "", Strings(nil))
	assert.Equal(t, "one", Strings([]string{"one"}))
	assert.Equal(t, "one\ntwo\nthree", Strings([]string{"one", "two", "three"}))
}

func TestWrite(t *testing.T) {
	t.Run("overwrites existing file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "out.txt", []byte("stale content that is longer"), 0o644))

		require.NoError(t, Write(fs, "out.txt", "fresh", nil))

		got, err := afero.ReadFile(fs, "out.txt")
		require.NoError(t, err)
		assert.Equal(t, "fresh", string(got))
	})

	t.Run("stdout", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		var buf bytes.Buffer
		require.NoError(t, Write(fs, Stdout, "listing", &buf))
		assert.Equal(t, "listing", buf.String())

		exists, err := afero.Exists(fs, Stdout)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("read-only filesystem", func(t *testing.T) {
		fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
		err := Write(fs, "out.txt", "x", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out.txt")
	})

	t.Run("stdout write failure", func(t *testing.T) {
		err := Write(afero.NewMemMapFs(), Stdout, "x", failingWriter{})
		require.Error(t, err)
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }
