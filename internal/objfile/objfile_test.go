package objfile

import (
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chdisasm/internal/objfile/objfiletest"
)

var textBytes = []byte{0x55, 0x48, 0x89, 0xe5, 0x5d, 0xc3}

func TestLoadELF(t *testing.T) {
	data := objfiletest.ELF64(elf.EM_X86_64,
		objfiletest.Section{Name: ".interp", Addr: 0x400200, Data: []byte("/lib/ld.so\x00")},
		objfiletest.Section{Name: ".text", Addr: 0x401000, Data: textBytes},
		objfiletest.Section{Name: ".rodata", Addr: 0x402000, Data: []byte("hello\x00")},
	)

	im := Load(data)
	require.True(t, im.Structured())
	assert.Equal(t, FormatELF, im.Format)
	assert.Equal(t, "x86", im.Machine)

	var names []string
	for _, s := range im.Sections {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{".interp", ".text", ".rodata", ".shstrtab"}, names)

	r, ok := im.CodeSection()
	require.True(t, ok)
	assert.Equal(t, ".text", r.Label)
	assert.Equal(t, uint64(0x401000), r.Addr)
	assert.Equal(t, uint64(len(textBytes)), r.Size)
	assert.Equal(t, textBytes, r.Data)
	assert.True(t, r.Header)
}

func TestLoadMachO(t *testing.T) {
	data := objfiletest.MachO64(macho.CpuAmd64,
		objfiletest.Section{Name: "__text", Addr: 0x100000f80, Data: textBytes},
		objfiletest.Section{Name: "__cstring", Addr: 0x100000fa0, Data: []byte("hi\x00")},
	)

	im := Load(data)
	require.Equal(t, FormatMachO, im.Format)
	assert.Equal(t, "x86", im.Machine)

	regions := im.Regions()
	require.Len(t, regions, 1)
	assert.Equal(t, "__text", regions[0].Label)
	assert.Equal(t, uint64(0x100000f80), regions[0].Addr)
	assert.Equal(t, textBytes, regions[0].Data)
}

func TestLoadPE(t *testing.T) {
	const imageBase = 0x140000000
	data := objfiletest.PE64(pe.IMAGE_FILE_MACHINE_AMD64, imageBase,
		objfiletest.PESection{Name: ".text", VirtualAddress: 0x1000, VirtualSize: uint32(len(textBytes)), Data: textBytes},
		objfiletest.PESection{Name: ".rdata", VirtualAddress: 0x2000, Data: []byte("hi\x00")},
	)

	im := Load(data)
	require.Equal(t, FormatPE, im.Format)
	assert.Equal(t, "x86", im.Machine)
	require.Len(t, im.Sections, 2)

	regions := im.Regions()
	require.Len(t, regions, 1)
	r := regions[0]
	assert.Equal(t, ".text", r.Label)
	assert.Equal(t, uint64(imageBase+0x1000), r.Addr)
	assert.Equal(t, uint64(len(textBytes)), r.Size)
	assert.Equal(t, textBytes, r.Data, "file alignment padding is dropped")

	t.Run("zero virtual size uses raw size", func(t *testing.T) {
		rdata := im.Sections[1]
		assert.Equal(t, uint64(imageBase+0x2000), rdata.Addr)
		assert.Equal(t, uint64(0x200), rdata.Size)
		b, err := rdata.Data()
		require.NoError(t, err)
		assert.Len(t, b, 0x200)
		assert.Equal(t, []byte("hi\x00"), b[:3])
	})

	t.Run("machines", func(t *testing.T) {
		tests := []struct {
			machine uint16
			want    string
		}{
			{pe.IMAGE_FILE_MACHINE_AMD64, "x86"},
			{pe.IMAGE_FILE_MACHINE_ARMNT, "arm"},
			{pe.IMAGE_FILE_MACHINE_RISCV64, "riscv"},
			{pe.IMAGE_FILE_MACHINE_ARM64, ""},
		}
		for _, tt := range tests {
			im := Load(objfiletest.PE64(tt.machine, imageBase,
				objfiletest.PESection{Name: ".text", VirtualAddress: 0x1000, Data: []byte{0xc3}},
			))
			require.Equal(t, FormatPE, im.Format, "machine %#x", tt.machine)
			assert.Equal(t, tt.want, im.Machine, "machine %#x", tt.machine)
		}
	})
}

func TestLoadFallsBackToFlat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"single ret", []byte{0xc3}},
		{"empty", nil},
		{"random code", []byte{0x55, 0x48, 0x89, 0xe5, 0x90, 0xc3, 0x00, 0x01}},
		{"truncated elf", append([]byte("\x7fELF\x02\x01\x01"), make([]byte, 60)...)},
		{"dos stub only", append([]byte("MZ"), make([]byte, 62)...)},
		{"mach-o magic only", []byte{0xcf, 0xfa, 0xed, 0xfe, 0x07, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := Load(tt.data)
			assert.False(t, im.Structured())
			assert.Equal(t, FormatFlat, im.Format)

			regions := im.Regions()
			require.Len(t, regions, 1)
			assert.Equal(t, uint64(FlatBase), regions[0].Addr)
			assert.Equal(t, uint64(0x1000), regions[0].Addr)
			assert.False(t, regions[0].Header)
			assert.Equal(t, tt.data, regions[0].Data)
		})
	}
}

func TestCodeSectionSelection(t *testing.T) {
	t.Run("no code section", func(t *testing.T) {
		im := Load(objfiletest.ELF64(elf.EM_X86_64,
			objfiletest.Section{Name: ".data", Addr: 0x1000, Data: []byte{1, 2, 3, 4}},
		))
		require.True(t, im.Structured())
		_, ok := im.CodeSection()
		assert.False(t, ok)
		assert.Empty(t, im.Regions())
	})

	t.Run("empty match is skipped", func(t *testing.T) {
		im := Load(objfiletest.ELF64(elf.EM_X86_64,
			objfiletest.Section{Name: ".text", Addr: 0x1000},
			objfiletest.Section{Name: ".text", Addr: 0x2000, Data: []byte{0xc3}},
		))
		r, ok := im.CodeSection()
		require.True(t, ok)
		assert.Equal(t, uint64(0x2000), r.Addr)
	})

	t.Run("first match wins", func(t *testing.T) {
		im := Load(objfiletest.ELF64(elf.EM_X86_64,
			objfiletest.Section{Name: ".text", Addr: 0x3000, Data: []byte{0x90}},
			objfiletest.Section{Name: ".text", Addr: 0x4000, Data: []byte{0xc3}},
		))
		r, ok := im.CodeSection()
		require.True(t, ok)
		assert.Equal(t, uint64(0x3000), r.Addr)
	})

	t.Run("name must match exactly", func(t *testing.T) {
		im := Load(objfiletest.ELF64(elf.EM_X86_64,
			objfiletest.Section{Name: ".text.startup", Addr: 0x1000, Data: []byte{0xc3}},
			objfiletest.Section{Name: "__text", Addr: 0x2000, Data: []byte{0xc3}},
		))
		_, ok := im.CodeSection()
		assert.False(t, ok)
	})

	t.Run("unreadable section is skipped", func(t *testing.T) {
		im := &Image{
			Format: FormatELF,
			Sections: []Section{
				{Name: ".text", Addr: 0x1000},
				{Name: ".text", Addr: 0x2000, data: func() ([]byte, error) { return []byte{0xc3}, nil }},
			},
		}
		r, ok := im.CodeSection()
		require.True(t, ok)
		assert.Equal(t, uint64(0x2000), r.Addr)
	})
}

func TestMachineMapping(t *testing.T) {
	tests := []struct {
		machine elf.Machine
		want    string
	}{
		{elf.EM_X86_64, "x86"},
		{elf.EM_ARM, "arm"},
		{elf.EM_MIPS, "mips"},
		{elf.EM_RISCV, "riscv"},
		{elf.EM_AARCH64, ""},
	}

	for _, tt := range tests {
		t.Run(tt.machine.String(), func(t *testing.T) {
			im := Load(objfiletest.ELF64(tt.machine,
				objfiletest.Section{Name: ".text", Addr: 0x1000, Data: []byte{0, 0, 0, 0}},
			))
			require.Equal(t, FormatELF, im.Format)
			assert.Equal(t, tt.want, im.Machine)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, ".text", FormatELF.CodeSectionName())
	assert.Equal(t, ".text", FormatPE.CodeSectionName())
	assert.Equal(t, "__text", FormatMachO.CodeSectionName())
	assert.Equal(t, "", FormatFlat.CodeSectionName())
	assert.Equal(t, "Mach-O", FormatMachO.String())
	assert.Equal(t, "flat", FormatFlat.String())
}
