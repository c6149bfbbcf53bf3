// Package objfile recognises ELF, PE and Mach-O containers and exposes their
// sections. Anything it cannot parse is treated as a flat memory image.
package objfile

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/h2non/filetype"
)

// FlatBase is the load address assumed for inputs that are not a
// recognised container.
const FlatBase = 0x1000

// Format identifies the container an Image was parsed from.
type Format int

const (
	FormatFlat Format = iota
	FormatELF
	FormatPE
	FormatMachO
)

func (f Format) String() string {
	switch f {
	case FormatELF:
		return "ELF"
	case FormatPE:
		return "PE"
	case FormatMachO:
		return "Mach-O"
	default:
		return "flat"
	}
}

// CodeSectionName returns the canonical name of the executable code
// section for f, or "" for flat images.
func (f Format) CodeSectionName() string {
	switch f {
	case FormatELF, FormatPE:
		return ".text"
	case FormatMachO:
		return "__text"
	default:
		return ""
	}
}

// Section is a named section in declaration order.
type Section struct {
	Name string
	Addr uint64
	Size uint64
	data func() ([]byte, error)
}

// Data reads the section contents.
func (s Section) Data() ([]byte, error) {
	if s.data == nil {
		return nil, fmt.Errorf("section %s has no data", s.Name)
	}
	return s.data()
}

// Image is a loaded input file.
type Image struct {
	Format   Format
	Machine  string // architecture declared by the container, "" if unknown
	Sections []Section
	Raw      []byte
}

// Structured reports whether the input was recognised as a container.
func (im *Image) Structured() bool {
	return im.Format != FormatFlat
}

// Load interprets data as an object file. It never fails: inputs that are
// not a recognised container, or that the parser rejects, come back as a
// flat image.
func Load(data []byte) *Image {
	format := sniff(data)
	if format == FormatFlat {
		return flat(data)
	}

	im, err := parse(format, data)
	if err != nil {
		slog.Debug("Object parse failed, using flat image", "format", format.String(), "error", err)
		return flat(data)
	}
	im.Raw = data
	return im
}

func flat(data []byte) *Image {
	return &Image{Format: FormatFlat, Raw: data}
}

// sniff picks a parser from the file magic. debug/pe accepts headerless COFF
// objects, so without this gate arbitrary bytes could parse as PE.
func sniff(data []byte) Format {
	switch {
	case filetype.Is(data, "elf"):
		return FormatELF
	case filetype.Is(data, "exe"):
		return FormatPE
	case isMachO(data):
		return FormatMachO
	}
	return FormatFlat
}

func isMachO(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		switch order.Uint32(data) {
		case macho.Magic32, macho.Magic64:
			return true
		}
	}
	return false
}

// parse runs the debug/* parser for format. Those parsers can panic on
// hostile input; a panic is reported as a parse error.
func parse(format Format, data []byte) (im *Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("Object parser panicked", "format", format.String(), "panic", r, "stack", string(debug.Stack()))
			im, err = nil, fmt.Errorf("parse %s: panic: %v", format, r)
		}
	}()

	r := bytes.NewReader(data)
	switch format {
	case FormatELF:
		return parseELF(r)
	case FormatPE:
		return parsePE(r)
	case FormatMachO:
		return parseMachO(r)
	}
	return nil, fmt.Errorf("no parser for %s", format)
}

func parseELF(r *bytes.Reader) (*Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("parse elf: %w", err)
	}

	im := &Image{Format: FormatELF, Machine: elfMachine(f.Machine)}
	for _, s := range f.Sections {
		if s.Type == elf.SHT_NULL {
			continue
		}
		im.Sections = append(im.Sections, Section{
			Name: s.Name,
			Addr: s.Addr,
			Size: s.Size,
			data: s.Data,
		})
	}
	return im, nil
}

func elfMachine(m elf.Machine) string {
	switch m {
	case elf.EM_X86_64:
		return "x86"
	case elf.EM_ARM:
		return "arm"
	case elf.EM_MIPS, elf.EM_MIPS_RS3_LE:
		return "mips"
	case elf.EM_RISCV:
		return "riscv"
	}
	return ""
}

func parsePE(r *bytes.Reader) (*Image, error) {
	f, err := pe.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("parse pe: %w", err)
	}

	var imageBase uint64
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		imageBase = uint64(oh.ImageBase)
	case *pe.OptionalHeader64:
		imageBase = oh.ImageBase
	}

	im := &Image{Format: FormatPE, Machine: peMachine(f.Machine)}
	for _, s := range f.Sections {
		size := uint64(s.VirtualSize)
		if size == 0 {
			size = uint64(s.Size)
		}
		im.Sections = append(im.Sections, Section{
			Name: s.Name,
			Addr: imageBase + uint64(s.VirtualAddress),
			Size: size,
			data: clipped(s.Data, size),
		})
	}
	return im, nil
}

// clipped drops the file alignment padding past the section's declared size.
func clipped(read func() ([]byte, error), size uint64) func() ([]byte, error) {
	return func() ([]byte, error) {
		b, err := read()
		if err != nil {
			return nil, err
		}
		if uint64(len(b)) > size {
			b = b[:size]
		}
		return b, nil
	}
}

func peMachine(m uint16) string {
	switch m {
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "x86"
	case pe.IMAGE_FILE_MACHINE_ARMNT:
		return "arm"
	case pe.IMAGE_FILE_MACHINE_RISCV64:
		return "riscv"
	}
	return ""
}

func parseMachO(r *bytes.Reader) (*Image, error) {
	f, err := macho.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("parse mach-o: %w", err)
	}

	im := &Image{Format: FormatMachO, Machine: machoMachine(f.Cpu)}
	for _, s := range f.Sections {
		im.Sections = append(im.Sections, Section{
			Name: s.Name,
			Addr: s.Addr,
			Size: s.Size,
			data: s.Data,
		})
	}
	return im, nil
}

func machoMachine(c macho.Cpu) string {
	switch c {
	case macho.CpuAmd64:
		return "x86"
	case macho.CpuArm:
		return "arm"
	}
	return ""
}
