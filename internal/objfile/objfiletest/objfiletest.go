// Package objfiletest synthesizes small object files for tests.
package objfiletest

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
)

// Section describes one section of a synthesized file.
type Section struct {
	Name string
	Addr uint64
	Data []byte
}

// ELF64 returns a little-endian ELF64 executable holding sections in the
// given order, followed by a section name table.
func ELF64(machine elf.Machine, sections ...Section) []byte {
	const ehsize, shentsize = 64, 64

	var body bytes.Buffer
	names := []byte{0}
	nameOff := make([]uint32, len(sections))
	dataOff := make([]uint64, len(sections))
	for i, s := range sections {
		nameOff[i] = uint32(len(names))
		names = append(names, s.Name...)
		names = append(names, 0)
		dataOff[i] = uint64(ehsize + body.Len())
		body.Write(s.Data)
	}
	shstrName := uint32(len(names))
	names = append(names, ".shstrtab\x00"...)
	shstrOff := uint64(ehsize + body.Len())
	body.Write(names)
	for body.Len()%8 != 0 {
		body.WriteByte(0)
	}

	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     uint64(ehsize + body.Len()),
		Ehsize:    ehsize,
		Shentsize: shentsize,
		Shnum:     uint16(len(sections) + 2),
		Shstrndx:  uint16(len(sections) + 1),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var out bytes.Buffer
	write(&out, hdr)
	out.Write(body.Bytes())

	write(&out, elf.Section64{})
	for i, s := range sections {
		flags := elf.SHF_ALLOC
		if s.Name == ".text" {
			flags |= elf.SHF_EXECINSTR
		}
		write(&out, elf.Section64{
			Name:      nameOff[i],
			Type:      uint32(elf.SHT_PROGBITS),
			Flags:     uint64(flags),
			Addr:      s.Addr,
			Off:       dataOff[i],
			Size:      uint64(len(s.Data)),
			Addralign: 1,
		})
	}
	write(&out, elf.Section64{
		Name:      shstrName,
		Type:      uint32(elf.SHT_STRTAB),
		Off:       shstrOff,
		Size:      uint64(len(names)),
		Addralign: 1,
	})
	return out.Bytes()
}

// MachO64 returns a little-endian 64-bit Mach-O executable with a single
// __TEXT segment holding sections.
func MachO64(cpu macho.Cpu, sections ...Section) []byte {
	const (
		headerSize  = 32
		segmentSize = 72
		sectionSize = 80
	)
	cmdsz := uint32(segmentSize + sectionSize*len(sections))
	dataStart := uint64(headerSize) + uint64(cmdsz)

	var payload bytes.Buffer
	offsets := make([]uint64, len(sections))
	for i, s := range sections {
		offsets[i] = dataStart + uint64(payload.Len())
		payload.Write(s.Data)
	}

	var out bytes.Buffer
	write(&out, macho.FileHeader{
		Magic:  macho.Magic64,
		Cpu:    cpu,
		SubCpu: 3,
		Type:   macho.TypeExec,
		Ncmd:   1,
		Cmdsz:  cmdsz,
	})
	write(&out, uint32(0))

	var segAddr uint64
	if len(sections) > 0 {
		segAddr = sections[0].Addr
	}
	seg := macho.Segment64{
		Cmd:     macho.LoadCmdSegment64,
		Len:     cmdsz,
		Addr:    segAddr,
		Memsz:   uint64(payload.Len()),
		Offset:  dataStart,
		Filesz:  uint64(payload.Len()),
		Maxprot: 7,
		Prot:    5,
		Nsect:   uint32(len(sections)),
	}
	copy(seg.Name[:], "__TEXT")
	write(&out, seg)

	for i, s := range sections {
		sect := macho.Section64{
			Addr:   s.Addr,
			Size:   uint64(len(s.Data)),
			Offset: uint32(offsets[i]),
		}
		copy(sect.Name[:], s.Name)
		copy(sect.Seg[:], "__TEXT")
		write(&out, sect)
	}
	out.Write(payload.Bytes())
	return out.Bytes()
}

// PESection describes one section of a synthesized PE file. Raw data is
// padded to the file alignment; VirtualSize is written as given.
type PESection struct {
	Name           string
	VirtualAddress uint32
	VirtualSize    uint32
	Data           []byte
}

// PE64 returns a PE32+ image with the given machine, image base and
// sections, without symbols or data directories' contents.
func PE64(machine uint16, imageBase uint64, sections ...PESection) []byte {
	const (
		peOffset  = 0x40
		fileAlign = 0x200
		fileHdr   = 20
		optHdr    = 240
		secHdr    = 40
	)
	headers := peOffset + 4 + fileHdr + optHdr + secHdr*len(sections)
	rawStart := (headers + fileAlign - 1) &^ (fileAlign - 1)

	var out bytes.Buffer
	dos := make([]byte, peOffset)
	copy(dos, "MZ")
	binary.LittleEndian.PutUint32(dos[0x3c:], peOffset)
	out.Write(dos)
	out.WriteString("PE\x00\x00")

	write(&out, pe.FileHeader{
		Machine:              machine,
		NumberOfSections:     uint16(len(sections)),
		SizeOfOptionalHeader: optHdr,
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_LARGE_ADDRESS_AWARE,
	})
	write(&out, pe.OptionalHeader64{
		Magic:               0x20b,
		ImageBase:           imageBase,
		SectionAlignment:    0x1000,
		FileAlignment:       fileAlign,
		SizeOfHeaders:       uint32(rawStart),
		Subsystem:           pe.IMAGE_SUBSYSTEM_WINDOWS_CUI,
		NumberOfRvaAndSizes: 16,
	})

	var raw bytes.Buffer
	for _, s := range sections {
		size := (len(s.Data) + fileAlign - 1) &^ (fileAlign - 1)
		hdr := pe.SectionHeader32{
			VirtualSize:      s.VirtualSize,
			VirtualAddress:   s.VirtualAddress,
			SizeOfRawData:    uint32(size),
			PointerToRawData: uint32(rawStart + raw.Len()),
			Characteristics:  pe.IMAGE_SCN_CNT_CODE | pe.IMAGE_SCN_MEM_EXECUTE | pe.IMAGE_SCN_MEM_READ,
		}
		copy(hdr.Name[:], s.Name)
		write(&out, hdr)
		raw.Write(s.Data)
		raw.Write(make([]byte, size-len(s.Data)))
	}
	out.Write(make([]byte, rawStart-out.Len()))
	out.Write(raw.Bytes())
	return out.Bytes()
}

func write(buf *bytes.Buffer, v any) {
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}
