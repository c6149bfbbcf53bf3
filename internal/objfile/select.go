package objfile

import (
	"log/slog"

	"github.com/samber/lo"
)

// Region is a byte range to disassemble.
type Region struct {
	Label  string
	Addr   uint64
	Size   uint64
	Data   []byte
	Header bool // false for the implicit flat region
}

// CodeSection returns the first section, in declaration order, named after
// the format's code section whose data can be read and is not empty.
func (im *Image) CodeSection() (Region, bool) {
	name := im.Format.CodeSectionName()
	if name == "" {
		return Region{}, false
	}

	for _, s := range lo.Filter(im.Sections, func(s Section, _ int) bool { return s.Name == name }) {
		data, err := s.Data()
		if err != nil {
			slog.Debug("Skipping unreadable section", "section", s.Name, "error", err)
			continue
		}
		if len(data) == 0 {
			continue
		}
		return Region{Label: s.Name, Addr: s.Addr, Size: s.Size, Data: data, Header: true}, true
	}
	return Region{}, false
}

// Regions returns what should be disassembled: the code section of a
// container, if it has one, or the whole input at FlatBase.
func (im *Image) Regions() []Region {
	if !im.Structured() {
		return []Region{{
			Label: "flat",
			Addr:  FlatBase,
			Size:  uint64(len(im.Raw)),
			Data:  im.Raw,
		}}
	}
	if r, ok := im.CodeSection(); ok {
		return []Region{r}
	}
	return nil
}
