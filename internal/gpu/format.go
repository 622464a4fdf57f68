package gpu

import "fmt"

// Format tags how a GPU command interprets the bytes of a buffer view. The
// buffer layer treats it as opaque and only compares it for equality.
type Format uint32

const (
	FormatUndefined Format = iota
	FormatR8Uint
	FormatR16Uint
	FormatR32Uint
	FormatR32Sfloat
	FormatR8G8B8A8Unorm
	FormatR32G32B32A32Sfloat
)

var formatNames = map[Format]string{
	FormatUndefined:          "Undefined",
	FormatR8Uint:             "R8Uint",
	FormatR16Uint:            "R16Uint",
	FormatR32Uint:            "R32Uint",
	FormatR32Sfloat:          "R32Sfloat",
	FormatR8G8B8A8Unorm:      "R8G8B8A8Unorm",
	FormatR32G32B32A32Sfloat: "R32G32B32A32Sfloat",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", uint32(f))
}
