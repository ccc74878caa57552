package types

type Code uint8

const (
	CodeVoid Code = iota
	CodeBool
	CodeInt8
	CodeUint8
	CodeInt16
	CodeUint16
	CodeInt32
	CodeUint32
	CodeInt64
	CodeUint64
	CodeFloat32
	CodeFloat64
	CodePointer
	CodeString
	CodeCharArray
)

var codeNames = [...]string{
	CodeVoid:      "void",
	CodeBool:      "bool",
	CodeInt8:      "int8",
	CodeUint8:     "uint8",
	CodeInt16:     "int16",
	CodeUint16:    "uint16",
	CodeInt32:     "int32",
	CodeUint32:    "uint32",
	CodeInt64:     "int64",
	CodeUint64:    "uint64",
	CodeFloat32:   "float32",
	CodeFloat64:   "float64",
	CodePointer:   "pointer",
	CodeString:    "string",
	CodeCharArray: "char_array",
}

func (c Code) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return "unknown"
}

func (c Code) IsInteger() bool {
	return c >= CodeInt8 && c <= CodeUint64
}

func (c Code) IsSigned() bool {
	switch c {
	case CodeInt8, CodeInt16, CodeInt32, CodeInt64:
		return true
	}
	return false
}

func (c Code) IsFloat() bool {
	return c == CodeFloat32 || c == CodeFloat64
}

// IsAddress reports whether values of this code are stored as a pointer.
func (c Code) IsAddress() bool {
	return c == CodePointer || c == CodeString
}

// Descriptor is the immutable (code, size, alignment) triple behind a type name.
type Descriptor struct {
	Name  string
	Code  Code
	Size  uintptr
	Align uintptr
}

func (d Descriptor) String() string {
	return d.Name
}
