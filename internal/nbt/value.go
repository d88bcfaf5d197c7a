package nbt

// Type is the on-disk tag id of a value.
type Type byte

const (
	TypeEnd Type = iota
	TypeByte
	TypeShort
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeByteArray
	TypeString
	TypeList
	TypeCompound
	TypeIntArray
	TypeLongArray
)

func (t Type) String() string {
	switch t {
	case TypeEnd:
		return "TAG_End"
	case TypeByte:
		return "TAG_Byte"
	case TypeShort:
		return "TAG_Short"
	case TypeInt:
		return "TAG_Int"
	case TypeLong:
		return "TAG_Long"
	case TypeFloat:
		return "TAG_Float"
	case TypeDouble:
		return "TAG_Double"
	case TypeByteArray:
		return "TAG_Byte_Array"
	case TypeString:
		return "TAG_String"
	case TypeList:
		return "TAG_List"
	case TypeCompound:
		return "TAG_Compound"
	case TypeIntArray:
		return "TAG_Int_Array"
	case TypeLongArray:
		return "TAG_Long_Array"
	default:
		return "TAG_Unknown"
	}
}

// Value is one node of a decoded tag tree. The set of implementations is closed.
type Value interface {
	Type() Type
}

type (
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	String    string
	ByteArray []int8
	IntArray  []int32
	LongArray []int64
	List      []Value
)

// Field is one named entry of a Compound.
type Field struct {
	Name  string
	Value Value
}

// Compound keeps its fields in the order they were read.
type Compound []Field

func (Byte) Type() Type      { return TypeByte }
func (Short) Type() Type     { return TypeShort }
func (Int) Type() Type       { return TypeInt }
func (Long) Type() Type      { return TypeLong }
func (Float) Type() Type     { return TypeFloat }
func (Double) Type() Type    { return TypeDouble }
func (String) Type() Type    { return TypeString }
func (ByteArray) Type() Type { return TypeByteArray }
func (IntArray) Type() Type  { return TypeIntArray }
func (LongArray) Type() Type { return TypeLongArray }
func (List) Type() Type      { return TypeList }
func (Compound) Type() Type  { return TypeCompound }

// Get returns the first field with the given name.
func (c Compound) Get(name string) (Value, bool) {
	for _, f := range c {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}
