package nbt

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/gzip"
)

// MaxDepth bounds compound/list nesting, matching the game's own reader.
const MaxDepth = 512

// preallocation cap for length-prefixed payloads; a corrupt length should
// fail on EOF, not on allocation.
const maxPrealloc = 4096

var ErrTooDeep = errors.New("nesting exceeds max depth")

// NewReader returns r unchanged for raw NBT, or a gzip reader when the
// stream starts with the gzip magic bytes.
func NewReader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("nbt: gzip: %w", err)
		}
		return zr, nil
	}
	return br, nil
}

// ReadFile decodes a (possibly gzip-compressed) NBT file.
func ReadFile(path string) (string, Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	r, err := NewReader(f)
	if err != nil {
		return "", nil, err
	}
	return Decode(r)
}

// Decode reads one named root tag from r (uncompressed, big-endian).
func Decode(r io.Reader) (name string, root Value, err error) {
	d := &decoder{r: bufio.NewReader(r)}
	id, err := d.r.ReadByte()
	if err != nil {
		return "", nil, fmt.Errorf("nbt: read root tag: %w", err)
	}
	t := Type(id)
	if t == TypeEnd {
		return "", nil, fmt.Errorf("nbt: root tag is %s", t)
	}
	name, err = d.string()
	if err != nil {
		return "", nil, fmt.Errorf("nbt: root name: %w", err)
	}
	root, err = d.payload(t, 0, "")
	if err != nil {
		return name, nil, err
	}
	return name, root, nil
}

type decoder struct {
	r   *bufio.Reader
	buf [8]byte
}

func (d *decoder) read(n int) ([]byte, error) {
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return d.buf[:n], nil
}

func (d *decoder) u8() (byte, error) {
	b, err := d.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u16() (uint16, error) {
	b, err := d.read(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.read(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *decoder) length() (int, error) {
	n, err := d.u32()
	if err != nil {
		return 0, err
	}
	if int32(n) < 0 {
		return 0, fmt.Errorf("negative length %d", int32(n))
	}
	return int(int32(n)), nil
}

// string reads a length-prefixed string. Java's modified UTF-8 is passed
// through as-is; it only differs from UTF-8 for NUL and supplementary runes.
func (d *decoder) string() (string, error) {
	n, err := d.u16()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	return string(b), nil
}

func (d *decoder) payload(t Type, depth int, path string) (Value, error) {
	wrap := func(err error) error {
		if path == "" {
			return fmt.Errorf("nbt: %s: %w", t, err)
		}
		return fmt.Errorf("nbt: %s (%s): %w", path, t, err)
	}

	switch t {
	case TypeByte:
		b, err := d.u8()
		if err != nil {
			return nil, wrap(err)
		}
		return Byte(int8(b)), nil
	case TypeShort:
		n, err := d.u16()
		if err != nil {
			return nil, wrap(err)
		}
		return Short(int16(n)), nil
	case TypeInt:
		n, err := d.u32()
		if err != nil {
			return nil, wrap(err)
		}
		return Int(int32(n)), nil
	case TypeLong:
		n, err := d.u64()
		if err != nil {
			return nil, wrap(err)
		}
		return Long(int64(n)), nil
	case TypeFloat:
		n, err := d.u32()
		if err != nil {
			return nil, wrap(err)
		}
		return Float(math.Float32frombits(n)), nil
	case TypeDouble:
		n, err := d.u64()
		if err != nil {
			return nil, wrap(err)
		}
		return Double(math.Float64frombits(n)), nil
	case TypeString:
		s, err := d.string()
		if err != nil {
			return nil, wrap(err)
		}
		return String(s), nil
	case TypeByteArray:
		n, err := d.length()
		if err != nil {
			return nil, wrap(err)
		}
		out := make(ByteArray, 0, min(n, maxPrealloc))
		for i := 0; i < n; i++ {
			b, err := d.u8()
			if err != nil {
				return nil, wrap(err)
			}
			out = append(out, int8(b))
		}
		return out, nil
	case TypeIntArray:
		n, err := d.length()
		if err != nil {
			return nil, wrap(err)
		}
		out := make(IntArray, 0, min(n, maxPrealloc))
		for i := 0; i < n; i++ {
			v, err := d.u32()
			if err != nil {
				return nil, wrap(err)
			}
			out = append(out, int32(v))
		}
		return out, nil
	case TypeLongArray:
		n, err := d.length()
		if err != nil {
			return nil, wrap(err)
		}
		out := make(LongArray, 0, min(n, maxPrealloc))
		for i := 0; i < n; i++ {
			v, err := d.u64()
			if err != nil {
				return nil, wrap(err)
			}
			out = append(out, int64(v))
		}
		return out, nil
	case TypeList:
		if depth >= MaxDepth {
			return nil, wrap(ErrTooDeep)
		}
		id, err := d.u8()
		if err != nil {
			return nil, wrap(err)
		}
		elem := Type(id)
		n, err := d.length()
		if err != nil {
			return nil, wrap(err)
		}
		if elem == TypeEnd && n > 0 {
			return nil, wrap(fmt.Errorf("list of %s with %d elements", elem, n))
		}
		out := make(List, 0, min(n, maxPrealloc))
		for i := 0; i < n; i++ {
			v, err := d.payload(elem, depth+1, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TypeCompound:
		if depth >= MaxDepth {
			return nil, wrap(ErrTooDeep)
		}
		out := Compound{}
		for {
			id, err := d.u8()
			if err != nil {
				return nil, wrap(err)
			}
			ft := Type(id)
			if ft == TypeEnd {
				return out, nil
			}
			name, err := d.string()
			if err != nil {
				return nil, wrap(err)
			}
			child := name
			if path != "" {
				child = path + "." + name
			}
			v, err := d.payload(ft, depth+1, child)
			if err != nil {
				return nil, err
			}
			out = append(out, Field{Name: name, Value: v})
		}
	default:
		return nil, wrap(fmt.Errorf("unknown tag id %d", byte(t)))
	}
}
