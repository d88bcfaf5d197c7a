// Package nbttest builds binary NBT fixtures for tests.
package nbttest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"testing"

	"github.com/klauspost/compress/gzip"

	"ribosome.dev/internal/nbt"
)

// Marshal writes v as a named root tag in uncompressed big-endian NBT.
func Marshal(name string, v nbt.Value) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(v.Type()))
	writeString(&buf, name)
	writePayload(&buf, v)
	return buf.Bytes()
}

// MarshalGzip is Marshal wrapped in a gzip stream, the layout of .nbt structure files.
func MarshalGzip(name string, v nbt.Value) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write(Marshal(name, v))
	_ = zw.Close()
	return buf.Bytes()
}

// WriteFile writes a gzip structure file at path.
func WriteFile(t testing.TB, path string, root nbt.Compound) {
	t.Helper()
	if err := os.WriteFile(path, MarshalGzip("", root), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeString(buf *bytes.Buffer, s string) {
	_ = binary.Write(buf, binary.BigEndian, uint16(len(s)))
	buf.WriteString(s)
}

func writePayload(buf *bytes.Buffer, v nbt.Value) {
	be := binary.BigEndian
	switch x := v.(type) {
	case nbt.Byte:
		buf.WriteByte(byte(x))
	case nbt.Short:
		_ = binary.Write(buf, be, int16(x))
	case nbt.Int:
		_ = binary.Write(buf, be, int32(x))
	case nbt.Long:
		_ = binary.Write(buf, be, int64(x))
	case nbt.Float:
		_ = binary.Write(buf, be, math.Float32bits(float32(x)))
	case nbt.Double:
		_ = binary.Write(buf, be, math.Float64bits(float64(x)))
	case nbt.String:
		writeString(buf, string(x))
	case nbt.ByteArray:
		_ = binary.Write(buf, be, int32(len(x)))
		_ = binary.Write(buf, be, []int8(x))
	case nbt.IntArray:
		_ = binary.Write(buf, be, int32(len(x)))
		_ = binary.Write(buf, be, []int32(x))
	case nbt.LongArray:
		_ = binary.Write(buf, be, int32(len(x)))
		_ = binary.Write(buf, be, []int64(x))
	case nbt.List:
		elem := nbt.TypeEnd
		if len(x) > 0 {
			elem = x[0].Type()
		}
		buf.WriteByte(byte(elem))
		_ = binary.Write(buf, be, int32(len(x)))
		for _, e := range x {
			writePayload(buf, e)
		}
	case nbt.Compound:
		for _, f := range x {
			buf.WriteByte(byte(f.Value.Type()))
			writeString(buf, f.Name)
			writePayload(buf, f.Value)
		}
		buf.WriteByte(byte(nbt.TypeEnd))
	}
}
