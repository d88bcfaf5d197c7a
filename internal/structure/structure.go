package structure

import (
	"fmt"

	"ribosome.dev/internal/nbt"
)

// Document is a decoded structure file: the bounding box size, the palette
// of block types and the placed blocks that reference it.
type Document struct {
	DataVersion int32
	Size        [3]int
	Palette     []PaletteEntry
	Blocks      []BlockInstance
}

type PaletteEntry struct {
	Name string
	// Properties holds the block state, normally a compound of name -> string.
	// Nil when the entry has none.
	Properties nbt.Value
}

type BlockInstance struct {
	// State indexes Document.Palette. It is not validated here.
	State int
	Pos   [3]int
	// NBT is the block entity data (chest contents, sign text, ...), or nil.
	NBT nbt.Value
}

// ReadFile decodes a structure file written by a structure block.
func ReadFile(path string) (*Document, error) {
	_, root, err := nbt.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromNBT(root)
}

// FromNBT maps the root compound of a structure file onto a Document.
// Unknown keys (entities, author, ...) are ignored.
func FromNBT(root nbt.Value) (*Document, error) {
	c, ok := root.(nbt.Compound)
	if !ok {
		return nil, fmt.Errorf("structure: root is %s, want %s", typeName(root), nbt.TypeCompound)
	}

	var doc Document
	if v, ok := c.Get("DataVersion"); ok {
		n, ok := v.(nbt.Int)
		if !ok {
			return nil, fmt.Errorf("structure: DataVersion is %s, want %s", typeName(v), nbt.TypeInt)
		}
		doc.DataVersion = int32(n)
	}

	v, ok := c.Get("size")
	if !ok {
		return nil, fmt.Errorf("structure: missing size")
	}
	size, err := triple(v, "size")
	if err != nil {
		return nil, err
	}
	doc.Size = size

	palette, err := paletteList(c)
	if err != nil {
		return nil, err
	}
	doc.Palette = make([]PaletteEntry, 0, len(palette))
	for i, v := range palette {
		e, err := paletteEntry(v, fmt.Sprintf("palette[%d]", i))
		if err != nil {
			return nil, err
		}
		doc.Palette = append(doc.Palette, e)
	}

	if v, ok := c.Get("blocks"); ok {
		blocks, ok := v.(nbt.List)
		if !ok {
			return nil, fmt.Errorf("structure: blocks is %s, want %s", typeName(v), nbt.TypeList)
		}
		doc.Blocks = make([]BlockInstance, 0, len(blocks))
		for i, v := range blocks {
			b, err := blockInstance(v, fmt.Sprintf("blocks[%d]", i))
			if err != nil {
				return nil, err
			}
			doc.Blocks = append(doc.Blocks, b)
		}
	}

	return &doc, nil
}

// paletteList returns "palette", or the first of "palettes" for structures
// that ship several variants (shipwrecks, ...).
func paletteList(c nbt.Compound) (nbt.List, error) {
	if v, ok := c.Get("palette"); ok {
		l, ok := v.(nbt.List)
		if !ok {
			return nil, fmt.Errorf("structure: palette is %s, want %s", typeName(v), nbt.TypeList)
		}
		return l, nil
	}
	v, ok := c.Get("palettes")
	if !ok {
		return nil, fmt.Errorf("structure: missing palette")
	}
	all, ok := v.(nbt.List)
	if !ok {
		return nil, fmt.Errorf("structure: palettes is %s, want %s", typeName(v), nbt.TypeList)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("structure: palettes is empty")
	}
	l, ok := all[0].(nbt.List)
	if !ok {
		return nil, fmt.Errorf("structure: palettes[0] is %s, want %s", typeName(all[0]), nbt.TypeList)
	}
	return l, nil
}

func paletteEntry(v nbt.Value, path string) (PaletteEntry, error) {
	c, ok := v.(nbt.Compound)
	if !ok {
		return PaletteEntry{}, fmt.Errorf("structure: %s is %s, want %s", path, typeName(v), nbt.TypeCompound)
	}
	nv, ok := c.Get("Name")
	if !ok {
		return PaletteEntry{}, fmt.Errorf("structure: %s: missing Name", path)
	}
	name, ok := nv.(nbt.String)
	if !ok {
		return PaletteEntry{}, fmt.Errorf("structure: %s.Name is %s, want %s", path, typeName(nv), nbt.TypeString)
	}
	e := PaletteEntry{Name: string(name)}
	if props, ok := c.Get("Properties"); ok {
		e.Properties = props
	}
	return e, nil
}

func blockInstance(v nbt.Value, path string) (BlockInstance, error) {
	c, ok := v.(nbt.Compound)
	if !ok {
		return BlockInstance{}, fmt.Errorf("structure: %s is %s, want %s", path, typeName(v), nbt.TypeCompound)
	}
	sv, ok := c.Get("state")
	if !ok {
		return BlockInstance{}, fmt.Errorf("structure: %s: missing state", path)
	}
	state, ok := sv.(nbt.Int)
	if !ok {
		return BlockInstance{}, fmt.Errorf("structure: %s.state is %s, want %s", path, typeName(sv), nbt.TypeInt)
	}
	pv, ok := c.Get("pos")
	if !ok {
		return BlockInstance{}, fmt.Errorf("structure: %s: missing pos", path)
	}
	pos, err := triple(pv, path+".pos")
	if err != nil {
		return BlockInstance{}, err
	}
	b := BlockInstance{State: int(state), Pos: pos}
	if data, ok := c.Get("nbt"); ok {
		b.NBT = data
	}
	return b, nil
}

func triple(v nbt.Value, path string) ([3]int, error) {
	var out [3]int
	switch l := v.(type) {
	case nbt.List:
		if len(l) != 3 {
			return out, fmt.Errorf("structure: %s has %d components, want 3", path, len(l))
		}
		for i, e := range l {
			n, ok := e.(nbt.Int)
			if !ok {
				return out, fmt.Errorf("structure: %s[%d] is %s, want %s", path, i, typeName(e), nbt.TypeInt)
			}
			out[i] = int(n)
		}
	case nbt.IntArray:
		if len(l) != 3 {
			return out, fmt.Errorf("structure: %s has %d components, want 3", path, len(l))
		}
		for i, n := range l {
			out[i] = int(n)
		}
	default:
		return out, fmt.Errorf("structure: %s is %s, want %s", path, typeName(v), nbt.TypeList)
	}
	return out, nil
}

func typeName(v nbt.Value) string {
	if v == nil {
		return "nil"
	}
	return v.Type().String()
}
