package structure

import (
	"path/filepath"
	"strings"
	"testing"

	"ribosome.dev/internal/nbt"
	"ribosome.dev/internal/nbt/nbttest"
)

func ints(xs ...int32) nbt.List {
	out := make(nbt.List, 0, len(xs))
	for _, x := range xs {
		out = append(out, nbt.Int(x))
	}
	return out
}

func chestStructure() nbt.Compound {
	return nbt.Compound{
		{Name: "DataVersion", Value: nbt.Int(3465)},
		{Name: "size", Value: ints(2, 1, 1)},
		{Name: "palette", Value: nbt.List{
			nbt.Compound{{Name: "Name", Value: nbt.String("minecraft:air")}},
			nbt.Compound{
				{Name: "Name", Value: nbt.String("minecraft:chest")},
				{Name: "Properties", Value: nbt.Compound{
					{Name: "facing", Value: nbt.String("north")},
					{Name: "type", Value: nbt.String("single")},
				}},
			},
		}},
		{Name: "blocks", Value: nbt.List{
			nbt.Compound{
				{Name: "state", Value: nbt.Int(0)},
				{Name: "pos", Value: ints(0, 0, 0)},
			},
			nbt.Compound{
				{Name: "state", Value: nbt.Int(1)},
				{Name: "pos", Value: ints(1, 0, 0)},
				{Name: "nbt", Value: nbt.Compound{{Name: "Lock", Value: nbt.String("")}}},
			},
		}},
		{Name: "entities", Value: nbt.List{}},
	}
}

func TestFromNBT(t *testing.T) {
	doc, err := FromNBT(chestStructure())
	if err != nil {
		t.Fatalf("FromNBT: %v", err)
	}
	if doc.DataVersion != 3465 {
		t.Fatalf("DataVersion=%d want 3465", doc.DataVersion)
	}
	if doc.Size != [3]int{2, 1, 1} {
		t.Fatalf("Size=%v", doc.Size)
	}
	if len(doc.Palette) != 2 || doc.Palette[1].Name != "minecraft:chest" {
		t.Fatalf("palette=%+v", doc.Palette)
	}
	if doc.Palette[0].Properties != nil {
		t.Fatalf("air should have no properties")
	}
	if got := nbt.Encode(doc.Palette[1].Properties); got != `{facing: "north", type: "single"}` {
		t.Fatalf("properties=%s", got)
	}
	if len(doc.Blocks) != 2 {
		t.Fatalf("blocks=%d want 2", len(doc.Blocks))
	}
	b := doc.Blocks[1]
	if b.State != 1 || b.Pos != [3]int{1, 0, 0} || b.NBT == nil {
		t.Fatalf("block[1]=%+v", b)
	}
	if doc.Blocks[0].NBT != nil {
		t.Fatalf("block[0] should have no nbt")
	}
}

func TestFromNBT_PalettesVariant(t *testing.T) {
	root := nbt.Compound{
		{Name: "size", Value: ints(1, 1, 1)},
		{Name: "palettes", Value: nbt.List{
			nbt.List{nbt.Compound{{Name: "Name", Value: nbt.String("minecraft:oak_planks")}}},
			nbt.List{nbt.Compound{{Name: "Name", Value: nbt.String("minecraft:spruce_planks")}}},
		}},
		{Name: "blocks", Value: nbt.List{}},
	}
	doc, err := FromNBT(root)
	if err != nil {
		t.Fatalf("FromNBT: %v", err)
	}
	if len(doc.Palette) != 1 || doc.Palette[0].Name != "minecraft:oak_planks" {
		t.Fatalf("expected first palette variant, got %+v", doc.Palette)
	}
	if doc.DataVersion != 0 {
		t.Fatalf("missing DataVersion should default to 0")
	}
}

func TestFromNBT_Errors(t *testing.T) {
	cases := []struct {
		name string
		root nbt.Value
		want string
	}{
		{name: "not compound", root: nbt.Int(1), want: "root is TAG_Int"},
		{name: "missing size", root: nbt.Compound{}, want: "missing size"},
		{
			name: "short size",
			root: nbt.Compound{{Name: "size", Value: ints(1, 2)}},
			want: "size has 2 components",
		},
		{
			name: "missing palette",
			root: nbt.Compound{{Name: "size", Value: ints(1, 1, 1)}},
			want: "missing palette",
		},
		{
			name: "palette without name",
			root: nbt.Compound{
				{Name: "size", Value: ints(1, 1, 1)},
				{Name: "palette", Value: nbt.List{nbt.Compound{}}},
			},
			want: "palette[0]: missing Name",
		},
		{
			name: "bad pos",
			root: nbt.Compound{
				{Name: "size", Value: ints(1, 1, 1)},
				{Name: "palette", Value: nbt.List{}},
				{Name: "blocks", Value: nbt.List{nbt.Compound{
					{Name: "state", Value: nbt.Int(0)},
					{Name: "pos", Value: nbt.List{nbt.Int(0), nbt.String("x"), nbt.Int(0)}},
				}}},
			},
			want: "blocks[0].pos[1] is TAG_String",
		},
	}
	for _, c := range cases {
		_, err := FromNBT(c.root)
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Fatalf("%s: err=%v want substring %q", c.name, err, c.want)
		}
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chest.nbt")
	nbttest.WriteFile(t, path, chestStructure())

	doc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(doc.Blocks) != 2 || doc.Palette[1].Name != "minecraft:chest" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}
