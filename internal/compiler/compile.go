package compiler

import (
	"fmt"
	"strings"

	"ribosome.dev/internal/nbt"
	"ribosome.dev/internal/structure"
)

// StructuralError reports a block whose state does not index the palette.
// The document is malformed and no output from it should be used.
type StructuralError struct {
	Block      int
	State      int
	PaletteLen int
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("block %d: state %d out of range for palette of %d entries", e.Block, e.State, e.PaletteLen)
}

// Compile renders doc as a function body: a line that arms the score,
// then one test per block that clears it when the block does not match.
// Lines are separated by "\n" without a trailing newline.
func Compile(doc *structure.Document, cfg Config) (string, error) {
	lines, err := Lines(doc, cfg)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// Lines is Compile without the final join. The first line is always the
// initialization line.
func Lines(doc *structure.Document, cfg Config) ([]string, error) {
	lines := make([]string, 0, len(doc.Blocks)+1)
	lines = append(lines, fmt.Sprintf("scoreboard players set %s %s 1", cfg.Target, cfg.Objective))

	off := Offset(doc.Size, cfg.Mode)
	for i, b := range doc.Blocks {
		if b.State < 0 || b.State >= len(doc.Palette) {
			return nil, &StructuralError{Block: i, State: b.State, PaletteLen: len(doc.Palette)}
		}
		entry := doc.Palette[b.State]
		if cfg.Void && entry.Name == AirBlock {
			continue
		}

		var state, aux string
		if !cfg.IgnoreBlockState {
			state = BlockState(entry.Properties)
		}
		if b.NBT != nil && !cfg.IgnoreNBT {
			aux = nbt.Encode(b.NBT)
		}

		lines = append(lines, fmt.Sprintf(
			"execute if score %s %s matches 1 unless block ~%d ~%d ~%d %s%s%s run scoreboard players set %s %s 0",
			cfg.Target, cfg.Objective,
			b.Pos[0]-off[0], b.Pos[1]-off[1], b.Pos[2]-off[2],
			entry.Name, state, aux,
			cfg.Target, cfg.Objective,
		))
	}
	return lines, nil
}

// Offset is the grid position that becomes ~0 ~0 ~0. Halves truncate
// toward zero, so an extent of 5 centers on 2.
func Offset(size [3]int, mode Mode) [3]int {
	switch mode {
	case Center:
		return [3]int{size[0] / 2, size[1] / 2, size[2] / 2}
	case CenterTop:
		return [3]int{size[0] / 2, size[1], size[2] / 2}
	case CenterBottom:
		return [3]int{size[0] / 2, 0, size[2] / 2}
	default:
		return [3]int{}
	}
}

// BlockState renders a property compound as [k=v, ...]. Values are written
// raw (facing=north, not facing="north"). Anything but a compound renders "".
func BlockState(props nbt.Value) string {
	c, ok := props.(nbt.Compound)
	if !ok {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range c {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteByte('=')
		sb.WriteString(nbt.Raw(f.Value))
	}
	sb.WriteByte(']')
	return sb.String()
}
