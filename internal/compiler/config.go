package compiler

import "fmt"

// Mode picks the origin of the emitted relative coordinates within the
// structure's bounding box.
type Mode int

const (
	Corner Mode = iota
	Center
	CenterTop
	CenterBottom
)

var modeNames = []string{
	Corner:       "corner",
	Center:       "center",
	CenterTop:    "center_top",
	CenterBottom: "center_bottom",
}

// ModeNames lists the accepted mode names in declaration order.
func ModeNames() []string {
	return append([]string(nil), modeNames...)
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if s == name {
			return Mode(i), nil
		}
	}
	return Corner, fmt.Errorf("unknown mode %q", s)
}

const (
	DefaultTarget    = "#structure.pass"
	DefaultObjective = "ffi.ribosome"

	// AirBlock is skipped when Config.Void is set.
	AirBlock = "minecraft:air"
)

// Config is the set of output options for one compile. Target and
// Objective are assumed to be validated by the caller.
type Config struct {
	Void             bool   `json:"void"`
	Target           string `json:"target"`
	Objective        string `json:"objective"`
	Mode             Mode   `json:"mode"`
	IgnoreNBT        bool   `json:"ignore_nbt"`
	IgnoreBlockState bool   `json:"ignore_block_state"`
}

func DefaultConfig() Config {
	return Config{
		Target:    DefaultTarget,
		Objective: DefaultObjective,
		Mode:      Corner,
	}
}
