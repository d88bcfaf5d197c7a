package nbt

import (
	"math"
	"testing"
)

func TestEncode_Scalars(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{in: Byte(1), want: "1b"},
		{in: Byte(-128), want: "-128b"},
		{in: Short(300), want: "300s"},
		{in: Int(-7), want: "-7"},
		{in: Long(1 << 40), want: "1099511627776L"},
		{in: Float(1), want: "1f"},
		{in: Float(0.5), want: "0.5f"},
		{in: Double(2.25), want: "2.25d"},
		{in: Double(1e20), want: "100000000000000000000d"},
		{in: Float(float32(math.Inf(1))), want: "inff"},
		{in: Float(float32(math.Inf(-1))), want: "-inff"},
		{in: Double(math.NaN()), want: "NaNd"},
		{in: String("minecraft:stone"), want: `"minecraft:stone"`},
		{in: String(`say "hi"`), want: `"say "hi""`},
		{in: nil, want: ""},
	}
	for _, c := range cases {
		if got := Encode(c.in); got != c.want {
			t.Fatalf("Encode(%#v)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestEncode_Arrays(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{in: ByteArray{1, -2}, want: "[1b, -2b]"},
		{in: IntArray{1, 2, 3}, want: "[1, 2, 3]"},
		{in: LongArray{5}, want: "[5L]"},
		{in: IntArray{}, want: "[]"},
		{in: List{Short(1), Short(2)}, want: "[1s, 2s]"},
		{in: List{}, want: "[]"},
	}
	for _, c := range cases {
		if got := Encode(c.in); got != c.want {
			t.Fatalf("Encode(%#v)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestEncode_CompoundKeepsOrder(t *testing.T) {
	v := Compound{
		{Name: "a", Value: Int(1)},
		{Name: "b", Value: String("x")},
	}
	if got, want := Encode(v), `{a: 1, b: "x"}`; got != want {
		t.Fatalf("Encode=%q want %q", got, want)
	}

	rev := Compound{
		{Name: "b", Value: String("x")},
		{Name: "a", Value: Int(1)},
	}
	if got, want := Encode(rev), `{b: "x", a: 1}`; got != want {
		t.Fatalf("Encode=%q want %q", got, want)
	}
}

func TestEncode_Nested(t *testing.T) {
	v := Compound{
		{Name: "Items", Value: List{
			Compound{
				{Name: "Slot", Value: Byte(0)},
				{Name: "id", Value: String("minecraft:diamond")},
				{Name: "Count", Value: Byte(3)},
			},
		}},
		{Name: "Lock", Value: String("")},
		{Name: "empty", Value: Compound{}},
	}
	want := `{Items: [{Slot: 0b, id: "minecraft:diamond", Count: 3b}], Lock: "", empty: {}}`
	if got := Encode(v); got != want {
		t.Fatalf("Encode=%q want %q", got, want)
	}
}

func TestRaw(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{in: String("north"), want: "north"},
		{in: Byte(1), want: "1"},
		{in: Int(15), want: "15"},
		{in: Long(-3), want: "-3"},
		{in: Float(0.25), want: "0.25"},
		{in: Double(3), want: "3"},
		{in: Double(math.Inf(-1)), want: "-inf"},
		{in: List{Int(1)}, want: "[1]"},
		{in: nil, want: ""},
	}
	for _, c := range cases {
		if got := Raw(c.in); got != c.want {
			t.Fatalf("Raw(%#v)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestCompoundGet(t *testing.T) {
	c := Compound{
		{Name: "k", Value: Int(1)},
		{Name: "k", Value: Int(2)},
	}
	v, ok := c.Get("k")
	if !ok || v != Int(1) {
		t.Fatalf("Get(k)=%v,%v want first field", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected missing key")
	}
}
