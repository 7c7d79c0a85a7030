package genome

import (
	"math"
	"testing"
)

func TestByteArithmeticWraps(t *testing.T) {
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			x, y := Byte(a), Byte(b)
			if got, want := x.Add(y).Int(), (a+b)%256; got != want {
				t.Fatalf("%d.Add(%d) = %d, want %d", a, b, got, want)
			}
			if got, want := x.Sub(y).Int(), ((a-b)%256+256)%256; got != want {
				t.Fatalf("%d.Sub(%d) = %d, want %d", a, b, got, want)
			}
			if got, want := x.Mul(y).Int(), (a*b)%256; got != want {
				t.Fatalf("%d.Mul(%d) = %d, want %d", a, b, got, want)
			}
		}
	}
}

func TestByteEdges(t *testing.T) {
	tests := []struct {
		name string
		got  Byte
		want Byte
	}{
		{"255+1", Byte(255).Add(1), 0},
		{"0-1", Byte(0).Sub(1), 255},
		{"incr 255", Byte(255).Incr(), 0},
		{"16*16", Byte(16).Mul(16), 0},
		{"xor", Byte(0xF0).Xor(0xFF), 0x0F},
		{"and", Byte(0xF0).And(0x3C), 0x30},
		{"or", Byte(0xF0).Or(0x0F), 0xFF},
		{"quo by zero", Byte(7).Quo(0), 7},
		{"quo", Byte(200).Quo(3), 66},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestByteConversions(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want Byte
	}{
		{"positive", 12.9, 12},
		{"negative", -1.5, 255},
		{"large", 513, 1},
		{"nan", math.NaN(), 0},
		{"inf", math.Inf(1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ByteOfFloat(tt.in); got != tt.want {
				t.Errorf("ByteOfFloat(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}

	if got := ByteOf(-256 - 3); got != 253 {
		t.Errorf("ByteOf(-259) = %d, want 253", got)
	}
}
