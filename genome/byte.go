// Package genome holds the evolvable program representation of a robot:
// the 8-bit cell type, memory banks, the gene catalog and the load-time
// compiler that turns genome source into a memory set.
package genome

import "math"

// Byte is the 8-bit unsigned cell every memory bank and register holds.
// All arithmetic wraps modulo 256.
type Byte uint8

// ByteOf wraps an integer into a Byte.
func ByteOf(v int) Byte {
	return Byte(uint8(v))
}

// ByteOfFloat truncates toward zero and wraps. NaN and infinities map to 0.
func ByteOfFloat(f float64) Byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return ByteOf(int(math.Mod(math.Trunc(f), 256)))
}

func (b Byte) Add(o Byte) Byte { return b + o }
func (b Byte) Sub(o Byte) Byte { return b - o }
func (b Byte) Mul(o Byte) Byte { return b * o }
func (b Byte) And(o Byte) Byte { return b & o }
func (b Byte) Or(o Byte) Byte  { return b | o }
func (b Byte) Xor(o Byte) Byte { return b ^ o }
func (b Byte) Incr() Byte      { return b + 1 }

// Quo divides, returning b unchanged for a zero divisor.
func (b Byte) Quo(o Byte) Byte {
	if o == 0 {
		return b
	}
	return b / o
}

// Int returns the value as an int in [0, 255].
func (b Byte) Int() int { return int(b) }
