package genome

import "math/rand"

const (
	BankSize     = 256 // cells per bank
	NumBanks     = 256 // banks per family
	NumRegisters = 256
)

// Family selects one of the three banked memory families.
type Family uint8

const (
	Meta    Family = iota // U: runs at birth and death
	Program               // P: runs every tick
	Storage               // S: data only
	numFamilies
)

func (f Family) String() string {
	switch f {
	case Meta:
		return "meta"
	case Program:
		return "program"
	case Storage:
		return "storage"
	}
	return "unknown"
}

// ParseFamily maps a family name as written in genome source.
func ParseFamily(s string) (Family, bool) {
	switch s {
	case "meta":
		return Meta, true
	case "program":
		return Program, true
	case "storage":
		return Storage, true
	}
	return 0, false
}

// Bank is one fixed-size array of cells.
type Bank [BankSize]Byte

// MemorySet is a robot's complete genome plus its working registers.
// Bank 0 of every family always exists.
type MemorySet struct {
	banks     [numFamilies][NumBanks]*Bank
	Registers Bank
}

// NewMemorySet returns a set with only the bank-0 of each family, all zero.
func NewMemorySet() *MemorySet {
	m := &MemorySet{}
	for f := range m.banks {
		m.banks[f][0] = new(Bank)
	}
	return m
}

// Bank returns the bank or nil if it does not exist.
func (m *MemorySet) Bank(f Family, i Byte) *Bank {
	if f >= numFamilies {
		return nil
	}
	return m.banks[f][i]
}

// Has reports whether bank i of family f exists.
func (m *MemorySet) Has(f Family, i Byte) bool {
	return m.Bank(f, i) != nil
}

// Define creates an empty bank. It returns false if the bank already exists.
func (m *MemorySet) Define(f Family, i Byte) bool {
	if f >= numFamilies || m.banks[f][i] != nil {
		return false
	}
	m.banks[f][i] = new(Bank)
	return true
}

// Destroy removes a bank. Bank 0 can never be destroyed.
func (m *MemorySet) Destroy(f Family, i Byte) bool {
	if f >= numFamilies || i == 0 || m.banks[f][i] == nil {
		return false
	}
	m.banks[f][i] = nil
	return true
}

// Copy overwrites bank dst with the contents of bank src. Both must exist.
func (m *MemorySet) Copy(f Family, dst, src Byte) bool {
	d, s := m.Bank(f, dst), m.Bank(f, src)
	if d == nil || s == nil {
		return false
	}
	*d = *s
	return true
}

// Defined lists the existing bank indices of a family in ascending order.
func (m *MemorySet) Defined(f Family) []Byte {
	if f >= numFamilies {
		return nil
	}
	var out []Byte
	for i, b := range m.banks[f] {
		if b != nil {
			out = append(out, Byte(i))
		}
	}
	return out
}

// Clone deep-copies every bank. Registers are left zeroed.
func (m *MemorySet) Clone() *MemorySet {
	c := &MemorySet{}
	for f := range m.banks {
		for i, b := range m.banks[f] {
			if b != nil {
				cp := *b
				c.banks[f][i] = &cp
			}
		}
	}
	return c
}

// RandomSet returns the value of a randomly chosen non-zero cell of b.
// At most probes cells are sampled; if none is set the result is 0.
func RandomSet(b *Bank, rng *rand.Rand, probes int) Byte {
	if b == nil {
		return 0
	}
	for range probes {
		if v := b[rng.Intn(BankSize)]; v != 0 {
			return v
		}
	}
	return 0
}
