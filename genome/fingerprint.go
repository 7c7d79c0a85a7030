package genome

import (
	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
)

// Fingerprint hashes every defined bank of every family. Registers are
// runtime state and are not included, so a parent and its fresh child share
// a fingerprint until either mutates.
func Fingerprint(m *MemorySet) string {
	h := blake3.New()
	for f := Family(0); f < numFamilies; f++ {
		for i, b := range m.banks[f] {
			if b == nil {
				continue
			}
			h.Write([]byte{byte(f), byte(i)})
			cells := make([]byte, BankSize)
			for j, v := range b {
				cells[j] = byte(v)
			}
			h.Write(cells)
		}
	}
	sum := h.Sum(nil)
	return base58.Encode(sum[:16])
}
