package game

import (
	"math/rand"
	"strings"
)

// Namer gives new robots a name. It draws only from rng so runs stay
// reproducible.
type Namer interface {
	Name(rng *rand.Rand) string
}

var (
	onsets = []string{"b", "c", "d", "f", "g", "k", "l", "m", "n", "p", "r", "s", "t", "v", "z", "br", "cr", "gr", "st", "th"}
	nuclei = []string{"a", "e", "i", "o", "u", "ai", "ou"}
	codas  = []string{"", "", "", "n", "r", "s", "x", "k"}
)

// SyllableNamer builds capitalized names of two or three random syllables.
type SyllableNamer struct{}

func (SyllableNamer) Name(rng *rand.Rand) string {
	var sb strings.Builder
	n := 2 + rng.Intn(2)
	for range n {
		sb.WriteString(onsets[rng.Intn(len(onsets))])
		sb.WriteString(nuclei[rng.Intn(len(nuclei))])
	}
	sb.WriteString(codas[rng.Intn(len(codas))])

	name := sb.String()
	return strings.ToUpper(name[:1]) + name[1:]
}
