package genome

import (
	"fmt"
	"strings"
)

// FormatActive renders an executable bank one instruction per line, showing
// each argument next to the register it would address. Opcode 0 and
// undefined opcodes are skipped, the same way the interpreter skips them.
func FormatActive(b *Bank, cat *Catalog, regs *Bank) string {
	if b == nil {
		return "no memory exists here\n"
	}
	var sb strings.Builder
	for i := 0; i+3 < BankSize; i += 4 {
		g, ok := cat.Lookup(b[i])
		if !ok {
			continue
		}
		a0, a1, a2 := b[i+1], b[i+2], b[i+3]
		fmt.Fprintf(&sb, "%3d %-7s (%3d [%3d], %3d [%3d], %3d [%3d])\n",
			i, g.Name, a0, regs[a0], a1, regs[a1], a2, regs[a2])
	}
	return sb.String()
}

// FormatPassive renders a data bank as rows of 16 cells prefixed by the row
// offset in hex.
func FormatPassive(b *Bank) string {
	if b == nil {
		return "no memory exists here\n"
	}
	var sb strings.Builder
	for row := 0; row < BankSize; row += 16 {
		fmt.Fprintf(&sb, "%02X |", row)
		for _, v := range b[row : row+16] {
			fmt.Fprintf(&sb, " %3d", v)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Format renders every defined bank of a memory set.
func Format(m *MemorySet, cat *Catalog) string {
	var sb strings.Builder
	for _, f := range []Family{Meta, Program, Storage} {
		for _, i := range m.Defined(f) {
			fmt.Fprintf(&sb, "%s %d\n", f, i)
			if f == Storage {
				sb.WriteString(FormatPassive(m.Bank(f, i)))
			} else {
				sb.WriteString(FormatActive(m.Bank(f, i), cat, &m.Registers))
			}
		}
	}
	sb.WriteString("registers\n")
	sb.WriteString(FormatPassive(&m.Registers))
	return sb.String()
}
