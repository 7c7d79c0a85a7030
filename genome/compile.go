package genome

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Genome is a compiled genome ready to be placed in the arena.
type Genome struct {
	Name   string
	Memory *MemorySet
	// Notes collects the text of print directives.
	Notes []string
}

// CompileError reports why a genome source was rejected. Nothing from a
// rejected source is installed.
type CompileError struct {
	Name   string
	Line   int
	Reason string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s:%d: %s", e.Name, e.Line, e.Reason)
}

type token struct {
	text string
	line int
}

// editTarget is the bank entries are currently written to. registers
// selects W instead of a family bank.
type editTarget struct {
	registers bool
	family    Family
	bank      Byte
}

// Compile translates genome source into a Genome.
//
// Tokens are separated by whitespace; ';' ':' ',' '{' '}' count as
// whitespace. Directives:
//
//	## ... #/            comment
//	define <family> <n>  create bank n (meta, program or storage)
//	edit <family> <n>    write following entries into bank n from index 0
//	edit registry        write following entries into the registers
//	at <index>           move the write index
//	name <word>          name the program
//	print ... #          record a note
//
// Any other token is an entry: a decimal value in [0, 255], a "-" for 0, or
// an opcode mnemonic such as _FORWD (only inside meta and program banks).
// Writing the same cell twice is an error.
func Compile(name string, r io.Reader, cat *Catalog) (*Genome, error) {
	toks, err := tokenize(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	p := &Genome{Name: name, Memory: NewMemorySet()}
	fail := func(t token, format string, args ...any) (*Genome, error) {
		return nil, &CompileError{Name: name, Line: t.line, Reason: fmt.Sprintf(format, args...)}
	}

	target := editTarget{registers: true}
	index := 0
	written := make(map[editTarget]*[BankSize]bool)
	mark := func() bool {
		w := written[target]
		if w == nil {
			w = new([BankSize]bool)
			written[target] = w
		}
		if w[index] {
			return false
		}
		w[index] = true
		return true
	}

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		next := func() (token, bool) {
			if i+1 >= len(toks) {
				return token{}, false
			}
			i++
			return toks[i], true
		}

		switch t.text {
		case "##":
			for {
				c, ok := next()
				if !ok {
					return fail(t, "unterminated comment")
				}
				if c.text == "#/" {
					break
				}
			}

		case "define":
			ft, ok1 := next()
			nt, ok2 := next()
			if !ok1 || !ok2 {
				return fail(t, "family and bank expected after define")
			}
			if ft.text == "registry" {
				return fail(ft, "cannot define new registry")
			}
			fam, ok := ParseFamily(ft.text)
			if !ok {
				return fail(ft, "unknown family %q", ft.text)
			}
			n, err := parseCell(nt.text)
			if err != nil {
				return fail(nt, "bank number expected after define %s, got %q", ft.text, nt.text)
			}
			p.Memory.Define(fam, n)

		case "edit":
			ft, ok := next()
			if !ok {
				return fail(t, "family expected after edit")
			}
			index = 0
			if ft.text == "registry" {
				target = editTarget{registers: true}
				continue
			}
			fam, ok := ParseFamily(ft.text)
			if !ok {
				return fail(ft, "unknown family %q", ft.text)
			}
			nt, ok := next()
			if !ok {
				return fail(ft, "bank number expected after edit %s", ft.text)
			}
			n, err := parseCell(nt.text)
			if err != nil {
				return fail(nt, "bank number out of bounds; must be between 0 and 255")
			}
			if !p.Memory.Has(fam, n) {
				return fail(nt, "no %s defined at %d", fam, n)
			}
			target = editTarget{family: fam, bank: n}

		case "at":
			it, ok := next()
			if !ok {
				return fail(t, "index expected after at")
			}
			n, err := strconv.Atoi(it.text)
			if err != nil {
				return fail(it, "index expected after at; instead received %q", it.text)
			}
			if n < 0 || n >= BankSize {
				return fail(it, "at index invalid (must be between 0 and 255)")
			}
			index = n

		case "name":
			nt, ok := next()
			if !ok {
				return fail(t, "word expected after name")
			}
			p.Name = nt.text

		case "print":
			var words []string
			for {
				w, ok := next()
				if !ok {
					return fail(t, "print without closing #")
				}
				if w.text == "#" {
					break
				}
				words = append(words, w.text)
			}
			p.Notes = append(p.Notes, strings.Join(words, " "))

		default:
			var v Byte
			switch {
			case strings.HasPrefix(t.text, "_"):
				if target.registers || target.family == Storage {
					return fail(t, "command %s in passive memory", t.text)
				}
				op, ok := cat.Opcode(t.text)
				if !ok {
					return fail(t, "unknown command %s", t.text)
				}
				v = op
			case strings.HasPrefix(t.text, "-"):
				v = 0
			default:
				n, err := parseCell(t.text)
				if err != nil {
					return fail(t, "entry expected; instead received %q", t.text)
				}
				v = n
			}
			if index >= BankSize {
				return fail(t, "%s index out of bounds", describe(target))
			}
			if !mark() {
				return fail(t, "%s at %d already defined", describe(target), index)
			}
			if target.registers {
				p.Memory.Registers[index] = v
			} else {
				p.Memory.Bank(target.family, target.bank)[index] = v
			}
			index++
		}
	}
	return p, nil
}

func describe(t editTarget) string {
	if t.registers {
		return "registry"
	}
	return fmt.Sprintf("%s %d", t.family, t.bank)
}

func parseCell(s string) (Byte, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("value %d out of range", n)
	}
	return Byte(n), nil
}

func tokenize(r io.Reader) ([]token, error) {
	var toks []token
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.Map(func(c rune) rune {
			switch c {
			case ';', ':', ',', '{', '}':
				return ' '
			}
			return c
		}, sc.Text())
		for _, f := range strings.Fields(text) {
			toks = append(toks, token{text: f, line: line})
		}
	}
	return toks, sc.Err()
}
