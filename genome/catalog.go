package genome

import (
	"bufio"
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
)

//go:embed origin.txt
var originCatalog []byte

// CatalogSize is the number of opcode slots.
const CatalogSize = 256

// Sentinel terminates a catalog definition.
const Sentinel = 0xFF

var (
	ErrNoSentinel  = errors.New("catalog ends without sentinel")
	ErrOpcodeOrder = errors.New("opcodes must strictly increase")
)

// CatalogError reports a malformed catalog definition.
type CatalogError struct {
	Line   int
	Reason string
	Err    error
}

func (e *CatalogError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("catalog line %d: %s", e.Line, e.Reason)
	}
	return "catalog: " + e.Reason
}

func (e *CatalogError) Unwrap() error { return e.Err }

// Gene describes one opcode. Everything except Weight is fixed at load.
type Gene struct {
	Opcode      Byte
	Name        string
	Description string
	Cost        float64
	Weight      int
}

// Catalog maps opcodes to genes. It is loaded once and shared by every robot;
// only weights change afterwards.
type Catalog struct {
	genes  [CatalogSize]*Gene
	order  []Byte
	byName map[string]Byte
	total  int
}

// DefaultCatalog parses the embedded catalog definition.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(bytes.NewReader(originCatalog))
}

// LoadCatalog parses a catalog definition. Each record is a line of
// slash-separated fields:
//
//	/ OP / NAME / DESCRIPTION / WEIGHT / COST /
//
// with OP in hex. The description may itself contain slashes. Opcodes must
// strictly increase and the list ends with a
// "/ FF /" record. Blank lines and lines starting with '#' are ignored.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Byte)}

	sc := bufio.NewScanner(r)
	line := 0
	prev := -1
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := splitRecord(text)
		op, err := strconv.ParseUint(fields[0], 16, 8)
		if err != nil {
			return nil, &CatalogError{Line: line, Reason: fmt.Sprintf("bad opcode %q", fields[0]), Err: err}
		}
		if op == Sentinel {
			return c, nil
		}
		if int(op) <= prev {
			return nil, &CatalogError{Line: line, Reason: fmt.Sprintf("opcode %02X after %02X", op, prev), Err: ErrOpcodeOrder}
		}
		prev = int(op)
		if op == 0 {
			return nil, &CatalogError{Line: line, Reason: "opcode 00 is reserved for the no-op"}
		}
		if len(fields) < 5 {
			return nil, &CatalogError{Line: line, Reason: fmt.Sprintf("want 5 fields, got %d", len(fields))}
		}
		// Weight and cost are the last two fields; any extra slashes belong
		// to the description.
		n := len(fields)
		weight, err := strconv.Atoi(fields[n-2])
		if err != nil || weight < 0 {
			return nil, &CatalogError{Line: line, Reason: fmt.Sprintf("bad weight %q", fields[n-2]), Err: err}
		}
		cost, err := strconv.ParseFloat(fields[n-1], 64)
		if err != nil {
			return nil, &CatalogError{Line: line, Reason: fmt.Sprintf("bad cost %q", fields[n-1]), Err: err}
		}
		name := fields[1]
		if _, dup := c.byName[name]; dup {
			return nil, &CatalogError{Line: line, Reason: fmt.Sprintf("duplicate name %s", name)}
		}

		g := &Gene{
			Opcode:      Byte(op),
			Name:        name,
			Description: strings.Join(fields[2:n-2], " / "),
			Weight:      weight,
			Cost:        cost,
		}
		c.genes[op] = g
		c.order = append(c.order, g.Opcode)
		c.byName[name] = g.Opcode
		c.total += weight
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return nil, &CatalogError{Reason: "missing FF record", Err: ErrNoSentinel}
}

// splitRecord splits "/ a / b /" into trimmed fields, dropping the empty
// fields outside the leading and trailing slashes.
func splitRecord(text string) []string {
	parts := strings.Split(text, "/")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 {
		return []string{""}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Lookup returns the gene for an opcode, or false for opcode 0 and undefined slots.
func (c *Catalog) Lookup(op Byte) (*Gene, bool) {
	g := c.genes[op]
	return g, g != nil
}

// Opcode resolves a mnemonic such as "_FORWD".
func (c *Catalog) Opcode(name string) (Byte, bool) {
	op, ok := c.byName[name]
	return op, ok
}

// Genes returns the defined genes in opcode order.
func (c *Catalog) Genes() []*Gene {
	out := make([]*Gene, 0, len(c.order))
	for _, op := range c.order {
		out = append(out, c.genes[op])
	}
	return out
}

// Len returns the number of defined opcodes.
func (c *Catalog) Len() int { return len(c.order) }

// TotalWeight returns the sum of all defined weights.
func (c *Catalog) TotalWeight() int { return c.total }

// Reweight sets an opcode's selection weight. Negative weights are clamped to 0.
func (c *Catalog) Reweight(op Byte, weight int) bool {
	g := c.genes[op]
	if g == nil {
		return false
	}
	if weight < 0 {
		weight = 0
	}
	c.total += weight - g.Weight
	g.Weight = weight
	return true
}

// Pick draws an opcode with probability proportional to its weight.
// Zero-weight opcodes are never chosen; an empty distribution yields 0.
func (c *Catalog) Pick(rng *rand.Rand) Byte {
	if c.total <= 0 {
		return 0
	}
	u := rng.Float64() * float64(c.total)
	var last Byte
	for _, op := range c.order {
		w := c.genes[op].Weight
		if w <= 0 {
			continue
		}
		last = op
		if u < float64(w) {
			return op
		}
		u -= float64(w)
	}
	// Rounding can leave u just past the final weight.
	return last
}
