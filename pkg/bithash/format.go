package bithash

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

// Write prints h in the persisted text format, each line prefixed by indent.
func (h *Hash) Write(w io.Writer, indent string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%sBitHashBegin %d %d\n", indent, h.WO, h.WI)
	for i, t := range h.Tables {
		fmt.Fprintf(bw, "%s  table %d %d\n", indent, i, len(t.Selectors))
		fmt.Fprintf(bw, "%s    sel", indent)
		for _, s := range t.Selectors {
			fmt.Fprintf(bw, " %d", s)
		}
		fmt.Fprintf(bw, "\n%s    lut %s\n", indent, bitvector.New(t.LUT...))
	}
	fmt.Fprintf(bw, "%sBitHashEnd\n", indent)
	return bw.Flush()
}

func (h *Hash) String() string {
	var sb strings.Builder
	_ = h.Write(&sb, "")
	return sb.String()
}

// Parse reads one structure in the format produced by Write.
func Parse(r io.Reader) (*Hash, error) {
	return ParseFrom(bufio.NewScanner(r))
}

// ParseFrom reads one structure from sc and stops at the line holding
// BitHashEnd, leaving anything after it for the caller.
func ParseFrom(sc *bufio.Scanner) (*Hash, error) {
	tk := &tokens{sc: sc}
	h, err := parseHash(tk)
	if err != nil {
		return nil, errors.Wrapf(err, "bit hash line %d", tk.line)
	}
	return h, nil
}

func parseHash(tk *tokens) (*Hash, error) {
	if err := tk.expect("BitHashBegin"); err != nil {
		return nil, err
	}
	wO, err := tk.int()
	if err != nil {
		return nil, err
	}
	wI, err := tk.int()
	if err != nil {
		return nil, err
	}
	if wO < 0 || wO > MaxOutputWidth || wI < 0 {
		return nil, failure.Formatf("invalid widths wO=%d wI=%d", wO, wI)
	}
	h := &Hash{WI: wI, WO: wO, Tables: make([]Table, wO)}
	for i := 0; i < wO; i++ {
		if err := tk.expect("table"); err != nil {
			return nil, err
		}
		idx, err := tk.int()
		if err != nil {
			return nil, err
		}
		if idx != i {
			return nil, failure.Formatf("table %d found where table %d was expected", idx, i)
		}
		n, err := tk.int()
		if err != nil {
			return nil, err
		}
		if n < 0 || n > 30 {
			return nil, failure.Formatf("table %d has an invalid selector count %d", i, n)
		}
		if err := tk.expect("sel"); err != nil {
			return nil, err
		}
		t := &h.Tables[i]
		t.Selectors = make([]int, n)
		for j := range t.Selectors {
			if t.Selectors[j], err = tk.int(); err != nil {
				return nil, err
			}
		}
		if err := tk.expect("lut"); err != nil {
			return nil, err
		}
		word, err := tk.next()
		if err != nil {
			return nil, err
		}
		bv, err := bitvector.Parse(word)
		if err != nil {
			return nil, err
		}
		size := 1 << uint(n)
		if bv.Len() > size {
			return nil, failure.Formatf("table %d lut has %d entries, more than %d", i, bv.Len(), size)
		}
		t.LUT = make([]bitvector.Bit, size)
		for j := range t.LUT {
			t.LUT[j] = bv.At(j)
		}
	}
	if err := tk.expect("BitHashEnd"); err != nil {
		return nil, err
	}
	h.index()
	if err := h.Validate(); err != nil {
		return nil, failure.Formatf("%v", err)
	}
	return h, nil
}

// tokens splits scanner lines into whitespace separated words without
// reading past the line holding the last word requested.
type tokens struct {
	sc      *bufio.Scanner
	pending []string
	line    int
}

func (tk *tokens) next() (string, error) {
	for len(tk.pending) == 0 {
		if !tk.sc.Scan() {
			if err := tk.sc.Err(); err != nil {
				return "", errors.Wrap(err, "reading bit hash")
			}
			return "", failure.Formatf("unexpected end of input")
		}
		tk.line++
		tk.pending = strings.Fields(tk.sc.Text())
	}
	w := tk.pending[0]
	tk.pending = tk.pending[1:]
	return w, nil
}

func (tk *tokens) expect(word string) error {
	got, err := tk.next()
	if err != nil {
		return err
	}
	if got != word {
		return failure.Formatf("expected %q but got %q", word, got)
	}
	return nil
}

func (tk *tokens) int() (int, error) {
	w, err := tk.next()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(w)
	if err != nil {
		return 0, failure.Formatf("expected an integer but got %q", w)
	}
	return n, nil
}
