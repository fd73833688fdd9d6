package keyset

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
)

// Parse reads one key[:value] pair per line. Blank lines are skipped.
// Reading stops at EOF; errors name the offending line.
func Parse(r io.Reader) (*Set, error) {
	return parse(bufio.NewScanner(r), nil)
}

// ParseFrom continues reading from a scanner that already consumed some
// leading content, which lets a hash and its keys share one stream.
func ParseFrom(sc *bufio.Scanner) (*Set, error) {
	return parse(sc, nil)
}

func parse(sc *bufio.Scanner, entries []Entry) (*Set, error) {
	seen := map[string]int{}
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		e, err := parseLine(text)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if prev, ok := seen[e.Key.String()]; ok {
			return nil, errors.Wrapf(failure.Formatf("duplicate key %s (first seen on line %d)", e.Key, prev), "line %d", line)
		}
		seen[e.Key.String()] = line
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading key set")
	}
	return New(entries)
}

func parseLine(text string) (Entry, error) {
	var e Entry
	keyText, valueText, hasValue := strings.Cut(text, ":")
	key, err := bitvector.Parse(keyText)
	if err != nil {
		return e, err
	}
	e.Key = key
	if hasValue {
		if e.Value, err = bitvector.Parse(valueText); err != nil {
			return e, err
		}
	}
	return e, nil
}

// Write prints s in the format read by Parse, each line prefixed by indent.
func (s *Set) Write(w io.Writer, indent string) error {
	bw := bufio.NewWriter(w)
	for _, e := range s.entries {
		if _, err := fmt.Fprintf(bw, "%s%s : %s\n", indent, e.Key, e.Value); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (s *Set) String() string {
	var sb strings.Builder
	_ = s.Write(&sb, "")
	return sb.String()
}
