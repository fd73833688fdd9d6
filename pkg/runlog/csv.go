package runlog

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// CSV appends one line per run: prefix, wO, wI, wA, CPU seconds, tries,
// outcome, run id.
type CSV struct {
	prefix string
	w      *csv.Writer
	c      io.Closer
}

// NewCSV writes to w. Close does not close w.
func NewCSV(w io.Writer, prefix string) *CSV {
	return &CSV{prefix: prefix, w: csv.NewWriter(w)}
}

// OpenCSV appends to the file dst, or writes to stdout when dst is "-".
func OpenCSV(dst, prefix string) (*CSV, error) {
	if dst == "-" {
		return NewCSV(os.Stdout, prefix), nil
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "opening csv log")
	}
	c := NewCSV(f, prefix)
	c.c = f
	return c, nil
}

func (c *CSV) Write(r *Record) error {
	err := c.w.Write([]string{
		c.prefix,
		strconv.Itoa(r.WO),
		strconv.Itoa(r.WI),
		strconv.Itoa(r.WA),
		strconv.FormatFloat(r.CPUSeconds, 'f', 3, 64),
		strconv.Itoa(r.Tries),
		string(r.Outcome),
		r.ID.String(),
	})
	if err != nil {
		return errors.Wrap(err, "writing csv log")
	}
	c.w.Flush()
	return errors.Wrap(c.w.Error(), "writing csv log")
}

func (c *CSV) Close() error {
	c.w.Flush()
	if c.c == nil {
		return nil
	}
	return c.c.Close()
}
