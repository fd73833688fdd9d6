// Package config holds the settings of a perfect-hash run, their defaults,
// and the optional YAML file they can be read from.
package config

import (
	"os"
	"time"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/sugawarayuuta/sonnet"

	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
	"github.com/m8pple/fpga-perfect-hash/pkg/bitvector"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
	"github.com/m8pple/fpga-perfect-hash/pkg/lib/failure"
	"github.com/m8pple/fpga-perfect-hash/pkg/search"
	"github.com/m8pple/fpga-perfect-hash/pkg/taps"
)

const (
	MaxWA = 12
	MaxWI = 64
)

// Duration reads and writes a time.Duration as a string such as "300s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return sonnet.Marshal(d.Duration.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := sonnet.Unmarshal(b, &s); err != nil {
		return err
	}
	pd, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = pd
	return nil
}

// Anneal tunes the local search strategies.
type Anneal struct {
	StartTemperature float64 `json:"startTemperature"`
	TriesPerLevel    int     `json:"triesPerLevel"`
	Cooling          float64 `json:"cooling"`
	MinTemperature   float64 `json:"minTemperature"`
	EliteSize        int     `json:"eliteSize"`
	MaxStall         int     `json:"maxStall"`
	MaxK             int     `json:"maxK"`
	CheckEvery       int     `json:"checkEvery"`
}

// Config is one run. Zero widths are chosen from the key set.
type Config struct {
	Method    string      `json:"method"`
	WO        int         `json:"wO,omitempty"`
	WI        int         `json:"wI,omitempty"`
	WA        int         `json:"wA"`
	GroupSize int         `json:"groupSize"`
	Taps      taps.Method `json:"taps"`
	MaxHash   *uint32     `json:"maxHash,omitempty"`
	Minimal   bool        `json:"minimal,omitempty"`
	Seed      *int64      `json:"seed,omitempty"`

	MaxTries   int      `json:"maxTries"`
	MaxTime    Duration `json:"maxTime"`
	MaxMemMB   int      `json:"maxMemMB"`
	SATTimeout Duration `json:"satTimeout,omitempty"`
	PairLimit  int      `json:"pairLimit,omitempty"`

	Verbose int    `json:"verbose"`
	Anneal  Anneal `json:"anneal"`

	MetricsFile string `json:"metricsFile,omitempty"`
	Report      string `json:"report,omitempty"`
	ResultsDB   string `json:"resultsDB,omitempty"`
	CSVLog      string `json:"csvLog,omitempty"`
	CSVPrefix   string `json:"csvPrefix,omitempty"`
	DebugAddr   string `json:"debugAddr,omitempty"`
}

// Default returns the settings used when neither a file nor a flag sets them.
func Default() *Config {
	p := search.DefaultParams()
	return &Config{
		Method:    "cnf",
		WA:        6,
		GroupSize: p.GroupSize,
		Taps:      taps.MethodUniform,
		MaxTries:  p.MaxTries,
		MaxTime:   Duration{p.MaxTime},
		MaxMemMB:  4000,
		Verbose:   1,
		Anneal: Anneal{
			StartTemperature: p.StartTemperature,
			TriesPerLevel:    p.TriesPerLevel,
			Cooling:          p.Cooling,
			MinTemperature:   p.MinTemperature,
			EliteSize:        p.EliteSize,
			MaxStall:         p.MaxStall,
			MaxK:             p.MaxK,
			CheckEvery:       p.CheckEvery,
		},
	}
}

// Load decodes a YAML file over the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if err := c.LoadFile(path); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse decodes YAML (or JSON) over the defaults.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := c.Merge(b); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile decodes a YAML file over c. Fields absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config %s", path)
	}
	return errors.Wrapf(c.Merge(b), "config %s", path)
}

// Merge decodes YAML (or JSON) over c.
func (c *Config) Merge(b []byte) error {
	if err := yaml.Unmarshal(b, c); err != nil {
		return failure.Formatf("config: %v", err)
	}
	return nil
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks the fields that do not depend on the keys.
func (c *Config) Validate() error {
	switch {
	case c.WA < 1 || c.WA > MaxWA:
		return failure.Constraintf("wA must be in [1,%d], got %d", MaxWA, c.WA)
	case c.WO < 0 || c.WO > bithash.MaxOutputWidth:
		return failure.Constraintf("wO must be in [1,%d], got %d", bithash.MaxOutputWidth, c.WO)
	case c.WI < 0 || c.WI > MaxWI:
		return failure.Constraintf("wI must be in [1,%d], got %d", MaxWI, c.WI)
	case c.GroupSize < 1:
		return failure.Constraintf("group size must be at least 1, got %d", c.GroupSize)
	case c.MaxMemMB < 0:
		return failure.Constraintf("memory limit must not be negative")
	case c.PairLimit < 0:
		return failure.Constraintf("pair limit must not be negative")
	case c.Minimal && c.MaxHash != nil:
		return failure.Constraintf("minimal and an explicit max hash are exclusive")
	}
	switch c.Taps {
	case taps.MethodUniform, taps.MethodWeighted:
	default:
		return failure.Constraintf("unknown tap method %q", c.Taps)
	}
	return c.SearchParams().Validate()
}

// SearchParams is the local search tuning of c.
func (c *Config) SearchParams() search.Params {
	return search.Params{
		GroupSize:        c.GroupSize,
		MaxTries:         c.MaxTries,
		MaxTime:          c.MaxTime.Duration,
		CheckEvery:       c.Anneal.CheckEvery,
		StartTemperature: c.Anneal.StartTemperature,
		TriesPerLevel:    c.Anneal.TriesPerLevel,
		Cooling:          c.Anneal.Cooling,
		MinTemperature:   c.Anneal.MinTemperature,
		EliteSize:        c.Anneal.EliteSize,
		MaxStall:         c.Anneal.MaxStall,
		MaxK:             c.Anneal.MaxK,
	}
}

// Widths fills in zero widths from keys and checks that the result can
// hold them: wI must cover the widest key, 2^wO buckets of groupSize must
// hold every group, and with uniform taps every input must fit in wO
// tables of wA selectors.
func (c *Config) Widths(keys *keyset.Set) (wO, wI int, err error) {
	wI, wO = c.WI, c.WO
	if wI == 0 {
		wI = keys.KeyWidth()
		if wI == 0 {
			wI = 1
		}
	}
	if keys.KeyWidth() > wI {
		return 0, 0, failure.Constraintf("keys are %d bits wide, wider than wI=%d", keys.KeyWidth(), wI)
	}
	if wI > MaxWI {
		return 0, 0, failure.Constraintf("keys are %d bits wide, above the limit of %d", wI, MaxWI)
	}
	buckets := (keys.Len() + c.GroupSize - 1) / c.GroupSize
	if wO == 0 {
		wO = bitvector.Width(uint64(max(buckets-1, 1)))
	}
	if wO > bithash.MaxOutputWidth {
		return 0, 0, failure.Constraintf("%d key groups need wO=%d, above the limit of %d", keys.Len(), wO, bithash.MaxOutputWidth)
	}
	if buckets > 1<<uint(wO) {
		return 0, 0, failure.Constraintf("%d key groups do not fit in 2^%d buckets of %d", keys.Len(), wO, c.GroupSize)
	}
	if c.Taps == taps.MethodUniform && (wI+wO-1)/wO > c.WA {
		return 0, 0, failure.Constraintf("uniform taps need %d selectors per table for wI=%d and wO=%d, above wA=%d", (wI+wO-1)/wO, wI, wO, c.WA)
	}
	return wO, wI, nil
}

// Bound is the largest hash a solution may produce, if any: the explicit
// maximum, or the last bucket needed by the groups when a minimal hash is
// asked for.
func (c *Config) Bound(keys *keyset.Set) (uint32, bool) {
	switch {
	case c.MaxHash != nil:
		return *c.MaxHash, true
	case c.Minimal:
		return uint32(max((keys.Len()+c.GroupSize-1)/c.GroupSize-1, 0)), true
	}
	return 0, false
}
