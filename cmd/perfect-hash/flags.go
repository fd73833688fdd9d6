package main

import (
	"strconv"

	"k8s.io/utils/ptr"

	"github.com/m8pple/fpga-perfect-hash/pkg/taps"
)

// tapsValue is a pflag.Value for a tap method.
type tapsValue struct {
	m *taps.Method
}

func (v tapsValue) String() string {
	if v.m == nil {
		return ""
	}
	return string(*v.m)
}

func (v tapsValue) Set(s string) error {
	*v.m = taps.Method(s)
	return nil
}

func (tapsValue) Type() string {
	return "uniform|weighted"
}

// optionalUint32 is a pflag.Value that stays nil until set.
type optionalUint32 struct {
	p **uint32
}

func (v optionalUint32) String() string {
	if *v.p == nil {
		return ""
	}
	return strconv.FormatUint(uint64(**v.p), 10)
}

func (v optionalUint32) Set(s string) error {
	x, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return err
	}
	*v.p = ptr.To(uint32(x))
	return nil
}

func (optionalUint32) Type() string {
	return "uint32"
}

// optionalInt64 is a pflag.Value that stays nil until set.
type optionalInt64 struct {
	p **int64
}

func (v optionalInt64) String() string {
	if *v.p == nil {
		return ""
	}
	return strconv.FormatInt(**v.p, 10)
}

func (v optionalInt64) Set(s string) error {
	x, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return err
	}
	*v.p = ptr.To(x)
	return nil
}

func (optionalInt64) Type() string {
	return "int64"
}
