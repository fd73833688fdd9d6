package main

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/m8pple/fpga-perfect-hash/pkg/bithash"
	"github.com/m8pple/fpga-perfect-hash/pkg/keyset"
)

// open returns the file named by the first argument, or standard input
// when there is none or it is "-".
func open(cmd *cobra.Command, args []string) (io.ReadCloser, string, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), "-", nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, "", errors.Wrap(err, "opening input")
	}
	return f, args[0], nil
}

func readKeys(cmd *cobra.Command, args []string) (*keyset.Set, string, error) {
	in, name, err := open(cmd, args)
	if err != nil {
		return nil, "", err
	}
	defer in.Close()
	keys, err := keyset.Parse(in)
	if err != nil {
		return nil, "", errors.Wrapf(err, "reading keys from %s", name)
	}
	return keys, name, nil
}

// readHashAndKeys reads a hash followed by its key set from one stream, as
// written by solve and polish.
func readHashAndKeys(cmd *cobra.Command, args []string) (*bithash.Hash, *keyset.Set, string, error) {
	in, name, err := open(cmd, args)
	if err != nil {
		return nil, nil, "", err
	}
	defer in.Close()
	sc := bufio.NewScanner(in)
	h, err := bithash.ParseFrom(sc)
	if err != nil {
		return nil, nil, "", errors.Wrapf(err, "reading hash from %s", name)
	}
	keys, err := keyset.ParseFrom(sc)
	if err != nil {
		return nil, nil, "", errors.Wrapf(err, "reading keys from %s", name)
	}
	return h, keys, name, nil
}

func writeHashAndKeys(w io.Writer, h *bithash.Hash, keys *keyset.Set) error {
	if err := h.Write(w, ""); err != nil {
		return errors.Wrap(err, "writing hash")
	}
	return errors.Wrap(keys.Write(w, ""), "writing keys")
}
