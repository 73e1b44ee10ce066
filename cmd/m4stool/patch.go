package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/zsiec/adsplice/internal/segment"
)

func runPatch(args []string, stdout io.Writer) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: m4stool patch <in> <out> <sequence>")
	}
	in, out := args[0], args[1]

	seq, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return fmt.Errorf("sequence must be an unsigned 32-bit integer: %w", err)
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}

	before, err := segment.Inspect(data)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", in, err)
	}

	patched, err := segment.PatchSequence(data, uint32(seq))
	if err != nil {
		return fmt.Errorf("patch %s: %w", in, err)
	}
	if err := segment.VerifySequence(patched, uint32(seq)); err != nil {
		return err
	}

	if err := os.WriteFile(out, patched, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s: sequence %s -> %d, wrote %s (%d bytes)\n",
		in, sequenceText(before), seq, out, len(patched))
	return nil
}
