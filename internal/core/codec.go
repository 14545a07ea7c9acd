package core

import (
	"context"
	"fmt"

	"github.com/nexensys/scratch3-api/internal/codec"
)

// CodecMode encodes text to digits or decodes digits to text without
// touching the network.
type CodecMode struct {
	Decode bool
	Input  string
	output
}

// Run prints the converted input.
func (m *CodecMode) Run(_ context.Context) error {
	var (
		out string
		err error
	)
	if m.Decode {
		out, err = codec.Decode(m.Input, 0)
	} else {
		out, err = codec.Encode(m.Input)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(m.stdout(), out)
	return nil
}

// DryRunMode prints the frames a network action would send instead of
// connecting.
type DryRunMode struct {
	URL    string
	Frames [][]byte
	output
}

// Run writes the target URL and each frame.
func (m *DryRunMode) Run(_ context.Context) error {
	w := m.stdout()
	fmt.Fprintf(w, "# %s\n", m.URL)
	for _, f := range m.Frames {
		if _, err := w.Write(f); err != nil {
			return err
		}
	}
	return nil
}
