package ingest

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Stdin is the input name that reads from the standard input.
const Stdin = "-"

// Open opens a named input for reading.
func Open(name string) (io.ReadCloser, error) {
	if name == Stdin || name == "" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open input %s", name)
	}

	return f, nil
}

// ReadFiles ingests every named input in order, stopping at the first error.
func (i *Ingestor) ReadFiles(ctx context.Context, names []string, format Format) error {
	if len(names) == 0 {
		names = []string{Stdin}
	}
	for _, name := range names {
		if err := i.readFile(ctx, name, format); err != nil {
			return errors.Wrapf(err, "failed to ingest %s", name)
		}
		i.logger.Debug().Str("input", name).Uint64("samples", i.Samples()).Msg("input ingested")
	}

	return nil
}

func (i *Ingestor) readFile(ctx context.Context, name string, format Format) error {
	f, err := Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	return i.Read(ctx, f, format)
}
