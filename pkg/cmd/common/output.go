package common

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

var createFile = func(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// WriteOutput runs write on stdout, or on the file at path when path is set.
// The file is closed before returning and a close error is reported.
func WriteOutput(stdout io.Writer, path string, write func(io.Writer) error) (err error) {
	if path == "" {
		return write(stdout)
	}

	f, err := createFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to create output file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close output file")
		}
	}()

	return write(f)
}
