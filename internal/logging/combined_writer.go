package logging

import (
	"io"

	"go.uber.org/multierr"
)

// CombinedWriter writes to every writer even when some of them fail, so a
// broken log file never silences the in-app log view.
type CombinedWriter struct {
	writers []io.Writer
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	cw := &CombinedWriter{}
	for _, w := range writers {
		if w != nil {
			cw.writers = append(cw.writers, w)
		}
	}
	return cw
}

func (cw *CombinedWriter) Write(p []byte) (int, error) {
	var err error
	for _, w := range cw.writers {
		if _, werr := w.Write(p); werr != nil {
			err = multierr.Append(err, werr)
		}
	}
	if err != nil {
		return 0, err
	}
	return len(p), nil
}
