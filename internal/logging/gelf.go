package logging

import (
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogHandler dials a GELF UDP writer and wraps it in a text handler.
// The writer chunks oversized records per the GELF spec.
func NewGraylogHandler(address string, opts *slog.HandlerOptions) (slog.Handler, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, err
	}
	return slog.NewTextHandler(w, opts), nil
}
