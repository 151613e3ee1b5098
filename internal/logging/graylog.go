package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogHandler returns a JSON slog handler that ships each record to a
// GELF UDP endpoint. The returned writer must be closed on shutdown.
func NewGraylogHandler(addr, level string) (slog.Handler, *gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create graylog writer for %s: %w", addr, err)
	}
	w.Facility = "flightmarkers"
	return slog.NewJSONHandler(w, handlerOptions(parseLevel(level))), w, nil
}
