// Package extension serves the host line protocol. Each input line is
//
//	COMMAND|arg1|arg2...
//
// and each reply is one JSON array line: ["ok"], ["ok",<result>] or
// ["error","<message>"].
package extension

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/squidsoft/flightmarkers/internal/dispatcher"
)

const (
	CommandVersion   = ":VERSION:"
	CommandTimestamp = ":TIMESTAMP:"

	// MaxLineSize bounds a single command line; a large vessel snapshot is well under it.
	MaxLineSize = 4 << 20
)

// Server reads commands, dispatches them and writes replies.
type Server struct {
	version    string
	dispatcher *dispatcher.Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Server. version is returned for :VERSION:.
func New(d *dispatcher.Dispatcher, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		version:    version,
		dispatcher: d,
		logger:     logger,
		now:        time.Now,
	}
}

// Serve handles lines from r until EOF or ctx is cancelled. Blank lines and
// lines starting with '#' are skipped without a reply.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxLineSize)
	out := bufio.NewWriter(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if _, err := out.WriteString(s.Handle(line) + "\n"); err != nil {
			return fmt.Errorf("failed to write reply: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("failed to write reply: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read command: %w", err)
	}
	return nil
}

// Handle runs one command line and returns its reply.
func (s *Server) Handle(line string) string {
	command, args := SplitCommand(line)

	switch command {
	case CommandVersion:
		return FormatResponse(s.version, nil)
	case CommandTimestamp:
		return FormatResponse(strconv.FormatInt(s.now().UTC().UnixNano(), 10), nil)
	}

	if s.dispatcher == nil || !s.dispatcher.HasHandler(command) {
		s.logger.Debug("No handler registered", "command", command)
		return FormatResponse(nil, fmt.Errorf("no handler registered for %s", command))
	}

	result, err := s.dispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: s.now(),
	})
	return FormatResponse(result, err)
}

// SplitCommand separates the command from its '|'-separated arguments.
func SplitCommand(line string) (string, []string) {
	parts := strings.Split(line, "|")
	command := strings.TrimSpace(parts[0])
	if len(parts) == 1 {
		return command, nil
	}
	return command, parts[1:]
}

// FormatResponse encodes a dispatch result as a reply line.
func FormatResponse(result any, err error) string {
	var reply []any
	switch {
	case err != nil:
		reply = []any{"error", err.Error()}
	case result == nil:
		reply = []any{"ok"}
	default:
		reply = []any{"ok", result}
	}

	data, mErr := json.Marshal(reply)
	if mErr != nil {
		data, _ = json.Marshal([]any{"error", fmt.Sprintf("failed to encode result: %v", mErr)})
	}
	return string(data)
}
