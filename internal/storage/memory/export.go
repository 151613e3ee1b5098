package memory

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/squidsoft/flightmarkers/pkg/core"
)

// Export is the root JSON structure of a recording file.
type Export struct {
	ExtensionVersion string         `json:"extensionVersion"`
	SessionID        string         `json:"sessionId"`
	SessionName      string         `json:"sessionName"`
	StartTime        time.Time      `json:"startTime"`
	EndTime          time.Time      `json:"endTime"`
	FrameCount       int            `json:"frameCount"`
	Vessels          []VesselExport `json:"vessels"`
}

// VesselExport holds one vessel's frames.
type VesselExport struct {
	VesselID string       `json:"vesselId"`
	Frames   []core.Frame `json:"frames"`
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// exportJSON writes the session data to a (possibly gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := b.session.Name
	if name == "" {
		name = b.session.ID
	}
	name = unsafeFileChars.ReplaceAllString(name, "_")
	timestamp := b.session.StartTime.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", name, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if b.cfg.OutputDir != "" {
		if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() Export {
	export := Export{
		ExtensionVersion: b.session.ExtensionVersion,
		SessionID:        b.session.ID,
		SessionName:      b.session.Name,
		StartTime:        b.session.StartTime,
		EndTime:          b.now().UTC(),
		FrameCount:       b.frames,
		Vessels:          make([]VesselExport, 0, len(b.order)),
	}
	for _, id := range b.order {
		rec := b.vessels[id]
		export.Vessels = append(export.Vessels, VesselExport{VesselID: rec.VesselID, Frames: rec.Frames})
	}
	return export
}

func writeJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

// Load reads an exported recording. Gzip is detected from the content.
func Load(path string) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &export, nil
}
