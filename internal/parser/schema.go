package parser

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed snapshot.schema.json
var snapshotSchema []byte

var semanticID = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// vesselIDFormatChecker accepts the game's vessel GUIDs and plain semantic IDs.
type vesselIDFormatChecker struct{}

func (vesselIDFormatChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	if !ok || s == "" {
		return false
	}
	if _, err := uuid.Parse(s); err == nil {
		return true
	}
	return semanticID.MatchString(s)
}

var registerFormats sync.Once

// validator checks raw snapshot documents against the embedded schema.
type validator struct {
	schema *gojsonschema.Schema
}

func newValidator() (*validator, error) {
	registerFormats.Do(func() {
		gojsonschema.FormatCheckers.Add("vessel_id", vesselIDFormatChecker{})
	})

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(snapshotSchema))
	if err != nil {
		return nil, fmt.Errorf("loading snapshot schema: %w", err)
	}
	return &validator{schema: schema}, nil
}

func (v *validator) validate(data []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}
