// Package pipeline assembles card records, persists them, and exports the
// stored data.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-optcg/models"
)

// DualWriter outputs the JSON snapshot and a CSV of the cards side by side.
type DualWriter struct {
	jsonWriter *JSONWriter
	csvWriter  *CSVWriter
}

// NewDualWriter creates a dual writer; the CSV path is derived from the
// JSON one.
func NewDualWriter(jsonFilename string) *DualWriter {
	csvFilename := strings.TrimSuffix(jsonFilename, ".json") + ".csv"
	return &DualWriter{
		jsonWriter: NewJSONWriter(jsonFilename),
		csvWriter:  NewCSVWriter(csvFilename),
	}
}

// Write writes the snapshot in both formats.
func (dw *DualWriter) Write(snapshot *models.Snapshot) error {
	if err := dw.jsonWriter.Write(snapshot); err != nil {
		return fmt.Errorf("JSON write failed: %w", err)
	}
	if err := dw.csvWriter.Write(snapshot); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}
	return nil
}

// Validate validates both output files
func (dw *DualWriter) Validate() error {
	var errs []error

	if err := dw.jsonWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("JSON validation failed: %w", err))
	}

	if err := dw.csvWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("CSV validation failed: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %v", errs)
	}

	return nil
}

// NewOutputWriter returns the writer for format ("json" or "dual").
func NewOutputWriter(format, filename string) (OutputWriter, error) {
	switch format {
	case "json":
		return NewJSONWriter(filename), nil
	case "dual":
		return NewDualWriter(filename), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
