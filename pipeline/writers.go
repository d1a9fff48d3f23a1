package pipeline

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aluiziolira/go-scrape-optcg/models"
)

// OutputWriter renders a snapshot to disk.
type OutputWriter interface {
	Write(snapshot *models.Snapshot) error
	Validate() error
}

// SnapshotReader is the part of the store the exporter reads.
type SnapshotReader interface {
	AllCards(ctx context.Context) ([]*models.Card, error)
	AllTranslations(ctx context.Context) ([]*models.Translation, error)
}

// ExportSnapshot reads every persisted card and translation and writes them
// with w.
func ExportSnapshot(ctx context.Context, r SnapshotReader, w OutputWriter) (*models.Snapshot, error) {
	cards, err := r.AllCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	translations, err := r.AllTranslations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}

	snapshot := &models.Snapshot{Cards: cards, CardLocales: translations}
	if err := w.Write(snapshot); err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// JSONWriter writes the snapshot as one indented JSON document.
type JSONWriter struct {
	filename string
}

// NewJSONWriter returns a writer targeting filename.
func NewJSONWriter(filename string) *JSONWriter {
	return &JSONWriter{filename: filename}
}

// Write replaces the target file with the encoded snapshot.
func (jw *JSONWriter) Write(snapshot *models.Snapshot) error {
	return writeAtomic(jw.filename, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "    ")
		if err := encoder.Encode(snapshot); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		return nil
	})
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	return validateFile(jw.filename, "json")
}

// CSVWriter writes the cards of a snapshot as CSV.
type CSVWriter struct {
	filename string
}

// NewCSVWriter returns a writer targeting filename.
func NewCSVWriter(filename string) *CSVWriter {
	return &CSVWriter{filename: filename}
}

var csvHeader = []string{
	"code", "image", "name", "category", "type", "cost", "attribute", "power", "counter",
	"color", "sets", "effect", "trigger", "art_variant", "tags",
}

// Write replaces the target file with one row per card.
func (cw *CSVWriter) Write(snapshot *models.Snapshot) error {
	return writeAtomic(cw.filename, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(csvHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		for _, card := range snapshot.Cards {
			record := []string{
				card.Code,
				card.Image,
				card.Name,
				card.Category,
				card.Type,
				strconv.Itoa(card.Cost),
				card.Attribute,
				strconv.Itoa(card.Power),
				strconv.Itoa(card.Counter),
				card.Color,
				card.Sets,
				card.Effect,
				card.Trigger,
				strconv.Itoa(card.ArtVariant),
				card.Tags,
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("write csv record: %w", err)
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return fmt.Errorf("flush csv records: %w", err)
		}
		return nil
	})
}

// Validate ensures the file exists and is not empty.
func (cw *CSVWriter) Validate() error {
	return validateFile(cw.filename, "csv")
}

// writeAtomic writes to a temporary file next to filename and renames it
// over the target, so readers never see a partial snapshot.
func writeAtomic(filename string, fill func(io.Writer) error) (err error) {
	if err := ensureDir(filename); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buffer := bufio.NewWriter(tmp)
	if err = fill(buffer); err != nil {
		return err
	}
	if err = buffer.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", filename, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", filename, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filename, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", filename, err)
	}
	if err = os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("replace %s: %w", filename, err)
	}
	return nil
}

func validateFile(filename, kind string) error {
	info, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("stat %s file: %w", kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", kind)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
