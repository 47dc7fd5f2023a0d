// Package artifact persists and loads the trained model set: the model, the
// categorical encoders, the feature column order, and the airport lookup.
// The four files are only meaningful together.
package artifact

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/couchcryptid/flight-delay-service/internal/domain"
	"github.com/couchcryptid/flight-delay-service/internal/features"
	"github.com/couchcryptid/flight-delay-service/internal/forest"
)

// File names inside an artifact directory.
const (
	ModelFile          = "flight_delay_model.gob.zst"
	EncodersFile       = "label_encoders.gob"
	FeatureColumnsFile = "feature_columns.json"
	AirportsFile       = "airports.csv"
	ManifestFile       = "manifest.json"
)

// ErrIncomplete is returned when an artifact directory is missing a file.
var ErrIncomplete = errors.New("incomplete artifact set")

// Bundle is one complete artifact set.
type Bundle struct {
	Model          *forest.Forest
	Encoders       map[string]*features.LabelEncoder
	FeatureColumns []string
	Airports       []domain.Airport
	Manifest       Manifest
}

// Manifest records provenance for an artifact set. It is informational; a
// directory without one still loads.
type Manifest struct {
	RunID          string    `json:"run_id"`
	CreatedAt      time.Time `json:"created_at"`
	SourceRows     int       `json:"source_rows"`
	TrainRows      int       `json:"train_rows"`
	TestRows       int       `json:"test_rows"`
	Airports       int       `json:"airports"`
	Seed           uint64    `json:"seed"`
	Trees          int       `json:"trees"`
	ROCAUC         float64   `json:"roc_auc"`
	Accuracy       float64   `json:"accuracy"`
	FeatureColumns []string  `json:"feature_columns"`
}

// Save writes b into a staging directory next to dir and then moves it into
// place, so readers see either the previous complete set or the new one. An
// existing set at dir is replaced.
func Save(dir string, b *Bundle) error {
	if b == nil || b.Model == nil {
		return errors.New("save artifacts: nil model")
	}
	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("save artifacts: %w", err)
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".staging-")
	if err != nil {
		return fmt.Errorf("save artifacts: create staging dir: %w", err)
	}
	published := false
	defer func() {
		if !published {
			_ = os.RemoveAll(staging)
		}
	}()

	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{ModelFile, func(w io.Writer) error { return EncodeModel(w, b.Model) }},
		{EncodersFile, func(w io.Writer) error { return EncodeEncoders(w, b.Encoders) }},
		{FeatureColumnsFile, func(w io.Writer) error { return json.NewEncoder(w).Encode(b.FeatureColumns) }},
		{AirportsFile, func(w io.Writer) error { return features.WriteAirportsCSV(w, b.Airports) }},
		{ManifestFile, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(b.Manifest)
		}},
	}
	for _, f := range writers {
		if err := writeFile(filepath.Join(staging, f.name), f.write); err != nil {
			return fmt.Errorf("save artifacts: %s: %w", f.name, err)
		}
	}

	if err := publish(staging, dir); err != nil {
		return fmt.Errorf("save artifacts: %w", err)
	}
	published = true
	return nil
}

// publish moves staging to dir. A previous set is renamed aside first and
// removed once the new one is in place; if the final rename fails the
// previous set is restored.
func publish(staging, dir string) error {
	var previous string
	if _, err := os.Stat(dir); err == nil {
		previous = filepath.Join(filepath.Dir(dir), "."+filepath.Base(dir)+".prev-"+uuid.NewString())
		if err := os.Rename(dir, previous); err != nil {
			return fmt.Errorf("move previous set aside: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.Rename(staging, dir); err != nil {
		if previous != "" {
			_ = os.Rename(previous, dir)
		}
		return fmt.Errorf("publish staging dir: %w", err)
	}
	if previous != "" {
		_ = os.RemoveAll(previous)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads the artifact set in dir. All four model files are required.
func Load(dir string) (*Bundle, error) {
	var b Bundle

	readers := []struct {
		name string
		read func(io.Reader) error
	}{
		{ModelFile, func(r io.Reader) (err error) { b.Model, err = DecodeModel(r); return err }},
		{EncodersFile, func(r io.Reader) (err error) { b.Encoders, err = DecodeEncoders(r); return err }},
		{FeatureColumnsFile, func(r io.Reader) error { return json.NewDecoder(r).Decode(&b.FeatureColumns) }},
		{AirportsFile, func(r io.Reader) (err error) { b.Airports, err = features.ReadAirportsCSV(r); return err }},
	}
	for _, f := range readers {
		if err := readFile(filepath.Join(dir, f.name), f.read); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load artifacts: %w: %s", ErrIncomplete, f.name)
			}
			return nil, fmt.Errorf("load artifacts: %s: %w", f.name, err)
		}
	}

	err := readFile(filepath.Join(dir, ManifestFile), func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&b.Manifest)
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load artifacts: %s: %w", ManifestFile, err)
	}

	return &b, nil
}

func readFile(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return read(f)
}

// EncodeModel writes m as a zstd-compressed gob stream. The output is a pure
// function of m.
func EncodeModel(w io.Writer, m *forest.Forest) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(zw).Encode(m); err != nil {
		zw.Close()
		return fmt.Errorf("encode model: %w", err)
	}
	return zw.Close()
}

// DecodeModel reads a model written by EncodeModel.
func DecodeModel(r io.Reader) (*forest.Forest, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var m forest.Forest
	if err := gob.NewDecoder(zr).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if len(m.Trees) == 0 {
		return nil, errors.New("decode model: no trees")
	}
	return &m, nil
}

// EncodeEncoders writes the categorical encoders keyed by column name.
func EncodeEncoders(w io.Writer, encoders map[string]*features.LabelEncoder) error {
	if err := gob.NewEncoder(w).Encode(encoders); err != nil {
		return fmt.Errorf("encode encoders: %w", err)
	}
	return nil
}

// DecodeEncoders reads encoders written by EncodeEncoders.
func DecodeEncoders(r io.Reader) (map[string]*features.LabelEncoder, error) {
	var encoders map[string]*features.LabelEncoder
	if err := gob.NewDecoder(r).Decode(&encoders); err != nil {
		return nil, fmt.Errorf("decode encoders: %w", err)
	}
	return encoders, nil
}

// NewManifest stamps a manifest with a fresh run id and the domain clock.
func NewManifest() Manifest {
	return Manifest{
		RunID:          uuid.NewString(),
		CreatedAt:      domain.Clock().Now().UTC(),
		FeatureColumns: append([]string(nil), domain.FeatureColumns...),
	}
}
