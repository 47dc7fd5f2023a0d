package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"

	"github.com/couchcryptid/flight-delay-service/internal/artifact"
	"github.com/couchcryptid/flight-delay-service/internal/features"
)

// FileSource reads the flights CSV at Path.
type FileSource struct {
	Path string
}

func (s FileSource) Load(_ context.Context) (dataframe.DataFrame, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()

	df, err := features.ReadFlightsCSV(f)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%s: %w", s.Path, err)
	}
	return df, nil
}

// DirSink publishes artifact sets into Dir.
type DirSink struct {
	Dir string
}

func (s DirSink) Save(_ context.Context, b *artifact.Bundle) error {
	return artifact.Save(s.Dir, b)
}
