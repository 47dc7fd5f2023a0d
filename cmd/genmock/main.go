// Command genmock writes a synthetic BTS-shaped flights CSV with a planted
// delay signal, for local training runs and demos.
//
// Usage:
//
//	go run ./cmd/genmock -out data/flights.csv -rows 50000 -seed 42
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/couchcryptid/flight-delay-service/internal/mockdata"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/flights.csv", "output path for the flights CSV")
	rows := flag.Int("rows", 50000, "number of flights to generate")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *rows < 1 {
		flag.Usage()
		return fmt.Errorf("-rows must be positive")
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	if err := mockdata.Write(f, *rows, *seed); err != nil {
		f.Close()
		return fmt.Errorf("write flights: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.Printf("wrote %d flights to %s (seed %d, %d airports, %d carriers)",
		*rows, *out, *seed, len(mockdata.Airports), len(mockdata.Carriers))
	return nil
}
