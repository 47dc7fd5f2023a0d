// Command validate checks an artifact directory for internal consistency:
// every required file loads, the feature columns match what the service
// assembles, the carrier encoder is present, airport ids are unique, and the
// model accepts the persisted feature count.
//
// Usage:
//
//	go run ./cmd/validate -dir models
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/couchcryptid/flight-delay-service/internal/artifact"
	"github.com/couchcryptid/flight-delay-service/internal/domain"
	"github.com/couchcryptid/flight-delay-service/internal/predict"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "models", "artifact directory to validate")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dir); code != 0 {
		os.Exit(code)
	}
}

func run(dir string) int {
	fmt.Println("=== Flight Delay Artifact Validation ===")
	fmt.Println()

	b, err := artifact.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := validateBundle(b)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Artifacts: %d trees, %d features, %d airports", len(b.Model.Trees), b.Model.NFeatures, len(b.Airports))
	if b.Manifest.RunID != "" {
		fmt.Printf(", run %s (ROC AUC %.4f)", b.Manifest.RunID, b.Manifest.ROCAUC)
	}
	fmt.Println()

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateBundle(b *artifact.Bundle) []*phase {
	return []*phase{
		validateFeatureColumns(b),
		validateEncoders(b),
		validateAirports(b),
		validateModel(b),
		validateServing(b),
	}
}

func validateFeatureColumns(b *artifact.Bundle) *phase {
	p := &phase{name: "Feature columns"}
	if len(b.FeatureColumns) != len(domain.FeatureColumns) {
		p.errorf("expected %d columns, found %d", len(domain.FeatureColumns), len(b.FeatureColumns))
	}
	seen := make(map[string]bool, len(b.FeatureColumns))
	for _, c := range b.FeatureColumns {
		if seen[c] {
			p.errorf("duplicate column %s", c)
		}
		seen[c] = true
	}
	for _, c := range domain.FeatureColumns {
		if !seen[c] {
			p.errorf("missing column %s", c)
		}
	}
	return p
}

func validateEncoders(b *artifact.Bundle) *phase {
	p := &phase{name: "Categorical encoders"}
	for _, c := range domain.CategoricalColumns {
		enc := b.Encoders[c]
		if enc == nil {
			p.errorf("no encoder for %s", c)
			continue
		}
		if len(enc.Classes) == 0 {
			p.errorf("encoder for %s has no classes", c)
		}
		if !slices.IsSorted(enc.Classes) {
			p.errorf("encoder for %s classes are not sorted", c)
		}
	}
	return p
}

func validateAirports(b *artifact.Bundle) *phase {
	p := &phase{name: "Airport lookup"}
	if len(b.Airports) == 0 {
		p.errorf("airport table is empty")
	}
	seen := make(map[int]bool, len(b.Airports))
	for i, a := range b.Airports {
		if seen[a.AirportID] {
			p.errorf("row %d: duplicate airport id %d", i+1, a.AirportID)
		}
		seen[a.AirportID] = true
		if a.AirportID <= 0 {
			p.errorf("row %d: invalid airport id %d", i+1, a.AirportID)
		}
		if a.AirportName == "" {
			p.errorf("row %d: airport %d has no name", i+1, a.AirportID)
		}
	}
	return p
}

func validateModel(b *artifact.Bundle) *phase {
	p := &phase{name: "Model shape"}
	if b.Model.NumFeatures() != len(b.FeatureColumns) {
		p.errorf("model expects %d features, column list has %d", b.Model.NumFeatures(), len(b.FeatureColumns))
	}
	for i, t := range b.Model.Trees {
		if len(t.Nodes) == 0 {
			p.errorf("tree %d is empty", i)
			continue
		}
		for j, n := range t.Nodes {
			if n.Feature >= b.Model.NFeatures {
				p.errorf("tree %d node %d splits on feature %d", i, j, n.Feature)
			}
			if n.Feature >= 0 && (n.Left <= j || n.Right <= j || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes)) {
				p.errorf("tree %d node %d has invalid children %d/%d", i, j, n.Left, n.Right)
			}
		}
	}
	return p
}

// validateServing scores one request per airport pair drawn from the table,
// exactly as the api command would.
func validateServing(b *artifact.Bundle) *phase {
	p := &phase{name: "Serving smoke test"}
	state, err := predict.FromBundle(b)
	if err != nil {
		p.errorf("build serving state: %v", err)
		return p
	}
	if len(b.Airports) < 2 {
		p.errorf("need at least two airports, have %d", len(b.Airports))
		return p
	}
	for dow := domain.MinDayOfWeek; dow <= domain.MaxDayOfWeek; dow++ {
		req := domain.PredictionRequest{
			DayOfWeek:       dow,
			OriginAirportID: b.Airports[0].AirportID,
			DestAirportID:   b.Airports[len(b.Airports)-1].AirportID,
		}
		pred, err := state.Predict(context.Background(), req)
		if err != nil {
			p.errorf("day %d: %v", dow, err)
			continue
		}
		if pred.DelayProbability < 0 || pred.DelayProbability > 1 {
			p.errorf("day %d: probability %v out of range", dow, pred.DelayProbability)
		}
	}
	return p
}
