package scenario

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

// File is the on-disk layout of a scenario file.
type File struct {
	Scenarios []model.Scenario `yaml:"scenarios"`
}

// Validate checks the fields a scenario needs to drive condition evolution.
func Validate(s model.Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScenario)
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"base_latency_ms", s.BaseLatencyMs},
		{"base_bandwidth_kbps", s.BaseBandwidthKbps},
		{"base_packet_loss", s.BasePacketLoss},
		{"base_jitter_ms", s.BaseJitterMs},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return fmt.Errorf("%w: %q %s must be a non-negative number", ErrInvalidScenario, s.Name, f.name)
		}
	}
	if s.BaseBandwidthKbps == 0 {
		return fmt.Errorf("%w: %q base_bandwidth_kbps must be positive", ErrInvalidScenario, s.Name)
	}
	if s.BasePacketLoss > 1 {
		return fmt.Errorf("%w: %q base_packet_loss must be in [0,1]", ErrInvalidScenario, s.Name)
	}
	return nil
}

// Parse decodes a scenario file. Every entry is validated; the first invalid
// entry fails the whole file.
func Parse(r io.Reader) ([]model.Scenario, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode scenario file: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Scenarios))
	for i, s := range f.Scenarios {
		if err := Validate(s); err != nil {
			return nil, fmt.Errorf("scenario %d: %w", i, err)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidScenario, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return f.Scenarios, nil
}

// Load parses r and adds its scenarios on top of the catalog's contents.
func (c *Catalog) Load(r io.Reader) (int, error) {
	scenarios, err := Parse(r)
	if err != nil {
		return 0, err
	}
	for _, s := range scenarios {
		if err := c.Add(s); err != nil {
			return 0, err
		}
	}
	return len(scenarios), nil
}

// LoadFile is Load for a path on disk.
func (c *Catalog) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open scenario file %q: %w", path, err)
	}
	defer f.Close()
	return c.Load(f)
}

// Encode writes scenarios in the file layout accepted by Parse.
func Encode(w io.Writer, scenarios []model.Scenario) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Scenarios: scenarios}); err != nil {
		return err
	}
	return enc.Close()
}
