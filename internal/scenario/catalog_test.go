package scenario

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

func TestLoadPredefined(t *testing.T) {
	c := NewCatalog()
	c.LoadPredefined()
	c.LoadPredefined()

	want := []string{"ideal", "congestion", "international", "wireless_interference", "mobile_handover", "asymmetric", "satellite", "extreme"}
	got := c.Names()
	if len(got) != len(want) {
		t.Fatalf("scenario count mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scenario[%d] mismatch: got %q, want %q", i, got[i], want[i])
		}
	}

	sat, ok := c.Get("satellite")
	if !ok {
		t.Fatalf("satellite scenario missing")
	}
	if sat.BaseLatencyMs != 500 || sat.BaseBandwidthKbps != 5000 || sat.BasePacketLoss != 0.02 || sat.BaseJitterMs != 10 {
		t.Fatalf("satellite base values mismatch: %+v", sat)
	}
	if sat.Description != "Satellite connections with very high latency but decent bandwidth" {
		t.Fatalf("satellite description mismatch: %q", sat.Description)
	}
	ext, _ := c.Get("extreme")
	if ext.LatencyVariation != 100 || ext.BandwidthVariation != 300 || ext.PacketLossVariation != 0.2 || ext.JitterVariation != 30 {
		t.Fatalf("extreme variations mismatch: %+v", ext)
	}
}

func TestGetUnknown(t *testing.T) {
	c := NewCatalog()
	c.LoadPredefined()
	if _, ok := c.Get("lunar"); ok {
		t.Fatalf("Get(lunar) found a scenario, want none")
	}
}

func TestAddReplacesInPlace(t *testing.T) {
	c := NewCatalog()
	c.LoadPredefined()
	if err := c.Add(model.Scenario{Name: "congestion", BaseBandwidthKbps: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if c.Len() != 8 || c.Names()[1] != "congestion" {
		t.Fatalf("replace changed order: %v", c.Names())
	}
	got, _ := c.Get("congestion")
	if got.BaseBandwidthKbps != 1 {
		t.Fatalf("replace did not take effect: %+v", got)
	}
	if err := c.Add(model.Scenario{}); !errors.Is(err, ErrInvalidScenario) {
		t.Fatalf("Add(empty) error = %v, want ErrInvalidScenario", err)
	}
}

func TestLoadYAML(t *testing.T) {
	src := `
scenarios:
  - name: lunar
    description: Earth-Moon relay
    base_latency_ms: 1300
    base_bandwidth_kbps: 2000
    base_packet_loss: 0.05
    base_jitter_ms: 40
    latency_variation: 100
`
	c := NewCatalog()
	c.LoadPredefined()
	n, err := c.Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != 1 || c.Len() != 9 {
		t.Fatalf("load count mismatch: n=%d len=%d", n, c.Len())
	}
	lunar, ok := c.Get("lunar")
	if !ok || lunar.BaseLatencyMs != 1300 || lunar.LatencyVariation != 100 {
		t.Fatalf("lunar mismatch: %+v", lunar)
	}
	if names := c.Names(); names[len(names)-1] != "lunar" {
		t.Fatalf("custom scenario not appended: %v", names)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"missing name":   "scenarios:\n  - base_bandwidth_kbps: 10\n",
		"zero bandwidth": "scenarios:\n  - name: a\n",
		"loss above one": "scenarios:\n  - name: a\n    base_bandwidth_kbps: 10\n    base_packet_loss: 1.5\n",
		"negative":       "scenarios:\n  - name: a\n    base_bandwidth_kbps: 10\n    base_jitter_ms: -1\n",
		"duplicate":      "scenarios:\n  - name: a\n    base_bandwidth_kbps: 10\n  - name: a\n    base_bandwidth_kbps: 10\n",
	}
	for name, src := range tests {
		if _, err := Parse(strings.NewReader(src)); !errors.Is(err, ErrInvalidScenario) {
			t.Fatalf("%s: error = %v, want ErrInvalidScenario", name, err)
		}
	}
	if _, err := Parse(strings.NewReader("scenarios:\n  - name: a\n    bogus: 1\n")); err == nil {
		t.Fatalf("unknown field accepted")
	}
}

func TestEncodeParse(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Predefined()[:2]); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 2 || got[1] != Predefined()[1] {
		t.Fatalf("decoded scenarios mismatch: %+v", got)
	}
}
