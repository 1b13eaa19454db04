// Package state contains the per-connection metrics history store.
package state

import (
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/adaptive-network-simulator/core"
)

// Sample is one observation of a connection's live conditions.
type Sample struct {
	Timestamp     time.Time
	LatencyMs     float64
	BandwidthKbps float64
	// PacketLossPct is the loss fraction times 100.
	PacketLossPct  float64
	JitterMs       float64
	TransferTimeMs float64

	// ProtocolID and ProtocolName are empty when no protocol was active.
	ProtocolID   string
	ProtocolName string
}

// SampleFromConnection captures a connection's live metrics at ts.
func SampleFromConnection(c core.Connection, ts time.Time) Sample {
	s := Sample{
		Timestamp:      ts,
		LatencyMs:      c.Live.LatencyMs,
		BandwidthKbps:  c.Live.BandwidthKbps,
		PacketLossPct:  c.Live.PacketLoss * 100,
		JitterMs:       c.Live.JitterMs,
		TransferTimeMs: c.TransferTimeMs(),
	}
	if c.Active != nil {
		s.ProtocolID = c.Active.ID
		s.ProtocolName = c.Active.Name
	}
	return s
}

// Means holds per-field arithmetic means over a history.
type Means struct {
	LatencyMs      float64
	BandwidthKbps  float64
	PacketLossPct  float64
	JitterMs       float64
	TransferTimeMs float64
	Samples        int
}

// HistoryStore is a concurrency-safe, append-only store of samples keyed by
// connection handle. Readers always receive copies.
type HistoryStore struct {
	mu   sync.RWMutex
	hist map[core.Handle][]Sample
}

// NewHistoryStore creates an empty store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{hist: make(map[core.Handle][]Sample)}
}

// Register creates an empty history for h if none exists.
func (s *HistoryStore) Register(h core.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hist[h]; !ok {
		s.hist[h] = nil
	}
}

// Append adds a sample to h's history, registering h if needed. Duplicate
// timestamps are kept.
func (s *HistoryStore) Append(h core.Handle, sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hist[h] = append(s.hist[h], sample)
}

// Samples returns a copy of h's history.
func (s *HistoryStore) Samples(h core.Handle) []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.hist[h]
	if len(src) == 0 {
		return nil
	}
	return append([]Sample(nil), src...)
}

// Last returns the most recent sample of h.
func (s *HistoryStore) Last(h core.Handle) (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.hist[h]
	if len(src) == 0 {
		return Sample{}, false
	}
	return src[len(src)-1], true
}

// Handles returns registered handles in ascending order.
func (s *HistoryStore) Handles() []core.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Handle, 0, len(s.hist))
	for h := range s.hist {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of registered handles.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hist)
}

// ClearSamples drops every sample but keeps the registered handles.
func (s *HistoryStore) ClearSamples() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h := range s.hist {
		s.hist[h] = nil
	}
}

// Reset forgets every handle.
func (s *HistoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hist = make(map[core.Handle][]Sample)
}

// Means averages h's history. ok is false when h has no samples.
func (s *HistoryStore) Means(h core.Handle) (Means, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	samples := s.hist[h]
	if len(samples) == 0 {
		return Means{}, false
	}
	var m Means
	for _, smp := range samples {
		m.LatencyMs += smp.LatencyMs
		m.BandwidthKbps += smp.BandwidthKbps
		m.PacketLossPct += smp.PacketLossPct
		m.JitterMs += smp.JitterMs
		m.TransferTimeMs += smp.TransferTimeMs
	}
	n := float64(len(samples))
	m.LatencyMs /= n
	m.BandwidthKbps /= n
	m.PacketLossPct /= n
	m.JitterMs /= n
	m.TransferTimeMs /= n
	m.Samples = len(samples)
	return m, true
}
