package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	assets "main/internal/domain/entity/assets"
	pricing "main/internal/domain/entity/pricing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeAdapter returns canned quotes after an optional delay.
type fakeAdapter struct {
	id     string
	quotes []pricing.QuoteRecord
	err    error
	delay  time.Duration
}

func (a *fakeAdapter) ID() string { return a.id }

func (a *fakeAdapter) FetchQuotes(ctx context.Context, _ []string) ([]pricing.QuoteRecord, error) {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.quotes, nil
}

// fakeMetadata serves mappings from a static table and records every write.
type fakeMetadata struct {
	mu       sync.Mutex
	mappings map[string]map[string]assets.CanonicalAsset
	touched  [][]uuid.UUID
	audits   []auditEntry
	created  []pricing.CycleRun
	finished []pricing.CycleRun

	resolveErr error
	touchErr   error
	createErr  error
	finishErr  error
}

type auditEntry struct {
	sourceID string
	rawCode  string
	count    int64
}

func newFakeMetadata() *fakeMetadata {
	return &fakeMetadata{mappings: make(map[string]map[string]assets.CanonicalAsset)}
}

func (m *fakeMetadata) addMapping(sourceID, rawCode string, asset assets.CanonicalAsset) {
	if m.mappings[sourceID] == nil {
		m.mappings[sourceID] = make(map[string]assets.CanonicalAsset)
	}
	m.mappings[sourceID][rawCode] = asset
}

func (m *fakeMetadata) ResolveMappings(_ context.Context, sourceID string, rawCodes []string) (map[string]assets.CanonicalAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	result := make(map[string]assets.CanonicalAsset)
	for _, code := range rawCodes {
		if asset, ok := m.mappings[sourceID][code]; ok {
			result[code] = asset
		}
	}
	return result, nil
}

func (m *fakeMetadata) TouchAssets(_ context.Context, assetIDs []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.touchErr != nil {
		return m.touchErr
	}
	m.touched = append(m.touched, assetIDs)
	return nil
}

func (m *fakeMetadata) AddMappingAudit(_ context.Context, sourceID, rawCode string, occurrences int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, auditEntry{sourceID: sourceID, rawCode: rawCode, count: occurrences})
	return nil
}

func (m *fakeMetadata) CreateCycleRun(_ context.Context, run *pricing.CycleRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, *run)
	return nil
}

func (m *fakeMetadata) FinishCycleRun(_ context.Context, run *pricing.CycleRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finishErr != nil {
		return m.finishErr
	}
	m.finished = append(m.finished, *run)
	return nil
}

func (m *fakeMetadata) Close() {}

// fakeCache counts unmapped hits in memory and records snapshot writes.
type fakeCache struct {
	mu        sync.Mutex
	snapshots [][]pricing.PriceObservation
	counters  map[string]int64

	storeErr error
	incrErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{counters: make(map[string]int64)}
}

func (c *fakeCache) StoreSnapshots(_ context.Context, observations []pricing.PriceObservation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.storeErr != nil {
		return c.storeErr
	}
	c.snapshots = append(c.snapshots, observations)
	return nil
}

func (c *fakeCache) GetMarketSnapshots(_ context.Context, _ string) (map[string]pricing.PriceObservation, error) {
	return nil, nil
}

func (c *fakeCache) IncrUnmapped(_ context.Context, sourceID, rawCode string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.incrErr != nil {
		return 0, c.incrErr
	}
	key := sourceID + ":" + rawCode
	c.counters[key]++
	return c.counters[key], nil
}

func (c *fakeCache) Close() error { return nil }

// fakeTimeSeries retains every write in memory.
type fakeTimeSeries struct {
	mu           sync.Mutex
	observations []pricing.PriceObservation
	vwap         []pricing.VWAPRecord
	candles      []pricing.OHLCVCandle

	observationErr error
	vwapErr        error
	getVWAPErr     error
	candleErr      error
	addDelay       time.Duration
}

func (s *fakeTimeSeries) AddObservations(_ context.Context, observations []pricing.PriceObservation) error {
	if s.addDelay > 0 {
		time.Sleep(s.addDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.observationErr != nil {
		return s.observationErr
	}
	s.observations = append(s.observations, observations...)
	return nil
}

func (s *fakeTimeSeries) GetObservationsBetween(_ context.Context, from, to time.Time) ([]pricing.PriceObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []pricing.PriceObservation
	for _, obs := range s.observations {
		if !obs.ObservedAt.Before(from) && obs.ObservedAt.Before(to) {
			result = append(result, obs)
		}
	}
	return result, nil
}

func (s *fakeTimeSeries) AddVWAPRecords(_ context.Context, records []pricing.VWAPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vwapErr != nil {
		return s.vwapErr
	}
	s.vwap = append(s.vwap, records...)
	return nil
}

func (s *fakeTimeSeries) GetVWAPBetween(_ context.Context, from, to time.Time) ([]pricing.VWAPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getVWAPErr != nil {
		return nil, s.getVWAPErr
	}
	var result []pricing.VWAPRecord
	for _, rec := range s.vwap {
		if !rec.WindowStart.Before(from) && rec.WindowStart.Before(to) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (s *fakeTimeSeries) GetVWAPForAsset(_ context.Context, assetID uuid.UUID, _, _ time.Time) ([]pricing.VWAPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []pricing.VWAPRecord
	for _, rec := range s.vwap {
		if rec.AssetID == assetID {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (s *fakeTimeSeries) AddCandles(_ context.Context, candles []pricing.OHLCVCandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.candleErr != nil {
		return s.candleErr
	}
	s.candles = append(s.candles, candles...)
	return nil
}

func (s *fakeTimeSeries) GetCandlesBetween(_ context.Context, _ uuid.UUID, _ string, _, _ time.Time) ([]pricing.OHLCVCandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pricing.OHLCVCandle(nil), s.candles...), nil
}

func (s *fakeTimeSeries) Close() {}

// fakePublisher records published artifacts.
type fakePublisher struct {
	mu     sync.Mutex
	cycles []pricing.CycleRun
	vwap   []pricing.VWAPRecord

	publishErr error
}

func (p *fakePublisher) PublishCycleRun(_ context.Context, run *pricing.CycleRun) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.cycles = append(p.cycles, *run)
	return nil
}

func (p *fakePublisher) PublishVWAP(_ context.Context, record *pricing.VWAPRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.vwap = append(p.vwap, *record)
	return nil
}

func (p *fakePublisher) Close() {}

func testAsset(symbol string) assets.CanonicalAsset {
	return assets.CanonicalAsset{
		ID:     uuid.NewSHA1(uuid.NameSpaceOID, []byte("asset:"+symbol)),
		Symbol: symbol,
		Name:   symbol,
	}
}
