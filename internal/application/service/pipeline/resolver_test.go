package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBatchDeduplicatesCodes(t *testing.T) {
	metadata := newFakeMetadata()
	metadata.addMapping("binance", "BTCUSDT", testAsset("BTC"))
	resolver := NewIdentityResolver(metadata, newFakeCache(), time.Hour, testLogger())

	result, err := resolver.ResolveBatch(context.Background(), "binance", []string{"BTCUSDT", "BTCUSDT", "ETHUSDT"})

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "BTC", result["BTCUSDT"].Symbol)
}

func TestResolveBatchEmptyInput(t *testing.T) {
	resolver := NewIdentityResolver(newFakeMetadata(), newFakeCache(), time.Hour, testLogger())

	result, err := resolver.ResolveBatch(context.Background(), "binance", nil)

	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestTrackUnmappedAuditsEveryHundredth(t *testing.T) {
	metadata := newFakeMetadata()
	cache := newFakeCache()
	resolver := NewIdentityResolver(metadata, cache, time.Hour, testLogger())

	for i := 0; i < 250; i++ {
		resolver.TrackUnmapped(context.Background(), "upbit", "KRW-XYZ")
	}

	require.Len(t, metadata.audits, 2)
	assert.EqualValues(t, 100, metadata.audits[0].count)
	assert.EqualValues(t, 200, metadata.audits[1].count)
	assert.Equal(t, "upbit", metadata.audits[0].sourceID)
	assert.Equal(t, "KRW-XYZ", metadata.audits[0].rawCode)
}

func TestTrackUnmappedSurvivesCacheFailure(t *testing.T) {
	cache := newFakeCache()
	cache.incrErr = assert.AnError
	resolver := NewIdentityResolver(newFakeMetadata(), cache, time.Hour, testLogger())

	assert.NotPanics(t, func() {
		resolver.TrackUnmapped(context.Background(), "upbit", "KRW-XYZ")
	})
}
