package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	assets "main/internal/domain/entity/assets"
	inframetadata "main/internal/infrastructure/metadata"
)

const defaultSeedFile = "seed.json"

// seedFile is the reference-data input: canonical assets plus the
// per-source raw codes that map onto them.
type seedFile struct {
	Assets []seedAsset `json:"assets"`
}

type seedAsset struct {
	Symbol          string            `json:"symbol"`
	Name            string            `json:"name"`
	CoinGeckoID     string            `json:"coingecko_id,omitempty"`
	CoinMarketCapID string            `json:"coinmarketcap_id,omitempty"`
	Codes           map[string]string `json:"codes"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		logger.Fatal("DATABASE_DSN is required")
	}
	seedPath := os.Getenv("SEED_FILE")
	if seedPath == "" {
		seedPath = defaultSeedFile
	}

	seed, err := loadSeed(seedPath)
	if err != nil {
		logger.Fatalf("load seed file: %v", err)
	}

	repo, err := inframetadata.NewRepository(dsn)
	if err != nil {
		logger.Fatalf("connect postgres: %v", err)
	}
	defer repo.Close()

	assetRows, mappingRows, err := buildRows(seed)
	if err != nil {
		logger.Fatalf("invalid seed data: %v", err)
	}

	if err := repo.UpsertAssets(ctx, assetRows); err != nil {
		logger.Fatalf("save assets: %v", err)
	}
	logger.WithField("assets", len(assetRows)).Info("canonical assets synced")

	if err := repo.UpsertMappings(ctx, mappingRows); err != nil {
		logger.Fatalf("save mappings: %v", err)
	}
	logger.WithField("mappings", len(mappingRows)).Info("symbol mappings synced")
}

func loadSeed(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, err
	}
	if len(seed.Assets) == 0 {
		return nil, errors.New("seed file declares no assets")
	}
	return &seed, nil
}

// buildRows derives a stable UUID per asset from its symbol, so re-running
// the seeder updates rows instead of duplicating them.
func buildRows(seed *seedFile) ([]assets.CanonicalAsset, []assets.SymbolMapping, error) {
	now := time.Now().UTC()
	assetRows := make([]assets.CanonicalAsset, 0, len(seed.Assets))
	mappingRows := make([]assets.SymbolMapping, 0, len(seed.Assets)*3)
	seen := make(map[string]struct{}, len(seed.Assets))

	for _, a := range seed.Assets {
		if a.Symbol == "" {
			return nil, nil, errors.New("asset with empty symbol")
		}
		if _, ok := seen[a.Symbol]; ok {
			return nil, nil, fmt.Errorf("duplicate asset symbol %q", a.Symbol)
		}
		seen[a.Symbol] = struct{}{}

		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("asset:"+a.Symbol))
		assetRows = append(assetRows, assets.CanonicalAsset{
			ID:              id,
			Symbol:          a.Symbol,
			Name:            a.Name,
			CoinGeckoID:     a.CoinGeckoID,
			CoinMarketCapID: a.CoinMarketCapID,
		})

		for sourceID, rawCode := range a.Codes {
			if sourceID == "" || rawCode == "" {
				return nil, nil, fmt.Errorf("asset %q has an empty source id or raw code", a.Symbol)
			}
			mappingRows = append(mappingRows, assets.SymbolMapping{
				SourceID:     sourceID,
				RawCode:      rawCode,
				AssetID:      id,
				Confidence:   1,
				LastVerified: now,
				Active:       true,
			})
		}
	}
	return assetRows, mappingRows, nil
}
