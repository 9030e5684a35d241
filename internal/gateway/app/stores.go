package app

import (
	"context"
	"fmt"
	"io"
	"log"

	analysiscache "savedanalysis/internal/cache/analysis"
	"savedanalysis/internal/gateway/config"
	analysisrepo "savedanalysis/internal/gateway/repository/analysis"
)

// OpenStore builds the saved-analysis store selected by cfg, wrapped in the
// read cache when it is enabled. The returned closer releases the backend.
func OpenStore(ctx context.Context, cfg *config.Config) (analysisrepo.Store, io.Closer, error) {
	origin, closer, err := openOrigin(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Cache.Enabled || cfg.Store.Backend == config.BackendMemory {
		return origin, closer, nil
	}
	cached := analysiscache.NewCachedStore(origin, analysiscache.CacheConfig{
		DocTTL:        cfg.Cache.TTL,
		DocMaxEntries: cfg.Cache.MaxEntries,
	})
	return cached, closer, nil
}

func openOrigin(ctx context.Context, cfg *config.Config) (analysisrepo.Store, io.Closer, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		log.Printf("analysis store: in-memory")
		return analysisrepo.NewMemoryStore(), nopCloser{}, nil
	case config.BackendFile:
		store, err := analysisrepo.NewFileStore(cfg.Store.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		log.Printf("analysis store: file dir=%s", cfg.Store.Dir)
		return store, nopCloser{}, nil
	case config.BackendS3:
		s3 := cfg.Store.S3
		store, err := analysisrepo.NewS3Store(analysisrepo.S3Config{
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Bucket:    s3.Bucket,
			UseSSL:    s3.UseSSL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize s3 store: %w", err)
		}
		log.Printf("analysis store: s3 bucket=%s endpoint=%s", s3.Bucket, s3.Endpoint)
		return store, nopCloser{}, nil
	case config.BackendPostgres:
		store, err := analysisrepo.OpenPostgres(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		log.Printf("analysis store: postgres")
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown analysis store backend %q", cfg.Store.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
