package store

import (
	"context"
	"fmt"
	"os"

	"pagesync/internal/cms"
	"pagesync/internal/config"
)

// NewStoreFromConfig creates a Store implementation based on the store
// config type. token is the bearer credential from the auth gate; only the
// github backend uses it.
func NewStoreFromConfig(ctx context.Context, cfg config.StoreConfig, token string) (cms.Store, error) {
	switch cfg.Type {
	case "github":
		if cfg.Owner == "" || cfg.Repo == "" || cfg.Branch == "" {
			return nil, fmt.Errorf("github store requires owner, repo and branch to be set")
		}
		if token == "" {
			return nil, fmt.Errorf("github store: %w: no bearer token", cms.ErrAuthFailure)
		}
		ref := cms.RepoRef{Owner: cfg.Owner, Repo: cfg.Repo, Branch: cfg.Branch}
		return NewGitHubStore(ctx, ref, token, cfg.APIBaseURL)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 store requires s3_bucket to be set")
		}
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: os.Getenv("PAGESYNC_S3_SECRET_ACCESS_KEY"),
			Endpoint:        cfg.S3Endpoint,
		})
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem store requires fs_root to be set")
		}
		return NewFileSystemStore(cfg.FSRoot)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
