package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ims-service/internal/config"
	"github.com/spec-kit/ims-service/internal/observability"
	"github.com/spec-kit/ims-service/internal/repository"
	"github.com/spec-kit/ims-service/internal/storage"
)

// AssetStore is the part of the asset store the reconciler needs.
type AssetStore interface {
	ListOlderThan(ctx context.Context, folder string, cutoff time.Time) ([]storage.Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// AssetReconciler deletes uploaded avatars that no account references. Such assets
// are left behind when the credential store write fails after an upload.
type AssetReconciler struct {
	assets   AssetStore
	accounts repository.AccountRepository
	metrics  *observability.Metrics
	logger   *zap.Logger
	folder   string
	interval time.Duration
	minAge   time.Duration
	now      func() time.Time
}

// NewAssetReconciler builds a reconciler for the configured avatar folder.
func NewAssetReconciler(cfg config.Config, assets AssetStore, accounts repository.AccountRepository, metrics *observability.Metrics, logger *zap.Logger) *AssetReconciler {
	return &AssetReconciler{
		assets:   assets,
		accounts: accounts,
		metrics:  metrics,
		logger:   logger,
		folder:   cfg.Assets.Folder,
		interval: cfg.Reconcile.Interval(),
		minAge:   cfg.Reconcile.OrphanAge(),
		now:      time.Now,
	}
}

// Run sweeps once per interval until ctx is cancelled. A zero interval disables it.
func (r *AssetReconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("asset reconciliation disabled")
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("asset reconciliation started", zap.Duration("interval", r.interval), zap.Duration("min_age", r.minAge))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("asset reconciliation stopped")
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Error("asset reconciliation failed", zap.Error(err))
			}
		}
	}
}

// Sweep deletes every unreferenced asset older than the minimum age and returns how
// many were removed. Per-asset failures are logged and skipped.
func (r *AssetReconciler) Sweep(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.minAge)
	candidates, err := r.assets.ListOlderThan(ctx, r.folder, cutoff)
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, asset := range candidates {
		if ctx.Err() != nil {
			break
		}
		if !asset.CreatedAt.Before(cutoff) {
			continue
		}
		inUse, err := r.accounts.AvatarInUse(ctx, asset.URL)
		if err != nil {
			r.logger.Warn("avatar reference check failed", zap.String("public_id", asset.PublicID), zap.Error(err))
			continue
		}
		if inUse {
			continue
		}
		if err := r.assets.Delete(ctx, asset.PublicID); err != nil {
			r.logger.Warn("orphaned asset delete failed", zap.String("public_id", asset.PublicID), zap.Error(err))
			continue
		}
		r.logger.Info("orphaned asset deleted", zap.String("public_id", asset.PublicID), zap.String("url", asset.URL))
		pruned++
	}

	r.metrics.RecordPrunedAssets(pruned)
	return pruned, ctx.Err()
}
