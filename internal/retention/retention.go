// Package retention periodically purges expired share snapshots. A share
// is expired when its shared timestamp is older than the configured TTL;
// a zero TTL disables purging even when the scheduler is on.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/rawkintrevo/agent-lab-ui/pkg/config"
	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
	"github.com/rawkintrevo/agent-lab-ui/pkg/store"
)

// defaultCron runs the sweep daily at 02:00.
const defaultCron = "0 2 * * *"

// Start starts the retention scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, eff config.EffectiveConfigResult) (context.CancelFunc, error) {
	ret := eff.Config.Retention
	if !ret.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	ttl, err := eff.Config.ShareTTL()
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		logger.Info("retention_no_ttl")
		return func() {}, nil
	}

	cronExpr := ret.Cron
	if cronExpr == "" {
		cronExpr = defaultCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", ret.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", ret.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "share_ttl", ttl.String())
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, ttl, ret.BatchSize)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured cron
// expression and sleeps until that time.
func runScheduler(ctx context.Context, cronExpr string, ttl time.Duration, batchSize int) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}

		if n, err := RunOnce(ttl, batchSize); err != nil {
			logger.Error("retention_run_error", "error", err)
		} else if n > 0 {
			logger.Info("retention_run_complete", "purged", n)
		}
	}
}

// RunOnce sweeps share snapshots and unshares every one older than ttl.
// batchSize caps deletions per run; zero means unlimited. Returns the
// number of snapshots purged.
func RunOnce(ttl time.Duration, batchSize int) (int, error) {
	shares, err := store.ListShares()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().Add(-ttl).UnixNano()
	purged := 0
	for _, id := range expiredShares(shares, cutoff, batchSize) {
		if err := store.UnshareChat(id); err != nil {
			logger.Error("retention_unshare_failed", "chat", id, "error", err)
			continue
		}
		purged++
	}
	return purged, nil
}

// expiredShares selects the snapshot ids whose shared timestamp predates
// cutoff. A snapshot without a shared timestamp is never purged; it would
// mean the metadata is damaged and deleting on damage loses user data.
func expiredShares(shares []models.Chat, cutoff int64, batchSize int) []string {
	var out []string
	for _, s := range shares {
		if s.SharedTS == 0 || s.SharedTS >= cutoff {
			continue
		}
		id := s.OriginalChatID
		if id == "" {
			id = s.ID
		}
		out = append(out, id)
		if batchSize > 0 && len(out) >= batchSize {
			break
		}
	}
	return out
}
