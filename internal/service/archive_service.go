package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BladexZN/dashboard-c/internal/models"
)

type archiveStore interface {
	ListArchivable(ctx context.Context, cutoff time.Time) ([]models.Request, error)
	ArchiveMany(ctx context.Context, ids []string, archivedAt time.Time) (int64, error)
}

// ArchiveServiceConfig holds the retention window.
type ArchiveServiceConfig struct {
	Retention time.Duration
}

// ArchiveService moves long-delivered requests to the trash on behalf of the system.
type ArchiveService struct {
	repo   archiveStore
	logger *zap.Logger
	cfg    ArchiveServiceConfig
	now    func() time.Time
}

// NewArchiveService constructs the archive service.
func NewArchiveService(repo archiveStore, logger *zap.Logger, cfg ArchiveServiceConfig) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	return &ArchiveService{repo: repo, logger: logger, cfg: cfg, now: time.Now}
}

// Sweep soft-deletes requests completed before the retention cutoff. A dry run
// only reports the folios that would be archived. No status event is written.
func (s *ArchiveService) Sweep(ctx context.Context, dryRun bool) (*models.ArchiveSweepResult, error) {
	now := s.now().UTC()
	cutoff := now.Add(-s.cfg.Retention)

	candidates, err := s.repo.ListArchivable(ctx, cutoff)
	if err != nil {
		return nil, internalError(err, "failed to list archivable requests")
	}

	result := &models.ArchiveSweepResult{Cutoff: cutoff, DryRun: dryRun, Folios: make([]string, 0, len(candidates))}
	ids := make([]string, 0, len(candidates))
	for _, req := range candidates {
		result.Folios = append(result.Folios, req.DisplayFolio())
		ids = append(ids, req.ID)
	}
	if dryRun || len(ids) == 0 {
		s.logger.Sugar().Infow("archive sweep planned", "cutoff", cutoff, "candidates", len(ids), "dry_run", dryRun)
		return result, nil
	}

	archived, err := s.repo.ArchiveMany(ctx, ids, now)
	if err != nil {
		return nil, internalError(err, "failed to archive requests")
	}
	result.Archived = archived
	s.logger.Sugar().Infow("archive sweep completed", "cutoff", cutoff, "archived", archived)
	return result, nil
}
