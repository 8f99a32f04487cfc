package casefile

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// StartRetentionSweeper begins removing expired stored files and their
// records in the background. Retention is an opt-in policy; when it is
// disabled in config this is never called and files persist.
func (s *Service) StartRetentionSweeper(ctx context.Context) {
	if !s.retention.Enabled {
		return
	}
	go s.sweepLoop(ctx, time.Duration(s.retention.IntervalHours)*time.Hour)
}

func (s *Service) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweepExpired(ctx); err != nil {
				s.logger.Warn("retention sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *Service) sweepExpired(ctx context.Context) error {
	// rows with a NULL expiry predate the retention policy and are kept
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, stored_path FROM documents
		 WHERE expires_at IS NOT NULL AND expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return err
	}
	defer rows.Close()

	type docRow struct {
		id   int64
		path string
	}
	var expired []docRow
	for rows.Next() {
		var dr docRow
		if err := rows.Scan(&dr.id, &dr.path); err != nil {
			return err
		}
		expired = append(expired, dr)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, d := range expired {
		if err := os.Remove(d.path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove stored file failed",
				zap.String("path", d.path), zap.Error(err))
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, d.id); err != nil {
			s.logger.Warn("delete document record failed",
				zap.Int64("id", d.id), zap.Error(err))
		}

		// prune empty directories
		_ = os.Remove(filepath.Dir(d.path))
	}
	return nil
}
