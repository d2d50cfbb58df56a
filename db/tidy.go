package db

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// TidyBlocks removes block log rows older than retention, measured
// against chain head time. The newest block always survives so head
// time and head block stay resolvable. Posts and votes are never
// pruned here: the aggregation maintainer recomputes from the full
// vote history of any post it touches.
func (s *Store) TidyBlocks(ctx context.Context, retention time.Duration) (int64, error) {
	head, err := s.HeadTime(ctx, s.db)
	if err != nil {
		return 0, err
	}
	if head.IsZero() {
		return 0, nil
	}

	deleteBlocks := s.flavor.NewDeleteBuilder()
	deleteBlocks.DeleteFrom("hive_blocks")
	deleteBlocks.Where(deleteBlocks.LessThan("created_at", head.Add(-retention)))
	query, args := deleteBlocks.Build()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("tidy blocks: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("tidy blocks: %w", err)
	}

	log.WithFields(log.Fields{
		"deleted":   deleted,
		"retention": retention,
	}).Info("Tidied block log")

	return deleted, nil
}
