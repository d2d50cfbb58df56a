package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostID resolves an author/permlink pair to the post's stable id.
func (s *Store) PostID(ctx context.Context, q Queryer, author string, permlink string) (int64, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("id").From("hive_posts")
	sb.Where(sb.Equal("author", author), sb.Equal("permlink", permlink))
	query, args := sb.Build()

	var id int64
	err := q.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s/%s: %w", author, permlink, ErrPostNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve post: %w", err)
	}
	return id, nil
}

// TagID resolves a tag name to its internal id.
func (s *Store) TagID(ctx context.Context, q Queryer, tag string) (int64, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("id").From("hive_tag_data")
	sb.Where(sb.Equal("tag", tag))
	query, args := sb.Build()

	var id int64
	err := q.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", tag, ErrTagNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve tag: %w", err)
	}
	return id, nil
}

// HeadTime returns the newest committed block's timestamp. Feed windows
// are computed against chain time rather than the wall clock so results
// are reproducible for a given ingested state. Returns the zero time on
// an empty block log.
func (s *Store) HeadTime(ctx context.Context, q Queryer) (time.Time, error) {
	var ts time.Time
	err := q.QueryRowContext(ctx, "SELECT created_at FROM hive_blocks ORDER BY num DESC LIMIT 1").Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("head time: %w", err)
	}
	return ts, nil
}

// HeadBlock returns the newest committed block number, 0 when empty.
func (s *Store) HeadBlock(ctx context.Context, q Queryer) (int64, error) {
	var num int64
	err := q.QueryRowContext(ctx, "SELECT num FROM hive_blocks ORDER BY num DESC LIMIT 1").Scan(&num)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("head block: %w", err)
	}
	return num, nil
}

// LastAggregatedBlock reads the aggregation follower's progress row.
func (s *Store) LastAggregatedBlock(ctx context.Context, q Queryer) (int64, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("last_aggregated_block").From("hive_state")
	sb.Where(sb.Equal("id", 0))
	query, args := sb.Build()

	var num int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&num); err != nil {
		return 0, fmt.Errorf("read aggregation state: %w", err)
	}
	return num, nil
}

// SetLastAggregatedBlock advances the aggregation follower's progress row.
func (s *Store) SetLastAggregatedBlock(ctx context.Context, q Queryer, num int64) error {
	ub := s.flavor.NewUpdateBuilder()
	ub.Update("hive_state")
	ub.Set(ub.Assign("last_aggregated_block", num))
	ub.Where(ub.Equal("id", 0))
	query, args := ub.Build()

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update aggregation state: %w", err)
	}
	return nil
}
