package rshares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hivefeed/db"
	"hivefeed/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var (
	aggregationRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hivefeed_aggregation_runs_total",
		Help: "Number of rshares recomputation runs",
	})
	aggregationUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hivefeed_aggregation_updated_rows_total",
		Help: "Number of post rows whose vote aggregates actually changed",
	})
)

var ErrInvalidRange = errors.New("invalid block range")

// Maintainer is the sole writer of hive_posts.rshares/abs_rshares. It
// recomputes the aggregates of every post voted inside a block range
// and writes only the rows whose values actually changed. Concurrent
// runs over overlapping ranges must be serialized by the caller.
type Maintainer struct {
	store *db.Store
}

func NewMaintainer(store *db.Store) *Maintainer {
	return &Maintainer{store: store}
}

// Recompute refreshes rshares/abs_rshares for exactly the posts with at
// least one vote in [firstBlock, lastBlock]. The run is atomic: on any
// failure no row is written and the caller retries the same range.
// Re-running with no new votes writes nothing, so it is idempotent.
func (m *Maintainer) Recompute(ctx context.Context, firstBlock, lastBlock int64) (models.AggregationResult, error) {
	res := models.AggregationResult{FirstBlock: firstBlock, LastBlock: lastBlock}
	if firstBlock < 0 || firstBlock > lastBlock {
		return res, fmt.Errorf("[%d, %d]: %w", firstBlock, lastBlock, ErrInvalidRange)
	}

	tx, err := m.store.Begin(ctx)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	if res, err = m.recomputeTx(ctx, tx, firstBlock, lastBlock); err != nil {
		return res, err
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit aggregation: %w", err)
	}

	aggregationRuns.Inc()
	aggregationUpdates.Add(float64(res.Updated))
	log.WithFields(log.Fields{
		"first_block": firstBlock,
		"last_block":  lastBlock,
		"touched":     res.Touched,
		"updated":     res.Updated,
	}).Info("Recomputed rshares aggregates")

	return res, nil
}

// FollowHead recomputes the range between the follower's progress row
// and the current head block, then advances the progress row in the
// same transaction. A no-op when already current.
func (m *Maintainer) FollowHead(ctx context.Context) (models.AggregationResult, error) {
	tx, err := m.store.Begin(ctx)
	if err != nil {
		return models.AggregationResult{}, err
	}
	defer tx.Rollback()

	last, err := m.store.LastAggregatedBlock(ctx, tx)
	if err != nil {
		return models.AggregationResult{}, err
	}
	head, err := m.store.HeadBlock(ctx, tx)
	if err != nil {
		return models.AggregationResult{}, err
	}
	if head <= last {
		log.WithFields(log.Fields{"head": head}).Debug("Aggregates already current")
		return models.AggregationResult{FirstBlock: last, LastBlock: head}, nil
	}

	res, err := m.recomputeTx(ctx, tx, last+1, head)
	if err != nil {
		return res, err
	}
	if err := m.store.SetLastAggregatedBlock(ctx, tx, head); err != nil {
		return res, err
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit aggregation: %w", err)
	}

	aggregationRuns.Inc()
	aggregationUpdates.Add(float64(res.Updated))
	log.WithFields(log.Fields{
		"first_block": res.FirstBlock,
		"last_block":  res.LastBlock,
		"touched":     res.Touched,
		"updated":     res.Updated,
	}).Info("Aggregation follower caught up to head")

	return res, nil
}

type aggregateRow struct {
	postID        int64
	rshares       int64
	absRshares    int64
	curRshares    int64
	curAbsRshares int64
}

func (m *Maintainer) recomputeTx(ctx context.Context, tx *sql.Tx, firstBlock, lastBlock int64) (models.AggregationResult, error) {
	res := models.AggregationResult{FirstBlock: firstBlock, LastBlock: lastBlock}
	flavor := m.store.Flavor()

	// The touched set: posts with at least one vote in the range. Posts
	// outside it are never recomputed, which is why every committed
	// range must be aggregated at least once, in order.
	sb := flavor.NewSelectBuilder()
	sb.Select("DISTINCT post_id").From("hive_votes")
	sb.Where(sb.Between("block_num", firstBlock, lastBlock))
	query, args := sb.Build()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return res, fmt.Errorf("touched posts: %w", err)
	}
	var touched []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return res, fmt.Errorf("scan touched post: %w", err)
		}
		touched = append(touched, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("touched posts: %w", err)
	}

	res.Touched = len(touched)
	if len(touched) == 0 {
		return res, nil
	}

	// Full recomputation over all votes of every touched post, alongside
	// the currently stored aggregates for the diff check.
	sb = flavor.NewSelectBuilder()
	sb.Select(
		"v.post_id",
		"SUM(v.rshares)",
		"SUM(ABS(v.rshares))",
		"p.rshares",
		"p.abs_rshares",
	)
	sb.From("hive_votes v")
	sb.Join("hive_posts p", "p.id = v.post_id")
	sb.Where(sb.In("v.post_id", lo.ToAnySlice(touched)...))
	sb.GroupBy("v.post_id", "p.rshares", "p.abs_rshares")
	query, args = sb.Build()

	rows, err = tx.QueryContext(ctx, query, args...)
	if err != nil {
		return res, fmt.Errorf("aggregate votes: %w", err)
	}
	var changed []aggregateRow
	for rows.Next() {
		var r aggregateRow
		if err := rows.Scan(&r.postID, &r.rshares, &r.absRshares, &r.curRshares, &r.curAbsRshares); err != nil {
			rows.Close()
			return res, fmt.Errorf("scan aggregate: %w", err)
		}
		// Write-if-changed keeps frequent re-runs cheap on large tables.
		if r.rshares != r.curRshares || r.absRshares != r.curAbsRshares {
			changed = append(changed, r)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("aggregate votes: %w", err)
	}

	for _, r := range changed {
		ub := flavor.NewUpdateBuilder()
		ub.Update("hive_posts")
		ub.Set(
			ub.Assign("rshares", r.rshares),
			ub.Assign("abs_rshares", r.absRshares),
		)
		ub.Where(ub.Equal("id", r.postID))
		query, args := ub.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return res, fmt.Errorf("update post %d aggregates: %w", r.postID, err)
		}
	}
	res.Updated = len(changed)

	return res, nil
}
