package feeds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hivefeed/db"
	"hivefeed/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	rankedQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hivefeed_ranked_queries_total",
		Help: "Number of ranked feed queries served, by strategy",
	}, []string{"strategy"})
	commentQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hivefeed_comment_queries_total",
		Help: "Number of author comment listing queries served",
	})
	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hivefeed_query_duration_seconds",
		Help:    "Feed query latency",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // Start at 1ms, double each bucket, 12 buckets
	})
)

// MaxLimit is the largest page a single call may request.
const MaxLimit = 100

var (
	ErrUnknownStrategy = errors.New("unknown ranking strategy")
	ErrInvalidLimit    = errors.New("invalid limit")
)

// Engine serves the ranked feed queries and the author comment listing.
// Every call runs against one consistent read snapshot and retains no
// cross-call state: pagination is anchored by value on the last-seen
// post, never by a stored cursor.
type Engine struct {
	store *db.Store
}

func NewEngine(store *db.Store) *Engine {
	return &Engine{store: store}
}

func validLimit(limit int) error {
	if limit < 0 || limit > MaxLimit {
		return fmt.Errorf("%d: %w", limit, ErrInvalidLimit)
	}
	return nil
}

// RankedFeed returns up to limit posts under tag, most relevant first
// according to the named strategy. An empty anchorPermlink starts from
// the top; otherwise the anchor post's own (score, id) pair bounds the
// page and the anchor itself is excluded.
func (e *Engine) RankedFeed(ctx context.Context, strategy, tag, anchorAuthor, anchorPermlink string, limit int) ([]models.PostView, error) {
	s, ok := rankStrategies[strategy]
	if !ok {
		return nil, fmt.Errorf("%s: %w", strategy, ErrUnknownStrategy)
	}
	if err := validLimit(limit); err != nil {
		return nil, err
	}
	if limit == 0 {
		return []models.PostView{}, nil
	}

	defer func(start time.Time) {
		queryDuration.Observe(time.Since(start).Seconds())
	}(time.Now())
	rankedQueries.WithLabelValues(strategy).Inc()

	log.WithFields(log.Fields{
		"strategy": strategy,
		"tag":      tag,
		"author":   anchorAuthor,
		"permlink": anchorPermlink,
		"limit":    limit,
	}).Info("Ranked feed query")

	tx, err := e.store.BeginRead(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	params := rankedParams{limit: limit}

	if tag != "" {
		if params.tagID, err = e.store.TagID(ctx, tx, tag); err != nil {
			return nil, err
		}
	}

	if anchorPermlink != "" {
		if params.anchorID, err = e.store.PostID(ctx, tx, anchorAuthor, anchorPermlink); err != nil {
			return nil, err
		}
		if s.Score != "" {
			if params.anchorScore, err = e.anchorScore(ctx, tx, s, params.anchorID); err != nil {
				return nil, err
			}
		}
	}

	if s.needsHeadTime {
		if params.headTime, err = e.store.HeadTime(ctx, tx); err != nil {
			return nil, err
		}
	}

	query, args := buildRanked(e.store.Flavor(), s, params)
	log.WithFields(log.Fields{
		"sql":  query,
		"args": args,
	}).Debug("Generated ranked feed query")

	ids, err := selectIDs(ctx, tx, query, args)
	if err != nil {
		return nil, err
	}

	posts, err := e.store.PostViews(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit read tx: %w", err)
	}
	return posts, nil
}

// anchorScore looks up the anchor post's current value under the target
// strategy's metric, inside the same snapshot as the page selection.
func (e *Engine) anchorScore(ctx context.Context, q db.Queryer, s Strategy, anchorID int64) (float64, error) {
	sb := e.store.Flavor().NewSelectBuilder()
	sb.Select(s.Score).From("hive_posts hp")
	sb.Where(sb.Equal("hp.id", anchorID))
	query, args := sb.Build()

	var score float64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&score); err != nil {
		return 0, fmt.Errorf("anchor score: %w", err)
	}
	return score, nil
}

func selectIDs(ctx context.Context, q db.Queryer, query string, args []interface{}) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
