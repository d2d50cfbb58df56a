package feeds

import (
	"context"
	"fmt"

	"hivefeed/models"

	log "github.com/sirupsen/logrus"
)

// AuthorComments lists all comments (depth > 0) by author, newest id
// first. Unlike RankedFeed the anchor is inclusive: a page anchored on
// post X starts with X again. Downstream consumers depend on this
// asymmetry, so it is preserved exactly.
func (e *Engine) AuthorComments(ctx context.Context, author, anchorPermlink string, limit int) ([]models.PostView, error) {
	if err := validLimit(limit); err != nil {
		return nil, err
	}
	if limit == 0 {
		return []models.PostView{}, nil
	}

	commentQueries.Inc()
	log.WithFields(log.Fields{
		"author":   author,
		"permlink": anchorPermlink,
		"limit":    limit,
	}).Info("Author comments query")

	tx, err := e.store.BeginRead(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var anchorID int64
	if anchorPermlink != "" {
		if anchorID, err = e.store.PostID(ctx, tx, author, anchorPermlink); err != nil {
			return nil, err
		}
	}

	sb := e.store.Flavor().NewSelectBuilder()
	sb.Select("hp.id").From("hive_posts hp")
	sb.Where(sb.Equal("hp.author", author), sb.GreaterThan("hp.depth", 0))
	if anchorID != 0 {
		sb.Where(sb.LessEqualThan("hp.id", anchorID))
	}
	sb.OrderBy("hp.id DESC", "hp.depth ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	log.WithFields(log.Fields{
		"sql":  query,
		"args": args,
	}).Debug("Generated author comments query")

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
