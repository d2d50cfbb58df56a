package db

import (
	"context"
	"fmt"

	"hivefeed/models"

	"github.com/samber/lo"
)

// postViewColumns is the fixed column contract of hive_posts_view. The
// order here must match the scan order in PostViews below.
var postViewColumns = []string{
	"id",
	"author",
	"parent_author",
	"author_rep",
	"root_title",
	"beneficiaries",
	"max_accepted_payout",
	"percent_hbd",
	"url",
	"permlink",
	"parent_permlink",
	"title",
	"body",
	"category",
	"depth",
	"promoted",
	"payout",
	"pending_payout",
	"payout_at",
	"is_paidout",
	"children",
	"votes",
	"created_at",
	"updated_at",
	"rshares",
	"abs_rshares",
	"json",
	"is_hidden",
	"is_grayed",
	"total_votes",
	"sc_trend",
	"role_title",
	"community_title",
	"role_id",
	"is_pinned",
	"curator_payout_value",
}

// PostViews hydrates the given post ids through hive_posts_view,
// preserving the input order. The selection already decided ranking, so
// hydration must not re-sort.
func (s *Store) PostViews(ctx context.Context, q Queryer, ids []int64) ([]models.PostView, error) {
	if len(ids) == 0 {
		return []models.PostView{}, nil
	}

	sb := s.flavor.NewSelectBuilder()
	sb.Select(postViewColumns...).From("hive_posts_view")
	sb.Where(sb.In("id", lo.ToAnySlice(ids)...))
	query, args := sb.Build()

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("hydrate posts: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]models.PostView, len(ids))
	for rows.Next() {
		var p models.PostView
		if err := rows.Scan(
			&p.ID,
			&p.Author,
			&p.ParentAuthor,
			&p.AuthorRep,
			&p.RootTitle,
			&p.Beneficiaries,
			&p.MaxAcceptedPayout,
			&p.PercentHbd,
			&p.URL,
			&p.Permlink,
			&p.ParentPermlink,
			&p.Title,
			&p.Body,
			&p.Category,
			&p.Depth,
			&p.Promoted,
			&p.Payout,
			&p.PendingPayout,
			&p.PayoutAt,
			&p.IsPaidout,
			&p.Children,
			&p.Votes,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.Rshares,
			&p.AbsRshares,
			&p.JSONMetadata,
			&p.IsHidden,
			&p.IsGrayed,
			&p.TotalVotes,
			&p.ScTrend,
			&p.RoleTitle,
			&p.CommunityTitle,
			&p.RoleID,
			&p.IsPinned,
			&p.CuratorPayoutValue,
		); err != nil {
			return nil, fmt.Errorf("scan post view: %w", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hydrate posts: %w", err)
	}

	posts := make([]models.PostView, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}
