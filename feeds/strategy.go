package feeds

import (
	"sort"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
)

type depthConstraint int

const (
	anyDepth depthConstraint = iota
	rootsOnly
	commentsOnly
)

// payoutScore is the combined earnings expression ranked on by the
// payout-family strategies. payout is frozen once a post pays out;
// pending_payout shrinks toward zero as finalization approaches.
const payoutScore = "(hp.payout + hp.pending_payout)"

// The payout strategy only surfaces posts whose earnings finalize inside
// this window relative to chain head time.
const (
	payoutWindowOpen  = 12 * time.Hour
	payoutWindowClose = 36 * time.Hour
)

// Strategy describes one ranking variant: a scalar score expression, a
// depth constraint and an eligibility filter. The set is closed; the
// scoring fields are fixed platform concepts rather than plugins.
type Strategy struct {
	Name string
	// Score is the SQL expression ranked on; empty ranks on id alone.
	Score string

	depth         depthConstraint
	needsHeadTime bool
	filter        func(sb *sqlbuilder.SelectBuilder, headTime time.Time)
}

func notPaidout(sb *sqlbuilder.SelectBuilder, _ time.Time) {
	sb.Where(sb.Equal("hp.is_paidout", false))
}

var rankStrategies = map[string]Strategy{
	"created": {
		Name:  "created",
		depth: rootsOnly,
		filter: func(sb *sqlbuilder.SelectBuilder, _ time.Time) {
			sb.Where(sb.Equal("hp.is_grayed", false))
		},
	},
	"hot": {
		Name:   "hot",
		Score:  "hp.sc_hot",
		depth:  rootsOnly,
		filter: notPaidout,
	},
	"muted": {
		Name:  "muted",
		Score: payoutScore,
		depth: anyDepth,
		filter: func(sb *sqlbuilder.SelectBuilder, _ time.Time) {
			sb.Where(
				sb.Equal("hp.is_paidout", false),
				sb.Equal("hp.is_grayed", true),
				sb.GreaterThan(payoutScore, 0),
			)
		},
	},
	"payout": {
		Name:          "payout",
		Score:         payoutScore,
		depth:         anyDepth,
		needsHeadTime: true,
		filter: func(sb *sqlbuilder.SelectBuilder, headTime time.Time) {
			sb.Where(
				sb.Equal("hp.is_paidout", false),
				sb.GreaterEqualThan("hp.payout_at", headTime.Add(payoutWindowOpen)),
				sb.LessThan("hp.payout_at", headTime.Add(payoutWindowClose)),
			)
		},
	},
	"payout_comments": {
		Name:   "payout_comments",
		Score:  payoutScore,
		depth:  commentsOnly,
		filter: notPaidout,
	},
	"promoted": {
		Name:  "promoted",
		Score: "hp.promoted",
		depth: anyDepth,
		filter: func(sb *sqlbuilder.SelectBuilder, _ time.Time) {
			sb.Where(
				sb.Equal("hp.is_paidout", false),
				sb.GreaterThan("hp.promoted", 0),
			)
		},
	},
	"trending": {
		Name:   "trending",
		Score:  "hp.sc_trend",
		depth:  rootsOnly,
		filter: notPaidout,
	},
}

// Strategies returns the supported strategy names, sorted.
func Strategies() []string {
	names := lo.Keys(rankStrategies)
	sort.Strings(names)
	return names
}

type rankedParams struct {
	tagID       int64
	anchorID    int64
	anchorScore float64
	headTime    time.Time
	limit       int
}

// buildRanked assembles the strategy's top-N selection. Pagination is
// strict keyset on (score DESC, id DESC): the result set is restricted
// to rows strictly below the anchor's (score, id) pair, so repeated
// calls anchored on the last returned row never re-emit or skip a row.
func buildRanked(flavor sqlbuilder.Flavor, s Strategy, p rankedParams) (string, []interface{}) {
	sb := flavor.NewSelectBuilder()
	sb.Select("hp.id").From("hive_posts hp")

	if p.tagID != 0 {
		sb.Join("hive_post_tags hpt", "hpt.post_id = hp.id")
		sb.Where(sb.Equal("hpt.tag_id", p.tagID))
	}

	switch s.depth {
	case rootsOnly:
		sb.Where(sb.Equal("hp.depth", 0))
	case commentsOnly:
		sb.Where(sb.GreaterThan("hp.depth", 0))
	}

	s.filter(sb, p.headTime)

	if p.anchorID != 0 {
		if s.Score == "" {
			sb.Where(sb.LessThan("hp.id", p.anchorID))
		} else {
			sb.Where(sb.Or(
				sb.LessThan(s.Score, p.anchorScore),
				sb.And(
					sb.Equal(s.Score, p.anchorScore),
					sb.LessThan("hp.id", p.anchorID),
				),
			))
		}
	}

	if s.Score == "" {
		sb.OrderBy("hp.id DESC")
	} else {
		sb.OrderBy(s.Score+" DESC", "hp.id DESC")
	}
	sb.Limit(p.limit)

	return sb.Build()
}
