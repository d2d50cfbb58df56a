package models

// PostView is the full public-facing post representation served to feed
// consumers. The column set mirrors hive_posts_view and is a contract
// with downstream clients; do not reorder or narrow it.
type PostView struct {
	ID                 int64   `json:"post_id"`
	Author             string  `json:"author"`
	ParentAuthor       string  `json:"parent_author"`
	AuthorRep          float64 `json:"author_rep"`
	RootTitle          string  `json:"root_title"`
	Beneficiaries      string  `json:"beneficiaries"`
	MaxAcceptedPayout  float64 `json:"max_accepted_payout"`
	PercentHbd         int64   `json:"percent_hbd"`
	URL                string  `json:"url"`
	Permlink           string  `json:"permlink"`
	ParentPermlink     string  `json:"parent_permlink"`
	Title              string  `json:"title"`
	Body               string  `json:"body"`
	Category           string  `json:"category"`
	Depth              int64   `json:"depth"`
	Promoted           float64 `json:"promoted"`
	Payout             float64 `json:"payout"`
	PendingPayout      float64 `json:"pending_payout"`
	PayoutAt           string  `json:"payout_at"`
	IsPaidout          bool    `json:"is_paidout"`
	Children           int64   `json:"children"`
	Votes              string  `json:"votes"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
	Rshares            int64   `json:"rshares"`
	AbsRshares         int64   `json:"abs_rshares"`
	JSONMetadata       string  `json:"json_metadata"`
	IsHidden           bool    `json:"is_hidden"`
	IsGrayed           bool    `json:"is_grayed"`
	TotalVotes         int64   `json:"total_votes"`
	ScTrend            float64 `json:"sc_trend"`
	RoleTitle          *string `json:"role_title"`
	CommunityTitle     *string `json:"community_title"`
	RoleID             *int64  `json:"role_id"`
	IsPinned           bool    `json:"is_pinned"`
	CuratorPayoutValue float64 `json:"curator_payout_value"`
}

// Vote is a single scored vote event as ingested from the chain.
// Append-only; the aggregation maintainer reads them by block range.
type Vote struct {
	ID       int64  `json:"id"`
	PostID   int64  `json:"post_id"`
	Voter    string `json:"voter"`
	Rshares  int64  `json:"rshares"`
	BlockNum int64  `json:"block_num"`
}

// AggregationResult reports what a recompute run touched.
type AggregationResult struct {
	FirstBlock int64 `json:"first_block"`
	LastBlock  int64 `json:"last_block"`
	Touched    int   `json:"touched"`
	Updated    int   `json:"updated"`
}
