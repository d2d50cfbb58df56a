package server_test

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"hivefeed/db"
	"hivefeed/feeds"
	"hivefeed/models"
	"hivefeed/rshares"
	"hivefeed/server"

	"github.com/gofiber/fiber/v2"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hivefeed.db")
	require.NoError(t, db.Migrate("sqlite://"+path))

	store, err := db.NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	now := time.Date(2016, 8, 14, 12, 0, 0, 0, time.UTC)
	exec := func(ib *sqlbuilder.InsertBuilder) {
		query, args := ib.Build()
		_, err := store.DB().Exec(query, args...)
		require.NoError(t, err)
	}

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("hive_accounts")
	ib.Cols("id", "name", "reputation")
	ib.Values(1, "alice", 60.0)
	exec(ib)

	ib = sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("hive_posts")
	ib.Cols("id", "author", "permlink", "depth", "sc_trend", "payout_at", "created_at", "updated_at")
	ib.Values(1, "alice", "hello-world", 0, 9.5, now.Add(24*time.Hour), now, now)
	ib.Values(2, "alice", "re-hello-world", 1, 0.0, now.Add(24*time.Hour), now, now)
	exec(ib)

	ib = sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("hive_votes")
	ib.Cols("id", "post_id", "voter", "rshares", "block_num")
	ib.Values(1, 1, "bob", 10, 5)
	exec(ib)

	engine := feeds.NewEngine(store)
	maintainer := rshares.NewMaintainer(store)
	app := server.Server(&server.ServerConfig{
		Engine:     engine,
		Maintainer: maintainer,
	})

	return app
}

func TestHealthRoute(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestFeedRoute(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/feed/trending", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var posts []models.PostView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&posts))
	require.Len(t, posts, 1)
	assert.Equal(t, int64(1), posts[0].ID)
	assert.Equal(t, "alice", posts[0].Author)
	assert.Equal(t, "hello-world", posts[0].Permlink)
}

func TestFeedRouteErrors(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{
			name:   "unknown strategy",
			target: "/feed/viral",
			status: fiber.StatusBadRequest,
		},
		{
			name:   "limit not a number",
			target: "/feed/trending?limit=abc",
			status: fiber.StatusBadRequest,
		},
		{
			name:   "limit too large",
			target: "/feed/trending?limit=9000",
			status: fiber.StatusBadRequest,
		},
		{
			name:   "unknown tag",
			target: "/feed/trending?tag=nosuchtag",
			status: fiber.StatusNotFound,
		},
		{
			name:   "unknown anchor",
			target: "/feed/trending?author=alice&permlink=nope",
			status: fiber.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.target, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestCommentsRoute(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/comments/alice", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var posts []models.PostView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&posts))
	require.Len(t, posts, 1)
	assert.Equal(t, int64(2), posts[0].ID)

	resp, err = app.Test(httptest.NewRequest("GET", "/comments/alice?permlink=nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAggregateRoute(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("POST", "/aggregate?first=1&last=10", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var res models.AggregationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 1, res.Touched)
	assert.Equal(t, 1, res.Updated)

	resp, err = app.Test(httptest.NewRequest("POST", "/aggregate?first=10&last=1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/aggregate?first=abc&last=10", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
