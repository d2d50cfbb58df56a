package db_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"hivefeed/db"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hivefeed.db")
	require.NoError(t, db.Migrate("sqlite://"+path))

	store, err := db.NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func seedPost(t *testing.T, store *db.Store, id int64, author, permlink string) {
	t.Helper()
	now := time.Date(2016, 8, 14, 12, 0, 0, 0, time.UTC)

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("hive_accounts")
	ib.Cols("id", "name", "reputation")
	ib.Values(id, author, 25.0)
	query, args := ib.Build()
	if _, err := store.DB().Exec(query, args...); err != nil {
		// Accounts are shared between posts by the same author
		require.Contains(t, err.Error(), "UNIQUE")
	}

	ib = sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("hive_posts")
	ib.Cols("id", "author", "permlink", "payout_at", "created_at", "updated_at")
	ib.Values(id, author, permlink, now, now, now)
	query, args = ib.Build()
	_, err := store.DB().Exec(query, args...)
	require.NoError(t, err)
}

func TestPostID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedPost(t, store, 7, "alice", "my-first-post")

	id, err := store.PostID(ctx, store.DB(), "alice", "my-first-post")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = store.PostID(ctx, store.DB(), "alice", "no-such-post")
	assert.ErrorIs(t, err, db.ErrPostNotFound)

	_, err = store.PostID(ctx, store.DB(), "bob", "my-first-post")
	assert.ErrorIs(t, err, db.ErrPostNotFound)
}

func TestTagID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.DB().Exec("INSERT INTO hive_tag_data (id, tag) VALUES (3, 'photography')")
	require.NoError(t, err)

	id, err := store.TagID(ctx, store.DB(), "photography")
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	_, err = store.TagID(ctx, store.DB(), "travel")
	assert.ErrorIs(t, err, db.ErrTagNotFound)
}

func TestHead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Empty block log reads as zero values, not an error
	ts, err := store.HeadTime(ctx, store.DB())
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	num, err := store.HeadBlock(ctx, store.DB())
	require.NoError(t, err)
	assert.Equal(t, int64(0), num)

	newest := time.Date(2016, 8, 14, 12, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{newest.Add(-6 * time.Second), newest.Add(-3 * time.Second), newest} {
		_, err := store.DB().Exec("INSERT INTO hive_blocks (num, created_at) VALUES (?, ?)", i+1, at)
		require.NoError(t, err)
	}

	ts, err = store.HeadTime(ctx, store.DB())
	require.NoError(t, err)
	assert.True(t, newest.Equal(ts))

	num, err = store.HeadBlock(ctx, store.DB())
	require.NoError(t, err)
	assert.Equal(t, int64(3), num)
}

func TestAggregationState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// The migration seeds the progress row at block 0
	last, err := store.LastAggregatedBlock(ctx, store.DB())
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)

	require.NoError(t, store.SetLastAggregatedBlock(ctx, store.DB(), 1234))

	last, err = store.LastAggregatedBlock(ctx, store.DB())
	require.NoError(t, err)
	assert.Equal(t, int64(1234), last)
}

func TestTidyBlocks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Empty block log is a no-op
	deleted, err := store.TidyBlocks(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	head := time.Date(2016, 8, 14, 12, 0, 0, 0, time.UTC)
	for num, at := range map[int64]time.Time{
		1: head.Add(-100 * 24 * time.Hour),
		2: head.Add(-10 * 24 * time.Hour),
		3: head,
	} {
		_, err := store.DB().Exec("INSERT INTO hive_blocks (num, created_at) VALUES (?, ?)", num, at)
		require.NoError(t, err)
	}

	deleted, err = store.TidyBlocks(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	num, err := store.HeadBlock(ctx, store.DB())
	require.NoError(t, err)
	assert.Equal(t, int64(3), num)
}

func TestPostViews(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 4; i++ {
		seedPost(t, store, i, fmt.Sprintf("author-%d", i), fmt.Sprintf("post-%d", i))
	}

	// Hydration preserves the caller's ranking order and silently drops
	// ids that no longer resolve
	posts, err := store.PostViews(ctx, store.DB(), []int64{3, 1, 4, 99})
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, int64(3), posts[0].ID)
	assert.Equal(t, int64(1), posts[1].ID)
	assert.Equal(t, int64(4), posts[2].ID)
	assert.Equal(t, "author-3", posts[0].Author)

	posts, err = store.PostViews(ctx, store.DB(), nil)
	require.NoError(t, err)
	assert.Empty(t, posts)
}
