// AngelaMos | 2026
// repository_integration_test.go

//go:build integration

package catalog

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
	"github.com/carterperez-dev/templates/nz-market/internal/testdb"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	db, cleanup, err := testdb.Start()
	if err != nil {
		log.Fatalf("start test database: %v", err)
	}
	testDB = db

	code := m.Run()
	cleanup()
	os.Exit(code)
}

func TestSearchPriceRangeReturnsOnlyActiveSorted(t *testing.T) {
	ctx := context.Background()

	seller, err := testdb.InsertUser(ctx, testDB, "range@example.nz", "USER")
	require.NoError(t, err)

	for _, p := range []string{"5.00", "10.00", "15.50", "20.00", "25.00"} {
		_, err := testdb.InsertItem(ctx, testDB, seller, "range item "+p, p, StatusActive)
		require.NoError(t, err)
	}
	_, err = testdb.InsertItem(ctx, testDB, seller, "range hidden", "12.00", StatusInactive)
	require.NoError(t, err)

	repo := NewRepository(testDB)
	params := SearchParams{
		PageParams: core.PageParams{Page: 1, PageSize: 20},
		Keyword:    "range",
		MinPrice:   ptrDec("10"),
		MaxPrice:   ptrDec("20"),
		SortBy:     SortPrice,
		Direction:  DirectionAsc,
	}

	items, total, err := repo.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 3)

	want := []string{"10", "15.5", "20"}
	for i, it := range items {
		assert.True(t, it.Price.Equal(price(want[i])), "got %s", it.Price)
		assert.Equal(t, StatusActive, it.Status)
	}

	params.Direction = DirectionDesc
	items, _, err = repo.Search(ctx, params)
	require.NoError(t, err)
	assert.True(t, items[0].Price.Equal(price("20")))
}

func TestInactiveItemStillFetchableByID(t *testing.T) {
	ctx := context.Background()

	seller, err := testdb.InsertUser(ctx, testDB, "inactive@example.nz", "USER")
	require.NoError(t, err)
	id, err := testdb.InsertItem(ctx, testDB, seller, "retired sofa", "80.00", StatusActive)
	require.NoError(t, err)

	repo := NewRepository(testDB)
	require.NoError(t, repo.SetStatus(ctx, id, StatusInactive))

	item, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, item.Status)
	assert.Equal(t, "inactive@example.nz", item.SellerName)

	n, err := repo.IncrementViewCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTagsImagesAndFavorites(t *testing.T) {
	ctx := context.Background()

	seller, err := testdb.InsertUser(ctx, testDB, "assoc@example.nz", "USER")
	require.NoError(t, err)
	buyer, err := testdb.InsertUser(ctx, testDB, "fan@example.nz", "USER")
	require.NoError(t, err)
	id, err := testdb.InsertItem(ctx, testDB, seller, "kayak", "300.00", StatusActive)
	require.NoError(t, err)

	repo := NewRepository(testDB)

	err = repo.WithTx(ctx, func(tx Repository) error {
		if err := tx.ReplaceImages(ctx, id, []string{"https://img/a.jpg", "https://img/b.jpg"}); err != nil {
			return err
		}
		return tx.ReplaceTags(ctx, id, toTags([]string{"Water", "Outdoors"}))
	})
	require.NoError(t, err)

	require.NoError(t, repo.ReplaceTags(ctx, id, toTags([]string{"water"})))

	tags, err := repo.Tags(ctx, id)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "water", tags[0].Slug)

	covers, err := repo.CoverImages(ctx, []string{id})
	require.NoError(t, err)
	assert.Equal(t, "https://img/a.jpg", covers[id])

	require.NoError(t, repo.AddFavorite(ctx, buyer, id))
	require.NoError(t, repo.AddFavorite(ctx, buyer, id))

	favs, total, err := repo.ListFavorites(ctx, buyer, core.PageParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, favs, 1)
	assert.Equal(t, id, favs[0].ID)

	err = repo.AddFavorite(ctx, buyer, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
