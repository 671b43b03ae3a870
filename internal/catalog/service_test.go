// AngelaMos | 2026
// service_test.go

package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, item *Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*Item, error) {
	args := m.Called(ctx, id)
	it, _ := args.Get(0).(*Item)
	return it, args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, item *Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockRepo) SetStatus(ctx context.Context, id, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockRepo) IncrementViewCount(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

func (m *mockRepo) Search(ctx context.Context, p SearchParams) ([]Item, int, error) {
	args := m.Called(ctx, p)
	items, _ := args.Get(0).([]Item)
	return items, args.Int(1), args.Error(2)
}

func (m *mockRepo) Latest(ctx context.Context, limit int) ([]Item, error) {
	args := m.Called(ctx, limit)
	items, _ := args.Get(0).([]Item)
	return items, args.Error(1)
}

func (m *mockRepo) Popular(ctx context.Context, limit int) ([]Item, error) {
	args := m.Called(ctx, limit)
	items, _ := args.Get(0).([]Item)
	return items, args.Error(1)
}

func (m *mockRepo) ListBySeller(ctx context.Context, id string, p core.PageParams) ([]Item, int, error) {
	args := m.Called(ctx, id, p)
	items, _ := args.Get(0).([]Item)
	return items, args.Int(1), args.Error(2)
}

func (m *mockRepo) ReplaceImages(ctx context.Context, id string, urls []string) error {
	return m.Called(ctx, id, urls).Error(0)
}

func (m *mockRepo) ReplaceTags(ctx context.Context, id string, tags []Tag) error {
	return m.Called(ctx, id, tags).Error(0)
}

func (m *mockRepo) Images(ctx context.Context, id string) ([]Image, error) {
	args := m.Called(ctx, id)
	images, _ := args.Get(0).([]Image)
	return images, args.Error(1)
}

func (m *mockRepo) Tags(ctx context.Context, id string) ([]Tag, error) {
	args := m.Called(ctx, id)
	tags, _ := args.Get(0).([]Tag)
	return tags, args.Error(1)
}

func (m *mockRepo) CoverImages(ctx context.Context, ids []string) (map[string]string, error) {
	args := m.Called(ctx, ids)
	covers, _ := args.Get(0).(map[string]string)
	return covers, args.Error(1)
}

func (m *mockRepo) GetCategory(ctx context.Context, id string) (*Category, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*Category)
	return c, args.Error(1)
}

func (m *mockRepo) ListCategories(ctx context.Context) ([]Category, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).([]Category)
	return c, args.Error(1)
}

func (m *mockRepo) ListTags(ctx context.Context) ([]Tag, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).([]Tag)
	return t, args.Error(1)
}

func (m *mockRepo) AddFavorite(ctx context.Context, userID, itemID string) error {
	return m.Called(ctx, userID, itemID).Error(0)
}

func (m *mockRepo) RemoveFavorite(ctx context.Context, userID, itemID string) error {
	return m.Called(ctx, userID, itemID).Error(0)
}

func (m *mockRepo) ListFavorites(ctx context.Context, id string, p core.PageParams) ([]Item, int, error) {
	args := m.Called(ctx, id, p)
	items, _ := args.Get(0).([]Item)
	return items, args.Int(1), args.Error(2)
}

func (m *mockRepo) WithTx(_ context.Context, fn func(Repository) error) error {
	return fn(m)
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleItem() *Item {
	return &Item{
		ID:       "11111111-1111-1111-1111-111111111111",
		SellerID: "seller",
		Title:    "Road bike",
		Price:    price("450.00"),
		Currency: DefaultCurrency,
		Status:   StatusActive,
	}
}

func expectDetail(repo *mockRepo, item *Item) {
	repo.On("GetByID", mock.Anything, item.ID).Return(item, nil)
	repo.On("Images", mock.Anything, item.ID).Return([]Image{}, nil)
	repo.On("Tags", mock.Anything, item.ID).Return([]Tag{}, nil)
}

func TestCreateItemPersistsAssociationsInOrder(t *testing.T) {
	repo := new(mockRepo)
	var created *Item

	repo.On("Create", mock.Anything, mock.AnythingOfType("*catalog.Item")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*Item) }).
		Return(nil).Once()
	repo.On("ReplaceImages", mock.Anything, mock.Anything,
		[]string{"https://img/1.jpg", "https://img/2.jpg"}).Return(nil).Once()
	repo.On("ReplaceTags", mock.Anything, mock.Anything, []Tag{
		{Name: "Bike", Slug: "bike"},
		{Name: "Road Racing", Slug: "road-racing"},
	}).Return(nil).Once()
	repo.On("GetByID", mock.Anything, mock.Anything).Return(sampleItem(), nil)
	repo.On("Images", mock.Anything, mock.Anything).Return([]Image{}, nil)
	repo.On("Tags", mock.Anything, mock.Anything).Return([]Tag{}, nil)

	svc := NewService(repo)
	_, err := svc.CreateItem(context.Background(), "seller", CreateItemRequest{
		Title:       "  Road bike ",
		Price:       price("450"),
		Condition:   ConditionGood,
		TradeMethod: TradePickup,
		ImageURLs:   []string{"https://img/1.jpg", "https://img/2.jpg"},
		Tags:        []string{"Bike", "bike", " Road Racing "},
	})
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, "Road bike", created.Title)
	assert.Equal(t, StatusActive, created.Status)
	assert.Equal(t, 1, created.Quantity)
	assert.Equal(t, DefaultCurrency, created.Currency)
	repo.AssertExpectations(t)
}

func TestCreateItemRejectsBadPrice(t *testing.T) {
	svc := NewService(new(mockRepo))

	for _, p := range []string{"0", "1000000", "9.999"} {
		_, err := svc.CreateItem(context.Background(), "seller", CreateItemRequest{
			Title: "Lamp", Price: price(p), Condition: ConditionNew, TradeMethod: TradeBoth,
		})
		assert.ErrorIs(t, err, core.ErrInvalidInput, p)
	}
}

func TestGetItemIncrementsViewsEveryRead(t *testing.T) {
	repo := new(mockRepo)
	item := sampleItem()
	item.Status = StatusInactive

	repo.On("IncrementViewCount", mock.Anything, item.ID).Return(int64(1), nil).Twice()
	expectDetail(repo, item)

	svc := NewService(repo)
	for range 2 {
		d, err := svc.GetItem(context.Background(), item.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusInactive, d.Item.Status)
	}

	repo.AssertNumberOfCalls(t, "IncrementViewCount", 2)
}

func TestGetItemMissing(t *testing.T) {
	repo := new(mockRepo)
	repo.On("IncrementViewCount", mock.Anything, "nope").
		Return(int64(0), core.ErrNotFound)

	_, err := NewService(repo).GetItem(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSearchDefaultsAndValidation(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("Search", mock.Anything, mock.MatchedBy(func(p SearchParams) bool {
			return p.SortBy == SortCreatedAt &&
				p.Direction == DirectionDesc &&
				p.Page == 1 && p.PageSize == 20
		})).Return([]Item{*sampleItem()}, 1, nil)
		repo.On("CoverImages", mock.Anything, []string{sampleItem().ID}).
			Return(map[string]string{sampleItem().ID: "https://img/c.jpg"}, nil)

		items, total, err := NewService(repo).Search(context.Background(), SearchParams{})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, items, 1)
		assert.Equal(t, "https://img/c.jpg", items[0].CoverImage)
	})

	t.Run("direction is case insensitive", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("Search", mock.Anything, mock.MatchedBy(func(p SearchParams) bool {
			return p.SortBy == SortPrice && p.Direction == DirectionAsc
		})).Return([]Item{}, 0, nil)
		repo.On("CoverImages", mock.Anything, []string{}).Return(map[string]string{}, nil)

		_, _, err := NewService(repo).Search(context.Background(), SearchParams{
			SortBy: SortPrice, Direction: "ASC",
		})
		require.NoError(t, err)
	})

	invalid := map[string]SearchParams{
		"unknown sort":    {SortBy: "title"},
		"unknown dir":     {Direction: "sideways"},
		"inverted prices": {MinPrice: ptrDec("20"), MaxPrice: ptrDec("10")},
	}
	for name, params := range invalid {
		t.Run(name, func(t *testing.T) {
			_, _, err := NewService(new(mockRepo)).Search(context.Background(), params)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}
}

func ptrDec(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

func TestUpdateAndDeleteRequireSellerOrAdmin(t *testing.T) {
	item := sampleItem()

	t.Run("stranger", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByID", mock.Anything, item.ID).Return(sampleItem(), nil)
		svc := NewService(repo)

		_, err := svc.UpdateItem(context.Background(), item.ID, "stranger", false, UpdateItemRequest{})
		assert.ErrorIs(t, err, core.ErrForbidden)

		err = svc.DeleteItem(context.Background(), item.ID, "stranger", false)
		assert.ErrorIs(t, err, core.ErrForbidden)
		repo.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin soft deletes", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByID", mock.Anything, item.ID).Return(sampleItem(), nil)
		repo.On("SetStatus", mock.Anything, item.ID, StatusInactive).Return(nil).Once()

		err := NewService(repo).DeleteItem(context.Background(), item.ID, "admin", true)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("seller partial update", func(t *testing.T) {
		repo := new(mockRepo)
		expectDetail(repo, sampleItem())
		repo.On("Update", mock.Anything, mock.MatchedBy(func(it *Item) bool {
			return it.Price.Equal(price("399.99")) && it.Title == "Road bike"
		})).Return(nil).Once()

		newPrice := price("399.99")
		_, err := NewService(repo).UpdateItem(
			context.Background(), item.ID, "seller", false,
			UpdateItemRequest{Price: &newPrice},
		)
		require.NoError(t, err)
		repo.AssertNotCalled(t, "ReplaceImages", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "ReplaceTags", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestFeedLimitClamped(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Latest", mock.Anything, defaultFeedLimit).Return([]Item{}, nil).Once()
	repo.On("Popular", mock.Anything, maxFeedLimit).Return([]Item{}, nil).Once()
	repo.On("CoverImages", mock.Anything, []string{}).Return(map[string]string{}, nil)

	svc := NewService(repo)
	_, err := svc.Latest(context.Background(), 0)
	require.NoError(t, err)
	_, err = svc.Popular(context.Background(), 500)
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Road Bike":       "road-bike",
		"  Home & Garden": "home-garden",
		"Kōwhai!!":        "kōwhai",
		"---":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}
