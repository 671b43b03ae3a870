// AngelaMos | 2026
// service.go

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

const (
	SortCreatedAt = "createdAt"
	SortPrice     = "price"
	SortViewCount = "viewCount"

	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

const (
	defaultFeedLimit = 10
	maxFeedLimit     = 50
)

var (
	minPrice = decimal.RequireFromString("0.01")
	maxPrice = decimal.RequireFromString("999999.99")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateItem(
	ctx context.Context,
	sellerID string,
	req CreateItemRequest,
) (*Detail, error) {
	if err := checkPrice(req.Price); err != nil {
		return nil, err
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	item := &Item{
		ID:           uuid.New().String(),
		SellerID:     sellerID,
		CategoryID:   req.CategoryID,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Price:        req.Price,
		Currency:     DefaultCurrency,
		Condition:    req.Condition,
		Quantity:     quantity,
		Status:       StatusActive,
		TradeMethod:  req.TradeMethod,
		LocationCity: strings.TrimSpace(req.LocationCity),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	}

	err := s.repo.WithTx(ctx, func(repo Repository) error {
		if err := repo.Create(ctx, item); err != nil {
			return err
		}
		if err := repo.ReplaceImages(ctx, item.ID, req.ImageURLs); err != nil {
			return err
		}
		return repo.ReplaceTags(ctx, item.ID, toTags(req.Tags))
	})
	if err != nil {
		return nil, err
	}

	return s.detail(ctx, item.ID)
}

// GetItem counts every read as a view. Inactive items are still
// returned to direct lookups.
func (s *Service) GetItem(ctx context.Context, id string) (*Detail, error) {
	if _, err := s.repo.IncrementViewCount(ctx, id); err != nil {
		return nil, err
	}

	return s.detail(ctx, id)
}

// Lookup returns the bare item without recording a view.
func (s *Service) Lookup(ctx context.Context, id string) (*Item, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) detail(ctx context.Context, id string) (*Detail, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	images, err := s.repo.Images(ctx, id)
	if err != nil {
		return nil, err
	}

	tags, err := s.repo.Tags(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &Detail{Item: *item, Images: images, Tags: tags}

	if item.CategoryID != nil {
		category, err := s.repo.GetCategory(ctx, *item.CategoryID)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
		d.Category = category
	}

	return d, nil
}

func (s *Service) Search(
	ctx context.Context,
	params SearchParams,
) ([]ItemSummary, int, error) {
	params.Normalize()

	if params.SortBy == "" {
		params.SortBy = SortCreatedAt
	}
	if _, ok := sortColumns[params.SortBy]; !ok {
		return nil, 0, fmt.Errorf(
			"sort_by must be one of createdAt, price, viewCount: %w",
			core.ErrInvalidInput,
		)
	}

	params.Direction = strings.ToLower(params.Direction)
	if params.Direction == "" {
		params.Direction = DirectionDesc
	}
	if params.Direction != DirectionAsc && params.Direction != DirectionDesc {
		return nil, 0, fmt.Errorf(
			"direction must be asc or desc: %w",
			core.ErrInvalidInput,
		)
	}

	if params.MinPrice != nil && params.MaxPrice != nil &&
		params.MinPrice.GreaterThan(*params.MaxPrice) {
		return nil, 0, fmt.Errorf(
			"min_price must not exceed max_price: %w",
			core.ErrInvalidInput,
		)
	}

	params.Keyword = strings.TrimSpace(params.Keyword)
	params.City = strings.TrimSpace(params.City)

	items, total, err := s.repo.Search(ctx, params)
	if err != nil {
		return nil, 0, err
	}

	summaries, err := s.summaries(ctx, items)
	if err != nil {
		return nil, 0, err
	}

	return summaries, total, nil
}

func (s *Service) Latest(ctx context.Context, limit int) ([]ItemSummary, error) {
	items, err := s.repo.Latest(ctx, clampFeed(limit))
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, items)
}

func (s *Service) Popular(ctx context.Context, limit int) ([]ItemSummary, error) {
	items, err := s.repo.Popular(ctx, clampFeed(limit))
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, items)
}

func (s *Service) MyItems(
	ctx context.Context,
	sellerID string,
	page core.PageParams,
) ([]ItemSummary, int, error) {
	page.Normalize()

	items, total, err := s.repo.ListBySeller(ctx, sellerID, page)
	if err != nil {
		return nil, 0, err
	}

	summaries, err := s.summaries(ctx, items)
	if err != nil {
		return nil, 0, err
	}

	return summaries, total, nil
}

func (s *Service) UpdateItem(
	ctx context.Context,
	id, actorID string,
	actorIsAdmin bool,
	req UpdateItemRequest,
) (*Detail, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authorize(item, actorID, actorIsAdmin); err != nil {
		return nil, err
	}

	if req.Price != nil {
		if err := checkPrice(*req.Price); err != nil {
			return nil, err
		}
		item.Price = *req.Price
	}
	if req.Title != nil {
		item.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Condition != nil {
		item.Condition = *req.Condition
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.TradeMethod != nil {
		item.TradeMethod = *req.TradeMethod
	}
	if req.CategoryID != nil {
		item.CategoryID = req.CategoryID
	}
	if req.LocationCity != nil {
		item.LocationCity = strings.TrimSpace(*req.LocationCity)
	}
	if req.Latitude != nil {
		item.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		item.Longitude = req.Longitude
	}

	err = s.repo.WithTx(ctx, func(repo Repository) error {
		if err := repo.Update(ctx, item); err != nil {
			return err
		}
		if req.ImageURLs != nil {
			if err := repo.ReplaceImages(ctx, id, *req.ImageURLs); err != nil {
				return err
			}
		}
		if req.Tags != nil {
			return repo.ReplaceTags(ctx, id, toTags(*req.Tags))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.detail(ctx, id)
}

// DeleteItem retires the listing. Rows are kept for orders and
// conversations that still reference them.
func (s *Service) DeleteItem(
	ctx context.Context,
	id, actorID string,
	actorIsAdmin bool,
) error {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := authorize(item, actorID, actorIsAdmin); err != nil {
		return err
	}

	return s.repo.SetStatus(ctx, id, StatusInactive)
}

func (s *Service) AddFavorite(ctx context.Context, userID, itemID string) error {
	return s.repo.AddFavorite(ctx, userID, itemID)
}

func (s *Service) RemoveFavorite(ctx context.Context, userID, itemID string) error {
	return s.repo.RemoveFavorite(ctx, userID, itemID)
}

func (s *Service) Favorites(
	ctx context.Context,
	userID string,
	page core.PageParams,
) ([]ItemSummary, int, error) {
	page.Normalize()

	items, total, err := s.repo.ListFavorites(ctx, userID, page)
	if err != nil {
		return nil, 0, err
	}

	summaries, err := s.summaries(ctx, items)
	if err != nil {
		return nil, 0, err
	}

	return summaries, total, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) ListTags(ctx context.Context) ([]Tag, error) {
	return s.repo.ListTags(ctx)
}

func (s *Service) summaries(ctx context.Context, items []Item) ([]ItemSummary, error) {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	covers, err := s.repo.CoverImages(ctx, ids)
	if err != nil {
		return nil, err
	}

	return ToItemSummaries(items, covers), nil
}

func authorize(item *Item, actorID string, actorIsAdmin bool) error {
	if actorIsAdmin || item.SellerID == actorID {
		return nil
	}
	return fmt.Errorf("not the seller of this item: %w", core.ErrForbidden)
}

func checkPrice(p decimal.Decimal) error {
	if p.LessThan(minPrice) || p.GreaterThan(maxPrice) {
		return fmt.Errorf(
			"price must be between 0.01 and 999999.99: %w",
			core.ErrInvalidInput,
		)
	}
	if !p.Equal(p.Round(2)) {
		return fmt.Errorf(
			"price must have at most two decimal places: %w",
			core.ErrInvalidInput,
		)
	}
	return nil
}

func clampFeed(limit int) int {
	if limit < 1 {
		return defaultFeedLimit
	}
	if limit > maxFeedLimit {
		return maxFeedLimit
	}
	return limit
}

func toTags(names []string) []Tag {
	seen := make(map[string]bool, len(names))
	tags := make([]Tag, 0, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		slug := Slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		tags = append(tags, Tag{Name: name, Slug: slug})
	}

	return tags
}

// Slugify lower-cases s and collapses every run of non alphanumerics
// into a single hyphen.
func Slugify(s string) string {
	var b strings.Builder
	hyphen := false

	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
