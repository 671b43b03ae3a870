// AngelaMos | 2026
// dto.go

package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

type CreateItemRequest struct {
	Title        string          `json:"title"         validate:"required,min=3,max=200"`
	Description  string          `json:"description"   validate:"max=5000"`
	Price        decimal.Decimal `json:"price"`
	Condition    string          `json:"condition"     validate:"required,oneof=NEW LIKE_NEW GOOD FAIR"`
	Quantity     int             `json:"quantity"      validate:"omitempty,min=1,max=999"`
	TradeMethod  string          `json:"trade_method"  validate:"required,oneof=PICKUP SHIPPING BOTH"`
	CategoryID   *string         `json:"category_id"   validate:"omitempty,uuid"`
	LocationCity string          `json:"location_city" validate:"max=100"`
	Latitude     *float64        `json:"latitude"      validate:"omitempty,latitude"`
	Longitude    *float64        `json:"longitude"     validate:"omitempty,longitude"`
	ImageURLs    []string        `json:"image_urls"    validate:"max=10,dive,url"`
	Tags         []string        `json:"tags"          validate:"max=10,dive,min=1,max=50"`
}

// UpdateItemRequest leaves nil fields untouched. ImageURLs and Tags
// replace the whole set when present.
type UpdateItemRequest struct {
	Title        *string          `json:"title"         validate:"omitempty,min=3,max=200"`
	Description  *string          `json:"description"   validate:"omitempty,max=5000"`
	Price        *decimal.Decimal `json:"price"`
	Condition    *string          `json:"condition"     validate:"omitempty,oneof=NEW LIKE_NEW GOOD FAIR"`
	Quantity     *int             `json:"quantity"      validate:"omitempty,min=1,max=999"`
	TradeMethod  *string          `json:"trade_method"  validate:"omitempty,oneof=PICKUP SHIPPING BOTH"`
	CategoryID   *string          `json:"category_id"   validate:"omitempty,uuid"`
	LocationCity *string          `json:"location_city" validate:"omitempty,max=100"`
	Latitude     *float64         `json:"latitude"      validate:"omitempty,latitude"`
	Longitude    *float64         `json:"longitude"     validate:"omitempty,longitude"`
	ImageURLs    *[]string        `json:"image_urls"    validate:"omitempty,max=10,dive,url"`
	Tags         *[]string        `json:"tags"          validate:"omitempty,max=10,dive,min=1,max=50"`
}

type SearchParams struct {
	core.PageParams
	Keyword    string
	CategoryID string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	City       string
	SortBy     string
	Direction  string
}

type ImageResponse struct {
	URL       string `json:"url"`
	SortOrder int    `json:"sort_order"`
}

type CategoryResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	ParentID *string `json:"parent_id,omitempty"`
}

type TagResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type ItemResponse struct {
	ID           string            `json:"id"`
	SellerID     string            `json:"seller_id"`
	SellerName   string            `json:"seller_name"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Price        decimal.Decimal   `json:"price"`
	Currency     string            `json:"currency"`
	Condition    string            `json:"condition"`
	Quantity     int               `json:"quantity"`
	Status       string            `json:"status"`
	TradeMethod  string            `json:"trade_method"`
	LocationCity string            `json:"location_city"`
	Latitude     *float64          `json:"latitude,omitempty"`
	Longitude    *float64          `json:"longitude,omitempty"`
	ViewCount    int64             `json:"view_count"`
	Category     *CategoryResponse `json:"category,omitempty"`
	Images       []ImageResponse   `json:"images"`
	Tags         []TagResponse     `json:"tags"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ItemSummary is the list form: first image only, no description.
type ItemSummary struct {
	ID           string          `json:"id"`
	SellerID     string          `json:"seller_id"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Condition    string          `json:"condition"`
	Status       string          `json:"status"`
	LocationCity string          `json:"location_city"`
	ViewCount    int64           `json:"view_count"`
	CoverImage   string          `json:"cover_image,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func ToCategoryResponse(c *Category) *CategoryResponse {
	if c == nil {
		return nil
	}
	return &CategoryResponse{
		ID:       c.ID,
		Name:     c.Name,
		Slug:     c.Slug,
		ParentID: c.ParentID,
	}
}

func ToTagResponse(t Tag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

func ToItemResponse(d *Detail) ItemResponse {
	it := d.Item

	images := make([]ImageResponse, len(d.Images))
	for i, img := range d.Images {
		images[i] = ImageResponse{URL: img.URL, SortOrder: img.SortOrder}
	}

	tags := make([]TagResponse, len(d.Tags))
	for i, t := range d.Tags {
		tags[i] = ToTagResponse(t)
	}

	return ItemResponse{
		ID:           it.ID,
		SellerID:     it.SellerID,
		SellerName:   it.SellerName,
		Title:        it.Title,
		Description:  it.Description,
		Price:        it.Price,
		Currency:     it.Currency,
		Condition:    it.Condition,
		Quantity:     it.Quantity,
		Status:       it.Status,
		TradeMethod:  it.TradeMethod,
		LocationCity: it.LocationCity,
		Latitude:     it.Latitude,
		Longitude:    it.Longitude,
		ViewCount:    it.ViewCount,
		Category:     ToCategoryResponse(d.Category),
		Images:       images,
		Tags:         tags,
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
	}
}

func ToItemSummaries(items []Item, covers map[string]string) []ItemSummary {
	out := make([]ItemSummary, len(items))
	for i, it := range items {
		out[i] = ItemSummary{
			ID:           it.ID,
			SellerID:     it.SellerID,
			Title:        it.Title,
			Price:        it.Price,
			Currency:     it.Currency,
			Condition:    it.Condition,
			Status:       it.Status,
			LocationCity: it.LocationCity,
			ViewCount:    it.ViewCount,
			CoverImage:   covers[it.ID],
			CreatedAt:    it.CreatedAt,
		}
	}
	return out
}
