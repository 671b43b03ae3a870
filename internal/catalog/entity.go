// AngelaMos | 2026
// entity.go

package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusActive          = "ACTIVE"
	StatusInactive        = "INACTIVE"
	StatusPendingApproval = "PENDING_APPROVAL"
)

const (
	ConditionNew     = "NEW"
	ConditionLikeNew = "LIKE_NEW"
	ConditionGood    = "GOOD"
	ConditionFair    = "FAIR"
)

const (
	TradePickup   = "PICKUP"
	TradeShipping = "SHIPPING"
	TradeBoth     = "BOTH"
)

const DefaultCurrency = "NZD"

type Item struct {
	ID           string          `db:"id"`
	SellerID     string          `db:"seller_id"`
	SellerName   string          `db:"seller_name"`
	CategoryID   *string         `db:"category_id"`
	Title        string          `db:"title"`
	Description  string          `db:"description"`
	Price        decimal.Decimal `db:"price"`
	Currency     string          `db:"currency"`
	Condition    string          `db:"condition"`
	Quantity     int             `db:"quantity"`
	Status       string          `db:"status"`
	TradeMethod  string          `db:"trade_method"`
	LocationCity string          `db:"location_city"`
	Latitude     *float64        `db:"latitude"`
	Longitude    *float64        `db:"longitude"`
	ViewCount    int64           `db:"view_count"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (i *Item) IsActive() bool {
	return i.Status == StatusActive
}

type Image struct {
	ID        string `db:"id"`
	ItemID    string `db:"item_id"`
	URL       string `db:"url"`
	SortOrder int    `db:"sort_order"`
}

type Category struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Slug      string    `db:"slug"`
	ParentID  *string   `db:"parent_id"`
	SortOrder int       `db:"sort_order"`
	CreatedAt time.Time `db:"created_at"`
}

type Tag struct {
	ID     string `db:"id"`
	ItemID string `db:"item_id"`
	Name   string `db:"name"`
	Slug   string `db:"slug"`
}

// Detail is an item with its owned associations loaded.
type Detail struct {
	Item     Item
	Images   []Image
	Tags     []Tag
	Category *Category
}
