// AngelaMos | 2026
// repository.go

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id string) (*Item, error)
	Update(ctx context.Context, item *Item) error
	SetStatus(ctx context.Context, id, status string) error
	IncrementViewCount(ctx context.Context, id string) (int64, error)
	Search(ctx context.Context, params SearchParams) ([]Item, int, error)
	Latest(ctx context.Context, limit int) ([]Item, error)
	Popular(ctx context.Context, limit int) ([]Item, error)
	ListBySeller(ctx context.Context, sellerID string, page core.PageParams) ([]Item, int, error)

	ReplaceImages(ctx context.Context, itemID string, urls []string) error
	ReplaceTags(ctx context.Context, itemID string, tags []Tag) error
	Images(ctx context.Context, itemID string) ([]Image, error)
	Tags(ctx context.Context, itemID string) ([]Tag, error)
	CoverImages(ctx context.Context, itemIDs []string) (map[string]string, error)

	GetCategory(ctx context.Context, id string) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ListTags(ctx context.Context) ([]Tag, error)

	AddFavorite(ctx context.Context, userID, itemID string) error
	RemoveFavorite(ctx context.Context, userID, itemID string) error
	ListFavorites(ctx context.Context, userID string, page core.PageParams) ([]Item, int, error)

	WithTx(ctx context.Context, fn func(Repository) error) error
}

type repository struct {
	db   core.DBTX
	pool *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db, pool: db}
}

const itemSelect = `
	SELECT i.id, i.seller_id, u.display_name AS seller_name, i.category_id,
	       i.title, i.description, i.price, i.currency, i.condition,
	       i.quantity, i.status, i.trade_method, i.location_city,
	       i.latitude, i.longitude, i.view_count, i.created_at, i.updated_at
	FROM items i
	JOIN users u ON u.id = i.seller_id`

var sortColumns = map[string]string{
	SortCreatedAt: "i.created_at",
	SortPrice:     "i.price",
	SortViewCount: "i.view_count",
}

func (r *repository) WithTx(
	ctx context.Context,
	fn func(Repository) error,
) error {
	return core.InTx(ctx, r.pool, func(tx *sqlx.Tx) error {
		return fn(&repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Create(ctx context.Context, item *Item) error {
	query := `
		INSERT INTO items (
			id, seller_id, category_id, title, description, price, currency,
			condition, quantity, status, trade_method, location_city,
			latitude, longitude
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING view_count, created_at, updated_at`

	err := r.db.GetContext(ctx, item, query,
		item.ID,
		item.SellerID,
		item.CategoryID,
		item.Title,
		item.Description,
		item.Price,
		item.Currency,
		item.Condition,
		item.Quantity,
		item.Status,
		item.TradeMethod,
		item.LocationCity,
		item.Latitude,
		item.Longitude,
	)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("category does not exist: %w", core.ErrInvalidInput)
		}
		return fmt.Errorf("create item: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Item, error) {
	query := itemSelect + ` WHERE i.id = $1`

	var item Item
	err := r.db.GetContext(ctx, &item, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get item: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	return &item, nil
}

func (r *repository) Update(ctx context.Context, item *Item) error {
	query := `
		UPDATE items
		SET category_id = $2, title = $3, description = $4, price = $5,
		    condition = $6, quantity = $7, trade_method = $8,
		    location_city = $9, latitude = $10, longitude = $11,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &item.UpdatedAt, query,
		item.ID,
		item.CategoryID,
		item.Title,
		item.Description,
		item.Price,
		item.Condition,
		item.Quantity,
		item.TradeMethod,
		item.LocationCity,
		item.Latitude,
		item.Longitude,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update item: %w", core.ErrNotFound)
	}
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("category does not exist: %w", core.ErrInvalidInput)
		}
		return fmt.Errorf("update item: %w", err)
	}

	return nil
}

func (r *repository) SetStatus(ctx context.Context, id, status string) error {
	query := `UPDATE items SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("set item status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set item status: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set item status: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) IncrementViewCount(ctx context.Context, id string) (int64, error) {
	query := `
		UPDATE items SET view_count = view_count + 1
		WHERE id = $1
		RETURNING view_count`

	var count int64
	err := r.db.GetContext(ctx, &count, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("increment views: %w", core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}

	return count, nil
}

func (r *repository) Search(
	ctx context.Context,
	params SearchParams,
) ([]Item, int, error) {
	conditions := []string{"i.status = $1"}
	args := []any{StatusActive}
	argPos := 2

	if params.Keyword != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(i.title ILIKE $%d OR i.description ILIKE $%d)",
			argPos, argPos,
		))
		args = append(args, "%"+core.EscapeLike(params.Keyword)+"%")
		argPos++
	}

	if params.CategoryID != "" {
		conditions = append(conditions, fmt.Sprintf("i.category_id = $%d", argPos))
		args = append(args, params.CategoryID)
		argPos++
	}

	if params.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("i.price >= $%d", argPos))
		args = append(args, *params.MinPrice)
		argPos++
	}

	if params.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("i.price <= $%d", argPos))
		args = append(args, *params.MaxPrice)
		argPos++
	}

	if params.City != "" {
		conditions = append(conditions, fmt.Sprintf("i.location_city ILIKE $%d", argPos))
		args = append(args, "%"+core.EscapeLike(params.City)+"%")
		argPos++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM items i ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	column, ok := sortColumns[params.SortBy]
	if !ok {
		column = sortColumns[SortCreatedAt]
	}
	direction := "DESC"
	if params.Direction == DirectionAsc {
		direction = "ASC"
	}

	query := fmt.Sprintf(
		"%s %s ORDER BY %s %s, i.id LIMIT $%d OFFSET $%d",
		itemSelect, where, column, direction, argPos, argPos+1,
	)
	args = append(args, params.PageSize, params.Offset())

	var items []Item
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("search items: %w", err)
	}

	return items, total, nil
}

func (r *repository) Latest(ctx context.Context, limit int) ([]Item, error) {
	return r.listActive(ctx, "i.created_at DESC", limit)
}

func (r *repository) Popular(ctx context.Context, limit int) ([]Item, error) {
	return r.listActive(ctx, "i.view_count DESC, i.created_at DESC", limit)
}

func (r *repository) listActive(
	ctx context.Context,
	order string,
	limit int,
) ([]Item, error) {
	query := itemSelect + ` WHERE i.status = $1 ORDER BY ` + order + ` LIMIT $2`

	var items []Item
	if err := r.db.SelectContext(ctx, &items, query, StatusActive, limit); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	return items, nil
}

func (r *repository) ListBySeller(
	ctx context.Context,
	sellerID string,
	page core.PageParams,
) ([]Item, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM items WHERE seller_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, sellerID); err != nil {
		return nil, 0, fmt.Errorf("count seller items: %w", err)
	}

	query := itemSelect + `
		WHERE i.seller_id = $1
		ORDER BY i.created_at DESC
		LIMIT $2 OFFSET $3`

	var items []Item
	err := r.db.SelectContext(ctx, &items, query, sellerID, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list seller items: %w", err)
	}

	return items, total, nil
}

func (r *repository) ReplaceImages(
	ctx context.Context,
	itemID string,
	urls []string,
) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM item_images WHERE item_id = $1`, itemID,
	); err != nil {
		return fmt.Errorf("clear images: %w", err)
	}

	query := `INSERT INTO item_images (item_id, url, sort_order) VALUES ($1, $2, $3)`
	for i, url := range urls {
		if _, err := r.db.ExecContext(ctx, query, itemID, url, i); err != nil {
			return fmt.Errorf("insert image: %w", err)
		}
	}

	return nil
}

// ReplaceTags links the item to exactly tags, creating any tag whose
// slug does not exist yet.
func (r *repository) ReplaceTags(
	ctx context.Context,
	itemID string,
	tags []Tag,
) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM item_tags WHERE item_id = $1`, itemID,
	); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}

	query := `
		WITH t AS (
			INSERT INTO tags (name, slug) VALUES ($2, $3)
			ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
			RETURNING id
		)
		INSERT INTO item_tags (item_id, tag_id)
		SELECT $1, id FROM t
		ON CONFLICT DO NOTHING`

	for _, tag := range tags {
		if _, err := r.db.ExecContext(ctx, query, itemID, tag.Name, tag.Slug); err != nil {
			return fmt.Errorf("link tag %s: %w", tag.Slug, err)
		}
	}

	return nil
}

func (r *repository) Images(ctx context.Context, itemID string) ([]Image, error) {
	query := `
		SELECT id, item_id, url, sort_order
		FROM item_images
		WHERE item_id = $1
		ORDER BY sort_order`

	var images []Image
	if err := r.db.SelectContext(ctx, &images, query, itemID); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	return images, nil
}

func (r *repository) Tags(ctx context.Context, itemID string) ([]Tag, error) {
	query := `
		SELECT t.id, it.item_id, t.name, t.slug
		FROM item_tags it
		JOIN tags t ON t.id = it.tag_id
		WHERE it.item_id = $1
		ORDER BY t.name`

	var tags []Tag
	if err := r.db.SelectContext(ctx, &tags, query, itemID); err != nil {
		return nil, fmt.Errorf("list item tags: %w", err)
	}

	return tags, nil
}

func (r *repository) CoverImages(
	ctx context.Context,
	itemIDs []string,
) (map[string]string, error) {
	covers := make(map[string]string, len(itemIDs))
	if len(itemIDs) == 0 {
		return covers, nil
	}

	query := `
		SELECT DISTINCT ON (item_id) item_id, url
		FROM item_images
		WHERE item_id = ANY($1)
		ORDER BY item_id, sort_order`

	var rows []struct {
		ItemID string `db:"item_id"`
		URL    string `db:"url"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, itemIDs); err != nil {
		return nil, fmt.Errorf("cover images: %w", err)
	}

	for _, row := range rows {
		covers[row.ItemID] = row.URL
	}

	return covers, nil
}

func (r *repository) GetCategory(ctx context.Context, id string) (*Category, error) {
	query := `
		SELECT id, name, slug, parent_id, sort_order, created_at
		FROM categories
		WHERE id = $1`

	var c Category
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get category: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}

	return &c, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]Category, error) {
	query := `
		SELECT id, name, slug, parent_id, sort_order, created_at
		FROM categories
		ORDER BY sort_order, name`

	var categories []Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	return categories, nil
}

func (r *repository) ListTags(ctx context.Context) ([]Tag, error) {
	query := `SELECT id, name, slug FROM tags ORDER BY name`

	var tags []Tag
	if err := r.db.SelectContext(ctx, &tags, query); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	return tags, nil
}

func (r *repository) AddFavorite(ctx context.Context, userID, itemID string) error {
	query := `
		INSERT INTO favorites (user_id, item_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, userID, itemID); err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("add favorite: %w", core.ErrNotFound)
		}
		return fmt.Errorf("add favorite: %w", err)
	}

	return nil
}

func (r *repository) RemoveFavorite(ctx context.Context, userID, itemID string) error {
	query := `DELETE FROM favorites WHERE user_id = $1 AND item_id = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, itemID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}

	return nil
}

func (r *repository) ListFavorites(
	ctx context.Context,
	userID string,
	page core.PageParams,
) ([]Item, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM favorites WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count favorites: %w", err)
	}

	query := itemSelect + `
		JOIN favorites f ON f.item_id = i.id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2 OFFSET $3`

	var items []Item
	err := r.db.SelectContext(ctx, &items, query, userID, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list favorites: %w", err)
	}

	return items, total, nil
}
