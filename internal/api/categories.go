package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sadopc/duet/internal/model"
)

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var records []CategoryRecord
	if err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &records); err != nil {
		return nil, err
	}
	categories := make([]model.Category, 0, len(records))
	for _, r := range records {
		categories = append(categories, r.Category())
	}
	return categories, nil
}

// CreateCategory inserts a schedule category holding color.
func (c *Client) CreateCategory(ctx context.Context, name string, color model.Color) (*model.Category, error) {
	body := CategoryCreateRequest{
		Name:         name,
		Color:        string(color),
		CategoryType: string(model.CategoryTypeSchedule),
	}
	var record *CategoryRecord
	if err := c.do(ctx, http.MethodPost, "/categories", nil, body, &record); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, &Error{Kind: KindDecode, Op: "POST /api/v1/categories", Status: http.StatusOK, Err: errNoData}
	}
	cat := record.Category()
	return &cat, nil
}

// UpdateCategory renames category id. A 200 without a record returns nil.
func (c *Client) UpdateCategory(ctx context.Context, id int64, name string, color model.Color) (*model.Category, error) {
	body := CategoryUpdateRequest{
		CategoryID:   id,
		Name:         name,
		Color:        string(color),
		CategoryType: string(model.CategoryTypeSchedule),
	}
	var record *CategoryRecord
	if err := c.do(ctx, http.MethodPatch, "/categories", nil, body, &record); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	cat := record.Category()
	return &cat, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	q := url.Values{"categoryId": []string{strconv.FormatInt(id, 10)}}
	return c.do(ctx, http.MethodDelete, "/categories", q, nil, nil)
}
