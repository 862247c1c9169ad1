package rexel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// PaginationMeta describes one page of a list.
type PaginationMeta struct {
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
}

// PaginatedResponse is one page of T items.
type PaginatedResponse[T any] struct {
	Data []T            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// GetPaginated fetches one page of a list endpoint. Backend pagination
// metadata is used when present; a plain list gets metadata computed from
// its length with last_page = ceil(total/limit). The items are returned as
// received in both cases.
func GetPaginated[T any](ctx context.Context, c *Client, path string, page, limit int, opts ...RequestOption) (*PaginatedResponse[T], error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}

	opts = append(opts,
		WithParam("page", strconv.Itoa(page)),
		WithParam("limit", strconv.Itoa(limit)),
	)
	resp, err := c.Get(ctx, path, opts...)
	if err != nil {
		return nil, err
	}

	items, meta, found := splitPage(resp)

	out := &PaginatedResponse[T]{Data: []T{}}
	if len(items) > 0 && !bytes.Equal(items, []byte("null")) {
		if err := json.Unmarshal(items, &out.Data); err != nil {
			return nil, c.fail(nil, http.MethodGet, path, ClassifyRoute(path), nil, nil,
				fmt.Errorf("decode paginated data: %w", err))
		}
	}

	if !found {
		meta = rawMeta{}
		meta.Total.set(len(out.Data))
	}
	out.Meta = meta.resolve(page, limit)
	return out, nil
}

// splitPage locates the item list and pagination metadata of a list
// response. It understands {data, meta}, the same pair nested inside an
// envelope's data, and paginators that put their counters at the top level.
func splitPage(resp *Response) (items json.RawMessage, meta rawMeta, found bool) {
	body := resp.Body
	if len(body) == 0 {
		body = resp.Data
	}
	top := objectFields(body)

	if raw, ok := top["meta"]; ok && resp.Enveloped {
		if json.Unmarshal(raw, &meta) == nil && meta.Total.ok {
			return resp.Data, meta, true
		}
	}

	nested := objectFields(resp.Data)
	if raw, ok := nested["meta"]; ok {
		meta = rawMeta{}
		if json.Unmarshal(raw, &meta) == nil && meta.Total.ok {
			return nested["data"], meta, true
		}
	}

	if _, ok := top["total"]; ok && resp.Enveloped {
		meta = rawMeta{}
		if json.Unmarshal(body, &meta) == nil && meta.Total.ok {
			return resp.Data, meta, true
		}
	}

	return resp.Data, rawMeta{}, false
}

func objectFields(raw json.RawMessage) map[string]json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil
	}
	return fields
}

// rawMeta accepts both snake_case and camelCase counters, as numbers or
// numeric strings.
type rawMeta struct {
	Total            flexInt `json:"total"`
	PerPage          flexInt `json:"per_page"`
	PerPageCamel     flexInt `json:"perPage"`
	CurrentPage      flexInt `json:"current_page"`
	CurrentPageCamel flexInt `json:"currentPage"`
	LastPage         flexInt `json:"last_page"`
	LastPageCamel    flexInt `json:"lastPage"`
}

func (m rawMeta) resolve(page, limit int) PaginationMeta {
	out := PaginationMeta{
		Total:       m.Total.v,
		PerPage:     firstOf(m.PerPage, m.PerPageCamel, limit),
		CurrentPage: firstOf(m.CurrentPage, m.CurrentPageCamel, page),
	}
	out.LastPage = firstOf(m.LastPage, m.LastPageCamel, lastPage(out.Total, out.PerPage))
	return out
}

func firstOf(a, b flexInt, fallback int) int {
	switch {
	case a.ok:
		return a.v
	case b.ok:
		return b.v
	default:
		return fallback
	}
}

// lastPage is ceil(total/perPage), never below 1.
func lastPage(total, perPage int) int {
	if perPage < 1 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

type flexInt struct {
	v  int
	ok bool
}

func (f *flexInt) set(v int) {
	f.v, f.ok = v, true
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("pagination counter %q: %w", s, err)
	}
	f.set(int(n))
	return nil
}
