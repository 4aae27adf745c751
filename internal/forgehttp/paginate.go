package forgehttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Strob0t/ForgeShift/internal/domain"
)

const maxPerPage = 100

// ErrStop halts pagination early without reporting an error.
var ErrStop = errors.New("stop pagination")

// Paginate walks a collection endpoint following the X-Next-Page
// header, invoking fn once per raw item. perPage is clamped to the
// forge maximum of 100; maxItems of zero means unbounded. It returns
// the number of items seen.
func (c *Client) Paginate(ctx context.Context, path string, query url.Values, perPage, maxItems int, fn func(json.RawMessage) error) (int, error) {
	if perPage <= 0 || perPage > maxPerPage {
		perPage = maxPerPage
	}
	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	q.Set("per_page", strconv.Itoa(perPage))

	page := "1"
	seen := 0
	for page != "" {
		q.Set("page", page)
		resp, err := c.Get(ctx, path, q)
		if err != nil {
			return seen, err
		}
		var items []json.RawMessage
		if err := json.Unmarshal(resp.Body, &items); err != nil {
			return seen, &Error{Category: domain.CategoryInternal, Status: resp.Status, Method: "GET", Path: path, Err: fmt.Errorf("decode page: %w", err)}
		}
		for _, item := range items {
			if err := fn(item); err != nil {
				if errors.Is(err, ErrStop) {
					return seen, nil
				}
				return seen, err
			}
			seen++
			if maxItems > 0 && seen >= maxItems {
				return seen, nil
			}
		}
		if len(items) == 0 {
			break
		}
		page = resp.Header.Get("X-Next-Page")
	}
	return seen, nil
}

// PaginateInto collects every page of a collection endpoint into a
// slice of T.
func PaginateInto[T any](ctx context.Context, c *Client, path string, query url.Values, perPage, maxItems int) ([]T, error) {
	var out []T
	_, err := c.Paginate(ctx, path, query, perPage, maxItems, func(raw json.RawMessage) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode item: %w", err)
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count reports the size of a collection. It reads the X-Total header
// from a single per_page=1 probe; when the forge omits the header it
// falls back to walking single-item pages up to ceiling, reporting the
// result as inexact once the ceiling is hit.
func (c *Client) Count(ctx context.Context, path string, query url.Values, ceiling int) (int, bool, error) {
	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	q.Set("per_page", "1")
	q.Set("page", "1")

	resp, err := c.Get(ctx, path, q)
	if err != nil {
		return 0, false, err
	}
	if total := resp.Header.Get("X-Total"); total != "" {
		n, err := strconv.Atoi(total)
		if err == nil && n >= 0 {
			return n, true, nil
		}
	}

	// No X-Total: count single-item pages until the collection ends or
	// the ceiling is reached.
	count, err := c.countByWalking(ctx, path, q, resp, ceiling)
	if err != nil {
		return count, false, err
	}
	if ceiling > 0 && count >= ceiling {
		return ceiling, false, nil
	}
	return count, true, nil
}

func (c *Client) countByWalking(ctx context.Context, path string, q url.Values, first *Response, ceiling int) (int, error) {
	count := 0
	resp := first
	for {
		var items []json.RawMessage
		if err := json.Unmarshal(resp.Body, &items); err != nil {
			return count, &Error{Category: domain.CategoryInternal, Status: resp.Status, Method: "GET", Path: path, Err: fmt.Errorf("decode page: %w", err)}
		}
		count += len(items)
		if ceiling > 0 && count >= ceiling {
			return count, nil
		}
		next := resp.Header.Get("X-Next-Page")
		if next == "" || len(items) == 0 {
			return count, nil
		}
		q.Set("page", next)
		var err error
		resp, err = c.Get(ctx, path, q)
		if err != nil {
			return count, err
		}
	}
}
