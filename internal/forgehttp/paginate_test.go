package forgehttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

// pagedServer serves items in pages of the requested size, emitting
// X-Next-Page and optionally X-Total like the GitLab REST API.
func pagedServer(t *testing.T, items []string, withTotal bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		if perPage <= 0 {
			perPage = 20
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page <= 0 {
			page = 1
		}
		start := (page - 1) * perPage
		end := start + perPage
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}
		if withTotal {
			w.Header().Set("X-Total", strconv.Itoa(len(items)))
		}
		if end < len(items) {
			w.Header().Set("X-Next-Page", strconv.Itoa(page+1))
		}
		fmt.Fprintf(w, "[%s]", joinJSON(items[start:end]))
	}))
}

func joinJSON(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ","
		}
		out += it
	}
	return out
}

func makeItems(n int) []string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"id":%d}`, i+1)
	}
	return items
}

func TestPaginateFollowsNextPage(t *testing.T) {
	server := pagedServer(t, makeItems(25), false)
	defer server.Close()

	c := testClient(t, server.URL, nil)
	var ids []int
	seen, err := c.Paginate(context.Background(), "/api/v4/projects", nil, 10, 0, func(raw json.RawMessage) error {
		var item struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(raw, &item); err != nil {
			return err
		}
		ids = append(ids, item.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if seen != 25 || len(ids) != 25 {
		t.Errorf("seen = %d, ids = %d, want 25", seen, len(ids))
	}
	if ids[0] != 1 || ids[24] != 25 {
		t.Errorf("order broken: first %d last %d", ids[0], ids[24])
	}
}

func TestPaginateHonorsMaxItems(t *testing.T) {
	server := pagedServer(t, makeItems(50), false)
	defer server.Close()

	c := testClient(t, server.URL, nil)
	seen, err := c.Paginate(context.Background(), "/api/v4/projects", nil, 10, 13, func(json.RawMessage) error { return nil })
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if seen != 13 {
		t.Errorf("seen = %d, want 13", seen)
	}
}

func TestPaginateStopSentinel(t *testing.T) {
	server := pagedServer(t, makeItems(30), false)
	defer server.Close()

	c := testClient(t, server.URL, nil)
	count := 0
	seen, err := c.Paginate(context.Background(), "/api/v4/projects", nil, 10, 0, func(json.RawMessage) error {
		count++
		if count == 5 {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		t.Fatalf("stop sentinel should not surface: %v", err)
	}
	if seen != 4 {
		t.Errorf("seen = %d, want 4 (item returning ErrStop is not counted)", seen)
	}
}

func TestPaginateIntoDecodes(t *testing.T) {
	server := pagedServer(t, makeItems(7), false)
	defer server.Close()

	type project struct {
		ID int `json:"id"`
	}
	c := testClient(t, server.URL, nil)
	projects, err := PaginateInto[project](context.Background(), c, "/api/v4/projects", nil, 3, 0)
	if err != nil {
		t.Fatalf("paginate into: %v", err)
	}
	if len(projects) != 7 {
		t.Errorf("len = %d, want 7", len(projects))
	}
}

func TestCountUsesXTotal(t *testing.T) {
	server := pagedServer(t, makeItems(4321), true)
	defer server.Close()

	c := testClient(t, server.URL, nil)
	n, exact, err := c.Count(context.Background(), "/api/v4/projects/1/issues", nil, 1000)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if !exact {
		t.Error("X-Total present, count should be exact")
	}
	if n != 4321 {
		t.Errorf("count = %d, want 4321", n)
	}
}

func TestCountFallbackHitsCeiling(t *testing.T) {
	server := pagedServer(t, makeItems(12), false)
	defer server.Close()

	c := testClient(t, server.URL, nil)

	// Small collection: the walk completes and the count is exact.
	n, exact, err := c.Count(context.Background(), "/api/v4/projects/1/issues", nil, 1000)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 12 || !exact {
		t.Errorf("count = %d exact=%v, want 12 exact", n, exact)
	}

	// A ceiling below the collection size caps the walk and the result
	// is reported inexact, which the caller renders as ">N".
	n, exact, err = c.Count(context.Background(), "/api/v4/projects/1/issues", nil, 5)
	if err != nil {
		t.Fatalf("count with ceiling: %v", err)
	}
	if n != 5 || exact {
		t.Errorf("count = %d exact=%v, want 5 inexact", n, exact)
	}
}
