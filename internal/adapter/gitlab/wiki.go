package gitlab

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// ListWikiPages returns page metadata without content. Content is fetched
// per page so that a large wiki never loads into memory at once.
func (p *Provider) ListWikiPages(ctx context.Context, projectID int64) ([]source.WikiPage, error) {
	query := url.Values{"with_content": {"0"}}
	pages, err := forgehttp.PaginateInto[source.WikiPage](ctx, p.client, projectPath(projectID, "/wikis"), query, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("gitlab list wiki pages: %w", err)
	}
	return pages, nil
}

func (p *Provider) GetWikiPage(ctx context.Context, projectID int64, slug string) (*source.WikiPage, error) {
	path := projectPath(projectID, "/wikis/"+url.PathEscape(slug))
	var page source.WikiPage
	if err := p.client.GetJSON(ctx, path, nil, &page); err != nil {
		return nil, fmt.Errorf("gitlab wiki page %q: %w", slug, err)
	}
	return &page, nil
}
