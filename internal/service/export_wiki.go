package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// wikiExtensions maps the source page format to a file extension.
var wikiExtensions = map[string]string{
	"markdown": ".md",
	"rdoc":     ".rdoc",
	"asciidoc": ".adoc",
	"org":      ".org",
}

func (e *Exporter) exportWiki(ctx context.Context, run *exportRun, dir string) (map[string]any, error) {
	p := run.project
	if !e.src.Capabilities().Wiki || !p.WikiEnabled {
		return map[string]any{"status": "skipped", "reason": "wiki disabled"}, nil
	}

	pages, err := e.src.ListWikiPages(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list wiki pages: %w", err)
	}
	if err := writeJSONFile(filepath.Join(dir, "pages.json"), pages); err != nil {
		return nil, err
	}

	for _, page := range pages {
		full, err := e.src.GetWikiPage(ctx, p.ID, page.Slug)
		if err != nil {
			return nil, fmt.Errorf("wiki page %q: %w", page.Slug, err)
		}

		ext, ok := wikiExtensions[full.Format]
		if !ok {
			ext = ".txt"
		}
		path, err := safeSlugPath(dir, full.Slug, ext)
		if err != nil {
			e.log.Warn("wiki page skipped", "project", p.PathWithNamespace, "slug", full.Slug, "error", err)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("wiki page dir: %w", err)
		}
		if err := writeBytesFile(path, []byte(full.Content)); err != nil {
			return nil, err
		}
	}

	return map[string]any{"pages": len(pages)}, nil
}
