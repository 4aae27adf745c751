package service

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// exportedPackage is one registry package with its file descriptors.
// Binaries themselves are not migrated; sizes and checksums let the
// operator verify a manual re-publish.
type exportedPackage struct {
	source.Package
	Files []source.PackageFile `json:"files"`
}

func (e *Exporter) exportPackages(ctx context.Context, run *exportRun, dir string) (map[string]any, error) {
	p := run.project
	if !e.src.Capabilities().Packages || !p.PackagesEnabled {
		return map[string]any{"status": "skipped", "reason": "packages disabled"}, nil
	}

	packages, err := e.src.ListPackages(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}

	exported := make([]exportedPackage, 0, len(packages))
	files, oversize := 0, 0
	for _, pkg := range packages {
		pkgFiles, err := e.src.ListPackageFiles(ctx, p.ID, pkg.ID)
		if err != nil {
			return nil, fmt.Errorf("package %s files: %w", pkg.Name, err)
		}
		files += len(pkgFiles)
		for _, f := range pkgFiles {
			if f.Size > e.opts.PackageSizeCeiling {
				oversize++
			}
		}
		exported = append(exported, exportedPackage{Package: pkg, Files: pkgFiles})
	}

	if err := writeJSONFile(filepath.Join(dir, "packages.json"), exported); err != nil {
		return nil, err
	}

	if len(exported) > 0 {
		run.summary.Gaps = append(run.summary.Gaps,
			fmt.Sprintf("%d package(s) must be re-published manually; binaries are not migrated", len(exported)))
	}
	if oversize > 0 {
		run.summary.Gaps = append(run.summary.Gaps,
			fmt.Sprintf("%d package file(s) exceed the size ceiling and were not downloaded", oversize))
	}
	return map[string]any{
		"packages": len(exported),
		"files":    files,
		"oversize": oversize,
	}, nil
}
