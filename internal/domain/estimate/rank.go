package estimate

import (
	"sort"

	"github.com/Strob0t/ForgeShift/internal/domain/inventory"
)

// RiskScore ranks a project for deep analysis. Higher means the
// project is more likely to hide migration effort and should be
// analyzed first.
func RiskScore(p *inventory.Project) int {
	score := 0
	if p.Facts.HasCI.IsTrue() {
		score += 5
	}
	if !p.Archived {
		score += 3
	}
	if p.DefaultBranch == "" {
		score += 4
	}
	totalMRs := p.Facts.MRCounts.Total()
	if totalMRs > 100 {
		score += 2
	}
	if totalMRs > 500 {
		score += 2
	}
	totalIssues := p.Facts.IssueCounts.Total()
	if totalIssues > 200 {
		score++
	}
	if totalIssues > 1000 {
		score += 2
	}
	return score
}

// RankTop returns up to n project ids ordered by descending risk
// score, ties broken by namespace path for a stable order.
func RankTop(projects []inventory.Project, n int) []int64 {
	type ranked struct {
		id    int64
		path  string
		score int
	}
	all := make([]ranked, 0, len(projects))
	for i := range projects {
		all = append(all, ranked{
			id:    projects[i].ID,
			path:  projects[i].PathWithNamespace,
			score: RiskScore(&projects[i]),
		})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].path < all[j].path
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	ids := make([]int64, len(all))
	for i, r := range all {
		ids[i] = r.id
	}
	return ids
}
