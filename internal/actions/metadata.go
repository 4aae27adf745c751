package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Strob0t/ForgeShift/internal/domain/action"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

const defaultMetadataPath = ".github/migration-metadata.json"

// metadataCommit preserves the migration record in the destination
// repository: where the project came from, when it moved, and the live
// id mappings collected during the run. Placed at the end of a plan it
// captures every mapping earlier actions recorded.
type metadataCommit struct {
	irreversible
	deps    Deps
	path    string
	content string
	branch  string
	message string
}

func newMetadataCommit(s action.Spec, d Deps) (Action, error) {
	content, err := requireString(s, "content")
	if err != nil {
		return nil, err
	}
	path := s.StringParam("path")
	if path == "" {
		path = defaultMetadataPath
	}
	message := s.StringParam("message")
	if message == "" {
		message = "Record migration metadata"
	}
	return &metadataCommit{
		deps:    d,
		path:    path,
		content: content,
		branch:  s.StringParam("branch"),
		message: message,
	}, nil
}

// render merges the run's id mappings into the planner-supplied
// document. Content that is not a JSON object is committed untouched.
func (a *metadataCommit) render(run *action.Context) []byte {
	var doc map[string]any
	if err := json.Unmarshal([]byte(a.content), &doc); err != nil {
		return []byte(a.content)
	}
	if len(run.IDMappings) > 0 {
		doc["id_mappings"] = run.IDMappings
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return []byte(a.content)
	}
	return append(out, '\n')
}

func (a *metadataCommit) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	err := a.deps.Dest.PutFile(ctx, run.Owner, run.Repo, a.path, dest.CommitFileParams{
		Message: a.message,
		Content: a.render(run),
		Branch:  a.branch,
	})
	if err != nil {
		return nil, err
	}
	return &Effect{Outputs: map[string]any{"path": a.path}}, nil
}

func (a *metadataCommit) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	return &Simulation{
		Outcome: action.WouldCreate,
		Message: fmt.Sprintf("would commit migration metadata to %s", a.path),
	}, nil
}
