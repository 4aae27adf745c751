package actions

import (
	"context"
	"fmt"
	"os"

	"github.com/Strob0t/ForgeShift/internal/domain"
	"github.com/Strob0t/ForgeShift/internal/domain/action"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

// releaseCreate publishes a release for an already-pushed tag and
// records the source-id mapping asset uploads need.
type releaseCreate struct {
	deps     Deps
	sourceID string
	params   dest.ReleaseParams
}

func newReleaseCreate(s action.Spec, d Deps) (Action, error) {
	tag, err := requireString(s, "tag")
	if err != nil {
		return nil, err
	}
	sourceID := sourceKey(s, "source_id")
	if sourceID == "" {
		sourceID = tag
	}
	return &releaseCreate{
		deps:     d,
		sourceID: sourceID,
		params: dest.ReleaseParams{
			TagName:         tag,
			Name:            s.StringParam("name"),
			Body:            s.StringParam("body"),
			TargetCommitish: s.StringParam("target_commitish"),
			Draft:           s.BoolParam("draft"),
			Prerelease:      s.BoolParam("prerelease"),
		},
	}, nil
}

func (a *releaseCreate) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	rel, err := a.deps.Dest.CreateRelease(ctx, run.Owner, run.Repo, a.params)
	if err != nil {
		return nil, err
	}
	run.MapID(action.MappingRelease, a.sourceID, rel.ID)
	return &Effect{
		Outputs:      map[string]any{"id": rel.ID, "tag": rel.TagName, "html_url": rel.HTMLURL},
		RollbackData: map[string]any{"id": rel.ID},
	}, nil
}

func (a *releaseCreate) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	run.MapID(action.MappingRelease, a.sourceID, 0)
	return &Simulation{
		Outcome: action.WouldCreate,
		Message: fmt.Sprintf("would publish release for tag %q", a.params.TagName),
	}, nil
}

func (a *releaseCreate) Reversible() bool { return true }

func (a *releaseCreate) Rollback(ctx context.Context, run *action.Context, data map[string]any) error {
	id := intFromAny(data["id"])
	if id == 0 {
		return nil
	}
	return a.deps.Dest.DeleteRelease(ctx, run.Owner, run.Repo, id)
}

// releaseAssetUpload attaches one exported asset file to a release
// created earlier in the plan.
type releaseAssetUpload struct {
	irreversible
	deps      Deps
	releaseID string
	name      string
	path      string
}

func newReleaseAssetUpload(s action.Spec, d Deps) (Action, error) {
	releaseID := sourceKey(s, "release_id")
	if releaseID == "" {
		return nil, fmt.Errorf("action %s: parameter %q is required", s.ID, "release_id")
	}
	name, err := requireString(s, "name")
	if err != nil {
		return nil, err
	}
	path, err := requireString(s, "path")
	if err != nil {
		return nil, err
	}
	return &releaseAssetUpload{deps: d, releaseID: releaseID, name: name, path: path}, nil
}

func (a *releaseAssetUpload) resolve(run *action.Context) (int64, error) {
	id, ok := run.LookupID(action.MappingRelease, a.releaseID)
	if !ok {
		return 0, domain.NewStepError(domain.CategoryValidation, "release_asset_upload", 0,
			fmt.Sprintf("Could not resolve release id for source release %s", a.releaseID))
	}
	return id, nil
}

func (a *releaseAssetUpload) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	id, err := a.resolve(run)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil, domain.NewStepError(domain.CategoryValidation, "release_asset_upload", 0,
			fmt.Sprintf("asset file %s is not readable: %v", a.path, err))
	}
	if err := a.deps.Dest.UploadReleaseAsset(ctx, run.Owner, run.Repo, id, a.name, data); err != nil {
		return nil, err
	}
	return &Effect{Outputs: map[string]any{
		"name":       a.name,
		"size_bytes": len(data),
		"release_id": id,
	}}, nil
}

func (a *releaseAssetUpload) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	id, err := a.resolve(run)
	if err != nil {
		return &Simulation{Outcome: action.WouldFail, Message: err.Error()}, nil
	}
	info, statErr := os.Stat(a.path)
	if statErr != nil {
		return &Simulation{
			Outcome: action.WouldFail,
			Message: fmt.Sprintf("asset file %s is missing from the export tree", a.path),
		}, nil
	}
	msg := fmt.Sprintf("would upload %s (%d bytes)", a.name, info.Size())
	if id > 0 {
		msg += fmt.Sprintf(" to release %d", id)
	}
	return &Simulation{Outcome: action.WouldExecute, Message: msg}, nil
}
