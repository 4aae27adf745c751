package actions

import (
	"fmt"
	"sort"

	"github.com/Strob0t/ForgeShift/internal/domain/action"
)

// Action type tags as they appear in plan files. The set is closed:
// plan validation rejects anything not listed here.
const (
	TypeRepoCreate        = "repo_create"
	TypeRepoPush          = "repo_push"
	TypeLFSSync           = "lfs_sync"
	TypeGitmodulesCommit  = "gitmodules_commit"
	TypeWorkflowCommit    = "workflow_commit"
	TypeEnvironmentCreate = "environment_create"
	TypeSecretSet         = "secret_set"
	TypeVariableSet       = "variable_set"
	TypeLabelCreate       = "label_create"
	TypeMilestoneCreate   = "milestone_create"
	TypeIssueCreate       = "issue_create"
	TypeIssueCommentAdd   = "issue_comment_add"
	TypePRCreate          = "pr_create"
	TypePRCommentAdd      = "pr_comment_add"
	TypeWikiPush          = "wiki_push"
	TypeReleaseCreate     = "release_create"
	TypeReleaseAssetUp    = "release_asset_upload"
	TypePackageMigrate    = "package_migrate"
	TypeProtectionSet     = "branch_protection_set"
	TypeCollaboratorAdd   = "collaborator_add"
	TypeWebhookCreate     = "webhook_create"
	TypeMetadataCommit    = "metadata_commit"
)

// Constructor builds an executable action from its plan entry,
// rejecting entries whose static parameters are malformed.
type Constructor func(s action.Spec, d Deps) (Action, error)

var constructors = map[string]Constructor{
	TypeRepoCreate:        newRepoCreate,
	TypeRepoPush:          newRepoPush,
	TypeLFSSync:           newLFSSync,
	TypeGitmodulesCommit:  newGitmodulesCommit,
	TypeWorkflowCommit:    newWorkflowCommit,
	TypeEnvironmentCreate: newEnvironmentCreate,
	TypeSecretSet:         newSecretSet,
	TypeVariableSet:       newVariableSet,
	TypeLabelCreate:       newLabelCreate,
	TypeMilestoneCreate:   newMilestoneCreate,
	TypeIssueCreate:       newIssueCreate,
	TypeIssueCommentAdd:   newIssueCommentAdd,
	TypePRCreate:          newPRCreate,
	TypePRCommentAdd:      newPRCommentAdd,
	TypeWikiPush:          newWikiPush,
	TypeReleaseCreate:     newReleaseCreate,
	TypeReleaseAssetUp:    newReleaseAssetUpload,
	TypePackageMigrate:    newPackageMigrate,
	TypeProtectionSet:     newProtectionSet,
	TypeCollaboratorAdd:   newCollaboratorAdd,
	TypeWebhookCreate:     newWebhookCreate,
	TypeMetadataCommit:    newMetadataCommit,
}

// Build constructs the action for one plan entry. An unregistered type
// is a validation error.
func Build(s action.Spec, d Deps) (Action, error) {
	c, ok := constructors[s.Type]
	if !ok {
		return nil, fmt.Errorf("action %s: unknown type %q", s.ID, s.Type)
	}
	return c(s, d)
}

// Known reports whether t is a registered action type.
func Known(t string) bool {
	_, ok := constructors[t]
	return ok
}

// Types returns the registered type tags in sorted order.
func Types() []string {
	types := make([]string, 0, len(constructors))
	for t := range constructors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ValidatePlan runs the structural plan checks, then constructs every
// entry so unknown types and missing static parameters fail before
// anything executes.
func ValidatePlan(p action.Plan, d Deps) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for _, s := range p {
		if _, err := Build(s, d); err != nil {
			return fmt.Errorf("invalid plan: %w", err)
		}
	}
	return nil
}
