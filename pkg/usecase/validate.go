package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
)

// Issue kinds reported by ValidateGraph
const (
	IssueEntityEmbedding = "entity-embedding-dimension"
	IssueEdgeEmbedding   = "edge-embedding-dimension"
	IssueEdgeEndpoint    = "edge-dangling-endpoint"
	IssueEdgePartial     = "edge-partial-description"
	IssueAliasGroup      = "alias-group-missing"
	IssueAliasCanonical  = "alias-canonical-outside-group"
)

// ValidationIssue represents a single inconsistency found during a graph
// consistency check
type ValidationIssue struct {
	Kind     string
	EntityID types.EntityID
	EdgeID   types.RelationshipID
	Message  string
}

// ValidationResult holds the results of a graph consistency check
type ValidationResult struct {
	Entities int
	Edges    int
	Issues   []ValidationIssue
}

// HasIssues returns true if there are any validation issues
func (r *ValidationResult) HasIssues() bool {
	return len(r.Issues) > 0
}

// AddIssue adds a validation issue to the result
func (r *ValidationResult) AddIssue(issue ValidationIssue) {
	r.Issues = append(r.Issues, issue)
}

// ValidateGraph checks one user's graph for states the write paths never
// produce on their own: embeddings with the wrong dimension, edges whose
// endpoints no longer resolve, edges with half-written descriptions, and
// alias records that break the partition. It reads the whole graph and
// does NOT modify any data.
func (uc *UseCases) ValidateGraph(ctx context.Context, userID types.UserID) (*ValidationResult, error) {
	if err := userID.Validate(); err != nil {
		return nil, err
	}

	result := &ValidationResult{}

	entities, err := uc.repo.Entity().ListByUser(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list entities", goerr.V("userID", userID))
	}
	result.Entities = len(entities)

	known := make(map[types.EntityID]bool, len(entities))
	for _, entity := range entities {
		known[entity.ID] = true
	}

	checkedGroups := make(map[types.AliasGroupID]bool)
	for _, entity := range entities {
		if len(entity.DescriptionEmbedding) != model.EmbeddingDimension {
			result.AddIssue(ValidationIssue{
				Kind:     IssueEntityEmbedding,
				EntityID: entity.ID,
				Message: fmt.Sprintf("description embedding of %q has %d dimensions, want %d",
					entity.Name, len(entity.DescriptionEmbedding), model.EmbeddingDimension),
			})
		}

		if err := uc.checkAlias(ctx, userID, entity, known, checkedGroups, result); err != nil {
			return nil, err
		}

		edges, err := uc.repo.Relationship().ListBySource(ctx, userID, entity.ID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list edges",
				goerr.V("userID", userID),
				goerr.V("entityID", entity.ID))
		}
		result.Edges += len(edges)

		for _, edge := range edges {
			uc.checkEdge(edge, known, result)
		}
	}

	return result, nil
}

// checkAlias verifies the entity's alias membership: the group must exist
// and its canonical entity must be a live member
func (uc *UseCases) checkAlias(ctx context.Context, userID types.UserID, entity *model.Entity, known map[types.EntityID]bool, checkedGroups map[types.AliasGroupID]bool, result *ValidationResult) error {
	membership, err := uc.repo.Alias().GetMembership(ctx, userID, entity.ID)
	if err != nil {
		if errors.Is(err, types.ErrAliasNotFound) {
			return nil
		}
		return goerr.Wrap(err, "failed to read alias membership",
			goerr.V("userID", userID),
			goerr.V("entityID", entity.ID))
	}

	if checkedGroups[membership.GroupID] {
		return nil
	}
	checkedGroups[membership.GroupID] = true

	group, err := uc.repo.Alias().GetGroup(ctx, userID, membership.GroupID)
	if err != nil {
		if errors.Is(err, types.ErrAliasGroupNotFound) {
			result.AddIssue(ValidationIssue{
				Kind:     IssueAliasGroup,
				EntityID: entity.ID,
				Message:  fmt.Sprintf("membership of %q points at group %s which does not exist", entity.Name, membership.GroupID),
			})
			return nil
		}
		return goerr.Wrap(err, "failed to read alias group",
			goerr.V("userID", userID),
			goerr.V("groupID", membership.GroupID))
	}

	members, err := uc.repo.Alias().ListMembers(ctx, userID, group.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to list alias members",
			goerr.V("userID", userID),
			goerr.V("groupID", group.ID))
	}

	canonicalIsMember := false
	for _, member := range members {
		if member.EntityID == group.CanonicalEntityID {
			canonicalIsMember = true
			break
		}
	}
	if !canonicalIsMember || !known[group.CanonicalEntityID] {
		result.AddIssue(ValidationIssue{
			Kind:     IssueAliasCanonical,
			EntityID: group.CanonicalEntityID,
			Message:  fmt.Sprintf("canonical entity of group %s is not one of its members", group.ID),
		})
	}

	return nil
}

// checkEdge verifies embedding dimensions, endpoint resolution, and that
// description text and embedding are either both present or both absent
func (uc *UseCases) checkEdge(edge *model.Relationship, known map[types.EntityID]bool, result *ValidationResult) {
	if len(edge.LabelEmbedding) != model.EmbeddingDimension {
		result.AddIssue(ValidationIssue{
			Kind:    IssueEdgeEmbedding,
			EdgeID:  edge.ID,
			Message: fmt.Sprintf("label embedding of %q has %d dimensions, want %d", edge.Label, len(edge.LabelEmbedding), model.EmbeddingDimension),
		})
	}

	if !known[edge.TargetEntityID] {
		result.AddIssue(ValidationIssue{
			Kind:    IssueEdgeEndpoint,
			EdgeID:  edge.ID,
			Message: fmt.Sprintf("edge %q points at target entity %s which does not exist", edge.Label, edge.TargetEntityID),
		})
	}

	hasText := edge.Description != ""
	hasEmbedding := len(edge.DescriptionEmbedding) > 0
	if hasText != hasEmbedding {
		result.AddIssue(ValidationIssue{
			Kind:    IssueEdgePartial,
			EdgeID:  edge.ID,
			Message: fmt.Sprintf("edge %q has a description %s but an embedding %s", edge.Label, presence(hasText), presence(hasEmbedding)),
		})
	}
	if hasEmbedding && len(edge.DescriptionEmbedding) != model.EmbeddingDimension {
		result.AddIssue(ValidationIssue{
			Kind:    IssueEdgeEmbedding,
			EdgeID:  edge.ID,
			Message: fmt.Sprintf("description embedding of %q has %d dimensions, want %d", edge.Label, len(edge.DescriptionEmbedding), model.EmbeddingDimension),
		})
	}
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "absent"
}
