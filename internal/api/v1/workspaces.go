package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
)

type AddWorkspaceMemberInput struct {
	Body struct {
		UserID uuid.UUID `json:"user_id" doc:"User to add"`
		Role   string    `json:"role" doc:"owner, director, manager, member or observer"`
	}
}

type MembershipOutput struct {
	Body MembershipBody
}

type ListMembersOutput struct {
	Body []MembershipBody
}

// RegisterWorkspaceAdminRoutes registers membership management. The server
// mounts these behind a manager-or-above role check; the engine enforces the
// same rule on its own.
func RegisterWorkspaceAdminRoutes(api huma.API, engine ProjectEngine) {
	huma.Register(api, huma.Operation{
		OperationID: "add-workspace-member",
		Method:      http.MethodPut,
		Path:        "/workspace/members",
		Summary:     "Grant a role in the current workspace",
		Description: "Creates or replaces the membership. Callers cannot grant a role above their own.",
		Tags:        []string{"Workspace"},
	}, func(ctx context.Context, input *AddWorkspaceMemberInput) (*MembershipOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}
		workspaceID, err := workspaceFrom(ctx)
		if err != nil {
			return nil, err
		}

		m, err := engine.AddWorkspaceMember(ctx, actorID, workspaceID, input.Body.UserID, input.Body.Role)
		if err != nil {
			return nil, toHTTPError(err, "failed to add workspace member")
		}

		return &MembershipOutput{Body: newMembershipBody(m)}, nil
	})
}

func RegisterWorkspaceRoutes(api huma.API, engine ProjectEngine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-workspace-members",
		Method:      http.MethodGet,
		Path:        "/workspace/members",
		Summary:     "List members of the current workspace",
		Tags:        []string{"Workspace"},
	}, func(ctx context.Context, _ *struct{}) (*ListMembersOutput, error) {
		actorID, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}
		workspaceID, err := workspaceFrom(ctx)
		if err != nil {
			return nil, err
		}

		members, err := engine.ListWorkspaceMembers(ctx, actorID, workspaceID)
		if err != nil {
			return nil, toHTTPError(err, "failed to list workspace members")
		}

		out := &ListMembersOutput{Body: make([]MembershipBody, 0, len(members))}
		for _, m := range members {
			out.Body = append(out.Body, newMembershipBody(m))
		}
		return out, nil
	})
}
