package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/pipeline"
	"github.com/AbhinayAmbati/kanbana/internal/realtime"
)

type ListBoardsOutput struct {
	Body []*domain.Board
}

type GetBoardInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
}

type GetBoardOutput struct {
	Body *pipeline.Snapshot
}

type CreateBoardInput struct {
	ConnectionID string `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
	Body         struct {
		WorkspaceID uuid.UUID `json:"workspace_id" doc:"Workspace ID"`
		Title       string    `json:"title" minLength:"1" maxLength:"100" doc:"Board title"`
		Description string    `json:"description,omitempty" maxLength:"500" doc:"Board description"`
	}
}

type BoardOutput struct {
	Body *domain.Board
}

type UpdateBoardInput struct {
	BoardID      uuid.UUID `path:"boardID" doc:"Board ID"`
	ConnectionID string    `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
	Body         struct {
		Title       *string `json:"title,omitempty" maxLength:"100" doc:"Board title"`
		Description *string `json:"description,omitempty" maxLength:"500" doc:"Board description"`
		Archived    *bool   `json:"archived,omitempty" doc:"Archive or restore the board"`
	}
}

type ArchiveBoardInput struct {
	BoardID      uuid.UUID `path:"boardID" doc:"Board ID"`
	ConnectionID string    `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
}

type SetMemberInput struct {
	BoardID      uuid.UUID `path:"boardID" doc:"Board ID"`
	UserID       uuid.UUID `path:"userID" doc:"Member user ID"`
	ConnectionID string    `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
	Body         struct {
		Role string `json:"role" enum:"admin,member,viewer" doc:"Member role"`
	}
}

type RemoveMemberInput struct {
	BoardID      uuid.UUID `path:"boardID" doc:"Board ID"`
	UserID       uuid.UUID `path:"userID" doc:"Member user ID"`
	ConnectionID string    `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
}

type ListActivityInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
	Limit   int       `query:"limit" minimum:"0" maximum:"200" doc:"Page size (default 50)"`
	Offset  int       `query:"offset" minimum:"0" doc:"Entries to skip"`
}

type ListActivityOutput struct {
	Body []*domain.Activity
}

type GetPresenceOutput struct {
	Body []realtime.PresenceEntry
}

func RegisterBoardRoutes(api huma.API, boards Boards, presence Presence, conns Connections) {
	huma.Register(api, huma.Operation{
		OperationID: "list-boards",
		Method:      http.MethodGet,
		Path:        "/boards",
		Summary:     "List boards visible to the caller",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, _ *struct{}) (*ListBoardsOutput, error) {
		actor, err := callerID(ctx)
		if err != nil {
			return nil, err
		}
		list, err := boards.Boards(ctx, actor)
		if err != nil {
			return nil, toHTTPError(err, "failed to list boards")
		}
		return &ListBoardsOutput{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}",
		Summary:     "Get a board with its ordered columns and cards",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		actor, err := callerID(ctx)
		if err != nil {
			return nil, err
		}
		snap, err := boards.Snapshot(ctx, actor, input.BoardID)
		if err != nil {
			return nil, toHTTPError(err, "failed to get board")
		}
		return &GetBoardOutput{Body: snap}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-board",
		Method:      http.MethodPost,
		Path:        "/boards",
		Summary:     "Create a board in a workspace",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *CreateBoardInput) (*BoardOutput, error) {
		res, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindBoardCreate, uuid.Nil, pipeline.BoardCreate{
			WorkspaceID: input.Body.WorkspaceID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
		})
		if err != nil {
			return nil, err
		}
		return &BoardOutput{Body: res.Board}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-board",
		Method:      http.MethodPut,
		Path:        "/boards/{boardID}",
		Summary:     "Update a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *UpdateBoardInput) (*BoardOutput, error) {
		res, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindBoardUpdate, input.BoardID, pipeline.BoardUpdate{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Archived:    input.Body.Archived,
		})
		if err != nil {
			return nil, err
		}
		return &BoardOutput{Body: res.Board}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-board",
		Method:      http.MethodDelete,
		Path:        "/boards/{boardID}",
		Summary:     "Archive a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *ArchiveBoardInput) (*struct{}, error) {
		if _, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindBoardArchive, input.BoardID, pipeline.BoardArchive{}); err != nil {
			return nil, err
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-board-member",
		Method:      http.MethodPut,
		Path:        "/boards/{boardID}/members/{userID}",
		Summary:     "Add a member or change their role",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *SetMemberInput) (*BoardOutput, error) {
		res, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindBoardMemberSet, input.BoardID, pipeline.MemberSet{
			UserID: input.UserID,
			Role:   input.Body.Role,
		})
		if err != nil {
			return nil, err
		}
		return &BoardOutput{Body: res.Board}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-board-member",
		Method:      http.MethodDelete,
		Path:        "/boards/{boardID}/members/{userID}",
		Summary:     "Remove a member",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *RemoveMemberInput) (*struct{}, error) {
		if _, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindBoardMemberRemove, input.BoardID, pipeline.MemberRemove{
			UserID: input.UserID,
		}); err != nil {
			return nil, err
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-board-activity",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}/activity",
		Summary:     "List a board's audit trail, newest first",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *ListActivityInput) (*ListActivityOutput, error) {
		actor, err := callerID(ctx)
		if err != nil {
			return nil, err
		}
		acts, err := boards.Activities(ctx, actor, input.BoardID, input.Limit, input.Offset)
		if err != nil {
			return nil, toHTTPError(err, "failed to list activity")
		}
		return &ListActivityOutput{Body: acts}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board-presence",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}/presence",
		Summary:     "List users currently viewing a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetPresenceOutput, error) {
		actor, err := callerID(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := boards.Authorize(ctx, actor, input.BoardID, domain.RoleViewer); err != nil {
			return nil, toHTTPError(err, "failed to get presence")
		}
		users, err := presence.ActiveUsers(ctx, input.BoardID)
		if err != nil {
			return nil, toHTTPError(err, "failed to get presence")
		}
		return &GetPresenceOutput{Body: users}, nil
	})
}
