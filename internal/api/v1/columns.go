package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/pipeline"
)

type CreateColumnInput struct {
	BoardID      uuid.UUID `path:"boardID" doc:"Board ID"`
	ConnectionID string    `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
	Body         struct {
		Title    string `json:"title" minLength:"1" maxLength:"50" doc:"Column title"`
		Color    string `json:"color,omitempty" doc:"Column color"`
		WIPLimit *int   `json:"wip_limit,omitempty" minimum:"1" doc:"Work-in-progress limit"`
		Index    *int   `json:"index,omitempty" minimum:"0" doc:"Insert position; appends when omitted"`
	}
}

type ColumnOutput struct {
	Body *domain.Column
}

type UpdateColumnInput struct {
	ColumnID     uuid.UUID `path:"columnID" doc:"Column ID"`
	ConnectionID string    `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
	Body         struct {
		Title         *string `json:"title,omitempty" maxLength:"50" doc:"Column title"`
		Color         *string `json:"color,omitempty" doc:"Column color"`
		WIPLimit      *int    `json:"wip_limit,omitempty" minimum:"1" doc:"Work-in-progress limit"`
		ClearWIPLimit bool    `json:"clear_wip_limit,omitempty" doc:"Remove the work-in-progress limit"`
	}
}

type MoveColumnInput struct {
	ColumnID     uuid.UUID `path:"columnID" doc:"Column ID"`
	ConnectionID string    `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
	Body         struct {
		Index int `json:"index" minimum:"0" doc:"Target position among the board's other columns"`
	}
}

type DeleteColumnInput struct {
	ColumnID     uuid.UUID `path:"columnID" doc:"Column ID"`
	ConnectionID string    `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
}

func RegisterColumnRoutes(api huma.API, boards Boards, conns Connections) {
	huma.Register(api, huma.Operation{
		OperationID: "create-column",
		Method:      http.MethodPost,
		Path:        "/boards/{boardID}/columns",
		Summary:     "Create a column",
		Tags:        []string{"Columns"},
	}, func(ctx context.Context, input *CreateColumnInput) (*ColumnOutput, error) {
		res, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindColumnCreate, input.BoardID, pipeline.ColumnCreate{
			Title:    input.Body.Title,
			Color:    input.Body.Color,
			WIPLimit: input.Body.WIPLimit,
			Index:    input.Body.Index,
		})
		if err != nil {
			return nil, err
		}
		return &ColumnOutput{Body: res.Column}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-column",
		Method:      http.MethodPut,
		Path:        "/columns/{columnID}",
		Summary:     "Update a column",
		Tags:        []string{"Columns"},
	}, func(ctx context.Context, input *UpdateColumnInput) (*ColumnOutput, error) {
		res, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindColumnUpdate, uuid.Nil, pipeline.ColumnUpdate{
			ColumnID:      input.ColumnID,
			Title:         input.Body.Title,
			Color:         input.Body.Color,
			WIPLimit:      input.Body.WIPLimit,
			ClearWIPLimit: input.Body.ClearWIPLimit,
		})
		if err != nil {
			return nil, err
		}
		return &ColumnOutput{Body: res.Column}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-column",
		Method:      http.MethodPut,
		Path:        "/columns/{columnID}/move",
		Summary:     "Reorder a column",
		Tags:        []string{"Columns"},
	}, func(ctx context.Context, input *MoveColumnInput) (*ColumnOutput, error) {
		res, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindColumnMove, uuid.Nil, pipeline.ColumnMove{
			ColumnID: input.ColumnID,
			Index:    input.Body.Index,
		})
		if err != nil {
			return nil, err
		}
		return &ColumnOutput{Body: res.Column}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-column",
		Method:      http.MethodDelete,
		Path:        "/columns/{columnID}",
		Summary:     "Delete a column and its cards",
		Tags:        []string{"Columns"},
	}, func(ctx context.Context, input *DeleteColumnInput) (*struct{}, error) {
		if _, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindColumnDelete, uuid.Nil, pipeline.ColumnDelete{
			ColumnID: input.ColumnID,
		}); err != nil {
			return nil, err
		}
		return nil, nil
	})
}
