package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/pipeline"
)

type CreateCardInput struct {
	ConnectionID string `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
	Body         struct {
		ColumnID    uuid.UUID      `json:"column_id" doc:"Column ID"`
		Title       string         `json:"title" minLength:"1" maxLength:"200" doc:"Card title"`
		Description string         `json:"description,omitempty" doc:"Card description"`
		Priority    string         `json:"priority,omitempty" enum:"none,low,medium,high,urgent" doc:"Priority (default medium)"`
		Labels      []domain.Label `json:"labels,omitempty" doc:"Labels"`
		Assignees   []uuid.UUID    `json:"assignees,omitempty" doc:"Assigned user IDs"`
		DueDate     *time.Time     `json:"due_date,omitempty" doc:"Due date"`
		Index       *int           `json:"index,omitempty" minimum:"0" doc:"Insert position; appends when omitted"`
	}
}

type CardOutput struct {
	Body *domain.Card
}

type UpdateCardInput struct {
	CardID       uuid.UUID `path:"cardID" doc:"Card ID"`
	ConnectionID string    `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
	Body         struct {
		Title        *string         `json:"title,omitempty" maxLength:"200" doc:"Card title"`
		Description  *string         `json:"description,omitempty" doc:"Card description"`
		Priority     *string         `json:"priority,omitempty" enum:"none,low,medium,high,urgent" doc:"Priority"`
		Labels       *[]domain.Label `json:"labels,omitempty" doc:"Replace the labels"`
		Assignees    *[]uuid.UUID    `json:"assignees,omitempty" doc:"Replace the assignees"`
		DueDate      *time.Time      `json:"due_date,omitempty" doc:"Due date"`
		ClearDueDate bool            `json:"clear_due_date,omitempty" doc:"Remove the due date"`
	}
}

type MoveCardInput struct {
	CardID       uuid.UUID `path:"cardID" doc:"Card ID"`
	ConnectionID string    `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
	Body         struct {
		ColumnID uuid.UUID `json:"column_id" doc:"Destination column ID"`
		Index    int       `json:"index" minimum:"0" doc:"Target position among the destination's other cards"`
	}
}

type DeleteCardInput struct {
	CardID       uuid.UUID `path:"cardID" doc:"Card ID"`
	ConnectionID string    `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
}

func RegisterCardRoutes(api huma.API, boards Boards, conns Connections) {
	huma.Register(api, huma.Operation{
		OperationID: "create-card",
		Method:      http.MethodPost,
		Path:        "/cards",
		Summary:     "Create a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *CreateCardInput) (*CardOutput, error) {
		res, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindCardCreate, uuid.Nil, pipeline.CardCreate{
			ColumnID:    input.Body.ColumnID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Priority:    input.Body.Priority,
			Labels:      input.Body.Labels,
			Assignees:   input.Body.Assignees,
			DueDate:     input.Body.DueDate,
			Index:       input.Body.Index,
		})
		if err != nil {
			return nil, err
		}
		return &CardOutput{Body: res.Card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-card",
		Method:      http.MethodPut,
		Path:        "/cards/{cardID}",
		Summary:     "Update a card's fields",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *UpdateCardInput) (*CardOutput, error) {
		res, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindCardUpdate, uuid.Nil, pipeline.CardUpdate{
			CardID:       input.CardID,
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			Priority:     input.Body.Priority,
			Labels:       input.Body.Labels,
			Assignees:    input.Body.Assignees,
			DueDate:      input.Body.DueDate,
			ClearDueDate: input.Body.ClearDueDate,
		})
		if err != nil {
			return nil, err
		}
		return &CardOutput{Body: res.Card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-card",
		Method:      http.MethodPut,
		Path:        "/cards/{cardID}/move",
		Summary:     "Move a card within or between columns",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *MoveCardInput) (*CardOutput, error) {
		res, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindCardMove, uuid.Nil, pipeline.CardMove{
			CardID:   input.CardID,
			ColumnID: input.Body.ColumnID,
			Index:    input.Body.Index,
		})
		if err != nil {
			return nil, err
		}
		return &CardOutput{Body: res.Card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-card",
		Method:      http.MethodDelete,
		Path:        "/cards/{cardID}",
		Summary:     "Delete a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *DeleteCardInput) (*struct{}, error) {
		if _, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindCardDelete, uuid.Nil, pipeline.CardDelete{
			CardID: input.CardID,
		}); err != nil {
			return nil, err
		}
		return nil, nil
	})
}
