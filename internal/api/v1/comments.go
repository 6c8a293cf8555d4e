package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/pipeline"
)

type ListCommentsInput struct {
	CardID uuid.UUID `path:"cardID" doc:"Card ID"`
}

type ListCommentsOutput struct {
	Body []*domain.Comment
}

type CreateCommentInput struct {
	CardID       uuid.UUID `path:"cardID" doc:"Card ID"`
	ConnectionID string    `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
	Body         struct {
		Content  string      `json:"content" minLength:"1" maxLength:"2000" doc:"Comment text"`
		Mentions []uuid.UUID `json:"mentions,omitempty" doc:"Mentioned board members"`
	}
}

type CommentOutput struct {
	Body *domain.Comment
}

type UpdateCommentInput struct {
	CommentID    uuid.UUID `path:"commentID" doc:"Comment ID"`
	ConnectionID string    `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
	Body         struct {
		Content  string      `json:"content" minLength:"1" maxLength:"2000" doc:"Comment text"`
		Mentions []uuid.UUID `json:"mentions,omitempty" doc:"Mentioned board members"`
	}
}

type DeleteCommentInput struct {
	CommentID    uuid.UUID `path:"commentID" doc:"Comment ID"`
	ConnectionID string    `header:"X-Connection-ID" doc:"Caller's socket, skipped by the broadcast"`
}

func RegisterCommentRoutes(api huma.API, boards Boards, conns Connections) {
	huma.Register(api, huma.Operation{
		OperationID: "list-card-comments",
		Method:      http.MethodGet,
		Path:        "/cards/{cardID}/comments",
		Summary:     "List a card's comments, oldest first",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, input *ListCommentsInput) (*ListCommentsOutput, error) {
		actor, err := callerID(ctx)
		if err != nil {
			return nil, err
		}
		comments, err := boards.Comments(ctx, actor, input.CardID)
		if err != nil {
			return nil, toHTTPError(err, "failed to list comments")
		}
		return &ListCommentsOutput{Body: comments}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-comment",
		Method:      http.MethodPost,
		Path:        "/cards/{cardID}/comments",
		Summary:     "Comment on a card",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, input *CreateCommentInput) (*CommentOutput, error) {
		res, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindCommentCreate, uuid.Nil, pipeline.CommentCreate{
			CardID:   input.CardID,
			Content:  input.Body.Content,
			Mentions: input.Body.Mentions,
		})
		if err != nil {
			return nil, err
		}
		return &CommentOutput{Body: res.Comment}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-comment",
		Method:      http.MethodPut,
		Path:        "/comments/{commentID}",
		Summary:     "Edit your comment",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, input *UpdateCommentInput) (*CommentOutput, error) {
		res, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindCommentUpdate, uuid.Nil, pipeline.CommentUpdate{
			CommentID: input.CommentID,
			Content:   input.Body.Content,
			Mentions:  input.Body.Mentions,
		})
		if err != nil {
			return nil, err
		}
		return &CommentOutput{Body: res.Comment}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-comment",
		Method:      http.MethodDelete,
		Path:        "/comments/{commentID}",
		Summary:     "Delete a comment",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, input *DeleteCommentInput) (*struct{}, error) {
		if _, err := apply(ctx, boards, conns, input.ConnectionID, pipeline.KindCommentDelete, uuid.Nil, pipeline.CommentDelete{
			CommentID: input.CommentID,
		}); err != nil {
			return nil, err
		}
		return nil, nil
	})
}
