package service

import (
	"context"

	"github.com/taskflow/taskflow-backend/internal/task/repository"
	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/logger"
	"github.com/taskflow/taskflow-backend/pkg/permissions"
)

// CommentStore is the persistence surface for comments.
// Satisfied by repository.CommentRepository.
type CommentStore interface {
	Create(ctx context.Context, comment *repository.TaskComment) error
	GetByID(ctx context.Context, id string) (*repository.TaskComment, error)
	ListByTask(ctx context.Context, taskID string) ([]*repository.TaskComment, error)
	Delete(ctx context.Context, id string) error
}

// CommentService owns task comment mutations
type CommentService struct {
	comments CommentStore
	tasks    TaskStore
	logger   *logger.Logger
}

// NewCommentService creates a new comment service
func NewCommentService(comments CommentStore, tasks TaskStore, log *logger.Logger) *CommentService {
	return &CommentService{
		comments: comments,
		tasks:    tasks,
		logger:   log.WithComponent("comment-service"),
	}
}

// CreateCommentInput carries a comment creation request
type CreateCommentInput struct {
	Content string `json:"content" validate:"required,min=1"`
}

// Create appends a comment to a task
func (s *CommentService) Create(ctx context.Context, taskID, authorID string, input CreateCommentInput) (*repository.TaskComment, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, err
	}

	comment := &repository.TaskComment{
		TaskID:   taskID,
		AuthorID: authorID,
		Content:  input.Content,
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	return comment, nil
}

// ListByTask lists a task's comments
func (s *CommentService) ListByTask(ctx context.Context, taskID string) ([]*repository.TaskComment, error) {
	return s.comments.ListByTask(ctx, taskID)
}

// Delete removes a comment. Authors can delete their own comments; anyone
// with the tasks.delete capability can delete any comment.
func (s *CommentService) Delete(ctx context.Context, id, requesterID, requesterRole string) error {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if comment.AuthorID != requesterID && !permissions.Can(requesterRole, "tasks.delete") {
		return errors.Forbidden("only the author or a manager can delete a comment")
	}

	return s.comments.Delete(ctx, id)
}
