package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// CommentUseCase handles comments on movies
type CommentUseCase struct {
	userRepo    UserRepo
	movieRepo   MovieRepo
	commentRepo CommentRepo
	tx          Transaction
	log         *log.Helper

	now func() time.Time
}

// NewCommentUseCase creates a new CommentUseCase instance
func NewCommentUseCase(userRepo UserRepo, movieRepo MovieRepo, commentRepo CommentRepo, tx Transaction, logger log.Logger) *CommentUseCase {
	return &CommentUseCase{
		userRepo:    userRepo,
		movieRepo:   movieRepo,
		commentRepo: commentRepo,
		tx:          tx,
		log:         log.NewHelper(logger),
		now:         time.Now,
	}
}

// AddComment stores a comment by userID on movieID, stamped with the server clock.
func (uc *CommentUseCase) AddComment(ctx context.Context, movieID, userID, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		uc.log.Warn("attempted to add empty comment")
		return nil, ErrEmptyComment
	}

	var comment *Comment
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		user, err := uc.userRepo.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := uc.movieRepo.GetMovie(ctx, movieID); err != nil {
			return err
		}
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate comment ID: %w", err)
		}
		comment = &Comment{
			ID:        id.String(),
			MovieID:   movieID,
			UserID:    userID,
			UserName:  user.Name,
			Text:      text,
			CreatedAt: uc.now().UTC(),
		}
		return uc.commentRepo.CreateComment(ctx, comment)
	})
	if err != nil {
		if IsClientError(err) {
			uc.log.Warnf("cannot comment on movie %s as user %s: %v", movieID, userID, err)
		} else {
			uc.log.Errorf("failed to add comment for user %s, movie %s: %v", userID, movieID, err)
		}
		return nil, storageErr("add comment", err)
	}
	uc.log.Infof("added comment %s by user %s to movie %s", comment.ID, userID, movieID)
	return comment, nil
}

// ListComments returns the movie's comments, newest first.
func (uc *CommentUseCase) ListComments(ctx context.Context, movieID string) ([]*Comment, error) {
	if _, err := uc.movieRepo.GetMovie(ctx, movieID); err != nil {
		return nil, storageErr("get movie", err)
	}
	comments, err := uc.commentRepo.ListComments(ctx, movieID)
	if err != nil {
		return nil, storageErr("list comments", err)
	}
	return comments, nil
}
