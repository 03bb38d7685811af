package marking

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// addComment creates a free-text annotation on the requested page of the
// current draft and recomputes the draft grade from the authoritative
// mark set.
func (svc *service) addComment(ctx context.Context, rc *requestContext) (interface{}, error) {
	page, err := svc.repo.GetPage(ctx, rc.submission.ID, rc.req.PageNo)
	if err != nil {
		return nil, err
	}

	format := rc.req.Format
	if format == 0 {
		format = FormatText
	}
	now := time.Now().UTC()
	created, err := svc.repo.CreateComment(ctx, Comment{
		DraftID:   rc.draft.ID,
		PageID:    page.ID,
		MarkerID:  rc.usr.ID,
		Content:   rc.req.Content,
		PosX:      rc.req.PosX,
		PosY:      rc.req.PosY,
		Width:     rc.req.Width,
		Height:    rc.req.Height,
		Format:    format,
		Colour:    rc.req.Colour,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating comment")
	}

	grade, err := svc.repo.RecomputeGrade(ctx, rc.draft.ID)
	if err != nil {
		return nil, errors.Wrap(err, "recomputing grade")
	}
	return CommentResult{ID: created.ID, NewGrade: grade, TimeModified: now}, nil
}

// addMark creates a rubric mark: a comment carrying a rubric level whose
// score (plus bonus) contributes to the grade.
func (svc *service) addMark(ctx context.Context, rc *requestContext) (interface{}, error) {
	if rc.req.LevelID <= 0 {
		return nil, ErrInvalidOperation
	}
	level, err := svc.repo.GetRubricLevel(ctx, rc.req.LevelID)
	if err != nil {
		return nil, err
	}
	page, err := svc.repo.GetPage(ctx, rc.submission.ID, rc.req.PageNo)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created, err := svc.repo.CreateComment(ctx, Comment{
		DraftID:     rc.draft.ID,
		PageID:      page.ID,
		MarkerID:    rc.usr.ID,
		Content:     rc.req.Content,
		PosX:        rc.req.PosX,
		PosY:        rc.req.PosY,
		Width:       rc.req.Width,
		Height:      rc.req.Height,
		Format:      FormatMark,
		CriterionID: level.CriterionID,
		LevelID:     level.ID,
		Score:       level.Score,
		Bonus:       rc.req.Bonus,
		Colour:      rc.req.Colour,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating mark")
	}

	grade, err := svc.repo.RecomputeGrade(ctx, rc.draft.ID)
	if err != nil {
		return nil, errors.Wrap(err, "recomputing grade")
	}
	return CommentResult{ID: created.ID, NewGrade: grade, TimeModified: now}, nil
}

// deleteComment removes a free-text annotation from the current draft.
func (svc *service) deleteComment(ctx context.Context, rc *requestContext) (interface{}, error) {
	return svc.removeAnnotation(ctx, rc, false)
}

// deleteMark removes a rubric mark and recomputes the grade it carried.
func (svc *service) deleteMark(ctx context.Context, rc *requestContext) (interface{}, error) {
	return svc.removeAnnotation(ctx, rc, true)
}

func (svc *service) removeAnnotation(ctx context.Context, rc *requestContext, wantMark bool) (interface{}, error) {
	comment, err := svc.commentOfDraft(ctx, rc)
	if err != nil {
		return nil, err
	}
	if comment.IsMark() != wantMark {
		return nil, ErrInvalidOperation
	}
	if err = svc.repo.DeleteComment(ctx, comment.ID); err != nil {
		return nil, errors.Wrap(err, "deleting comment")
	}
	grade, err := svc.repo.RecomputeGrade(ctx, rc.draft.ID)
	if err != nil {
		return nil, errors.Wrap(err, "recomputing grade")
	}
	return GradeResult{NewGrade: grade, TimeModified: time.Now().UTC()}, nil
}

// updComment mutates an existing annotation's content, level and bonus and
// recomputes the grade.
func (svc *service) updComment(ctx context.Context, rc *requestContext) (interface{}, error) {
	comment, err := svc.commentOfDraft(ctx, rc)
	if err != nil {
		return nil, err
	}

	comment.Content = rc.req.Content
	comment.Bonus = rc.req.Bonus
	if rc.req.Colour != "" {
		comment.Colour = rc.req.Colour
	}
	if rc.req.LevelID > 0 {
		level, err := svc.repo.GetRubricLevel(ctx, rc.req.LevelID)
		if err != nil {
			return nil, err
		}
		comment.CriterionID = level.CriterionID
		comment.LevelID = level.ID
		comment.Score = level.Score
	}
	comment.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateComment(ctx, comment); err != nil {
		return nil, errors.Wrap(err, "updating comment")
	}

	grade, err := svc.repo.RecomputeGrade(ctx, rc.draft.ID)
	if err != nil {
		return nil, errors.Wrap(err, "recomputing grade")
	}
	return GradeResult{NewGrade: grade, TimeModified: comment.UpdatedAt}, nil
}

// commentOfDraft loads the requested comment and checks it belongs to the
// current draft; touching another draft's annotations is a business-rule
// violation, not a permission one.
func (svc *service) commentOfDraft(ctx context.Context, rc *requestContext) (Comment, error) {
	comment, err := svc.repo.GetComment(ctx, rc.req.CommentID)
	if err != nil {
		return Comment{}, err
	}
	if comment.DraftID != rc.draft.ID {
		return Comment{}, ErrInvalidOperation
	}
	return comment, nil
}
