package marking

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// addRegrade records a regrade request against one criterion of the draft.
// On a published submission this re-opens the workflow by moving the
// submission to the regrading status.
func (svc *service) addRegrade(ctx context.Context, rc *requestContext) (interface{}, error) {
	if _, err := svc.repo.GetRegradeMotive(ctx, rc.req.MotiveID); err != nil {
		return nil, err
	}
	created, err := svc.repo.CreateRegrade(ctx, Regrade{
		DraftID:     rc.draft.ID,
		CriterionID: rc.req.CriterionID,
		MotiveID:    rc.req.MotiveID,
		Comment:     rc.req.Motive,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating regrade")
	}

	status := rc.submission.Status
	if status >= StatusPublished {
		rc.submission.Status = StatusRegrading
		rc.submission.UpdatedAt = time.Now().UTC()
		if rc.submission, err = svc.repo.UpdateSubmission(ctx, rc.submission); err != nil {
			return nil, errors.Wrap(err, "reopening submission")
		}
		status = rc.submission.Status
	}
	return RegradeResult{ID: created.ID, Status: status, TimeModified: created.CreatedAt}, nil
}

// finishMarking publishes the current draft, posts its grade downstream and
// publishes the submission once every draft has been published.
func (svc *service) finishMarking(ctx context.Context, rc *requestContext) (interface{}, error) {
	now := time.Now().UTC()
	rc.draft.Status = StatusPublished
	rc.draft.UpdatedAt = now
	draft, err := svc.repo.UpdateDraft(ctx, rc.draft)
	if err != nil {
		return nil, errors.Wrap(err, "publishing draft")
	}
	rc.draft = draft

	final, err := svc.finalizer.Finalize(ctx, rc.activity, rc.submission, rc.draft)
	if err != nil {
		return nil, errors.Wrap(err, "finalizing grade")
	}

	drafts, err := svc.repo.DraftsBySubmission(ctx, rc.submission.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing drafts")
	}
	allPublished := true
	for _, d := range drafts {
		if d.Status < StatusPublished {
			allPublished = false
			break
		}
	}
	if allPublished && rc.submission.Status < StatusPublished {
		rc.submission.Status = StatusPublished
		rc.submission.UpdatedAt = now
		if rc.submission, err = svc.repo.UpdateSubmission(ctx, rc.submission); err != nil {
			return nil, errors.Wrap(err, "publishing submission")
		}
	}
	return FinishResult{FinalGrade: final, Status: rc.submission.Status, TimeModified: now}, nil
}

// getSubmission returns the grade snapshot of the current draft: grade,
// workflow status, per-submission agreement and the rubric selections.
// Marker identity is blanked under marker anonymity.
func (svc *service) getSubmission(ctx context.Context, rc *requestContext) (interface{}, error) {
	rubric, err := svc.repo.RubricSnapshot(ctx, rc.draft.ID)
	if err != nil {
		return nil, errors.Wrap(err, "loading rubric snapshot")
	}
	groups, err := svc.repo.AgreementGroups(ctx, rc.activity.ID)
	if err != nil {
		return nil, errors.Wrap(err, "loading agreement input")
	}

	res := SubmissionResult{
		Grade:        rc.draft.Grade,
		Status:       rc.submission.Status,
		AgreeLevel:   SubmissionAgreement(groups, rc.submission.ID, svc.gradeScale(rc.activity)),
		Rubric:       rubric,
		TimeModified: rc.draft.UpdatedAt,
	}
	if !rc.access.MarkerAnonymous {
		marker, err := svc.users.GetByID(rc.draft.MarkerID)
		if err == nil {
			res.MarkerID = marker.ID
			res.MarkerName = marker.Name
			res.MarkerEmail = marker.Email
		}
	}
	return res, nil
}

// getNextSubmission picks the next submission needing this marker's
// attention, honoring the configured selection policy and, in group mode,
// the marker's group restriction.
func (svc *service) getNextSubmission(ctx context.Context, rc *requestContext) (interface{}, error) {
	q := NextQuery{
		ActivityID:          rc.activity.ID,
		CurrentSubmissionID: rc.submission.ID,
		Policy:              svc.conf.Marking.NextPolicy,
	}
	if rc.activity.GroupMode && !rc.access.IsSupervisor {
		marker, ok, err := svc.repo.GetMarker(ctx, rc.activity.ID, rc.usr.ID)
		if err != nil {
			return nil, errors.Wrap(err, "resolving marker assignment")
		}
		if ok {
			q.GroupID = marker.GroupID
		}
	}
	next, err := svc.repo.NextSubmission(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "selecting next submission")
	}
	return NextResult{NextSubmission: next}, nil
}

// prevComments returns the distinct comment texts previously used in the
// activity, for the client's comment autocomplete.
func (svc *service) prevComments(ctx context.Context, rc *requestContext) (interface{}, error) {
	const limit = 50
	texts, err := svc.repo.PreviousComments(ctx, rc.activity.ID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing previous comments")
	}
	if texts == nil {
		texts = []string{}
	}
	return PrevCommentsResult{Comments: texts}, nil
}
