package gradesvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/scanmark/backend/core/marking"
)

// finalizer posts the final grade of a finished draft: the draft grade is
// re-aggregated one last time from the mark set, clamped to the activity's
// grade range and recorded on the draft.
type finalizer struct {
	repo marking.Repository
}

var _ marking.GradeFinalizer = (*finalizer)(nil)

func NewFinalizer(repo marking.Repository) marking.GradeFinalizer {
	return &finalizer{repo: repo}
}

func (f *finalizer) Finalize(ctx context.Context, a marking.Activity, _ marking.Submission, d marking.Draft) (float64, error) {
	grade, err := f.repo.RecomputeGrade(ctx, d.ID)
	if err != nil {
		return 0, errors.Wrap(err, "recomputing final grade")
	}

	final := a.GradeMin + grade
	if a.GradeScale > 0 {
		max := a.GradeMin + a.GradeScale
		if final > max {
			final = max
		}
	}
	if final < a.GradeMin {
		final = a.GradeMin
	}

	d.Grade = final - a.GradeMin
	if _, err = f.repo.UpdateDraft(ctx, d); err != nil {
		return 0, errors.Wrap(err, "recording final grade")
	}
	return final, nil
}
