package marking

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/scanmark/backend/core/user"
)

type (
	// Repository is the persistent store for grading session state. Missing
	// records surface as the package's ErrXxxNotFound sentinels.
	//
	// Grade-affecting writes rely on the store's own transactional
	// guarantees; RecomputeGrade always re-aggregates from the authoritative
	// comment set, never accumulates increments. ReorderPages and UpdatePage
	// must serialize against each other per submission.
	Repository interface {
		GetActivity(ctx context.Context, id int) (Activity, error)
		GetSubmission(ctx context.Context, id int) (Submission, error)
		UpdateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetDraft(ctx context.Context, id int) (Draft, error)
		DraftsBySubmission(ctx context.Context, submissionID int) ([]Draft, error)
		UpdateDraft(ctx context.Context, d Draft) (Draft, error)

		// progress counters and agreement input; pure reads, never block writers
		DraftCounts(ctx context.Context, activityID int) (DraftCounts, error)
		AgreementGroups(ctx context.Context, activityID int) ([]GradeGroup, error)

		ListPages(ctx context.Context, submissionID int) ([]Page, error)
		GetPage(ctx context.Context, submissionID, pageNo int) (Page, error)
		UpdatePage(ctx context.Context, p Page) (Page, error)
		// ReorderPages applies a full permutation of page ids atomically.
		ReorderPages(ctx context.Context, submissionID int, order []int) error

		CreateComment(ctx context.Context, c Comment) (Comment, error)
		GetComment(ctx context.Context, id int) (Comment, error)
		UpdateComment(ctx context.Context, c Comment) (Comment, error)
		DeleteComment(ctx context.Context, id int) error
		ListComments(ctx context.Context, draftID int) ([]Comment, error)
		// PreviousComments returns distinct comment texts used in the
		// activity, most recent first.
		PreviousComments(ctx context.Context, activityID, limit int) ([]string, error)
		// RecomputeGrade re-aggregates the draft grade from its mark set,
		// persists it and returns the new grade.
		RecomputeGrade(ctx context.Context, draftID int) (float64, error)

		GetRubricLevel(ctx context.Context, id int) (RubricLevel, error)
		RubricSnapshot(ctx context.Context, draftID int) ([]RubricRow, error)

		CreateRegrade(ctx context.Context, r Regrade) (Regrade, error)
		GetRegradeMotive(ctx context.Context, id int) (RegradeMotive, error)
		ListRegradeMotives(ctx context.Context) ([]RegradeMotive, error)

		GetMarker(ctx context.Context, activityID, userID int) (Marker, bool, error)
		// NextSubmission picks the next submission needing work, or 0.
		NextSubmission(ctx context.Context, q NextQuery) (int, error)
	}

	// NextQuery parameterizes next-submission selection. Policy is either
	// "id" (lowest id first) or "dispersion" (highest disagreement first).
	NextQuery struct {
		ActivityID          int
		CurrentSubmissionID int
		Policy              string
		GroupID             null.Int // restrict to one group when valid
	}

	// AuditEvent is appended to the audit sink before a mutation is
	// applied, so records exist even if the mutation later fails.
	AuditEvent struct {
		ID           string    `json:"id" db:"id"`
		Name         string    `json:"name" db:"name"`
		ActivityID   int       `json:"activity_id" db:"activity_id"`
		SubmissionID int       `json:"submission_id" db:"submission_id"`
		DraftID      int       `json:"draft_id" db:"draft_id"`
		UserID       int       `json:"user_id" db:"user_id"`
		At           time.Time `json:"at" db:"at"`
	}

	// AuditSink appends structured events, fire-and-forget.
	AuditSink interface {
		Record(ctx context.Context, ev AuditEvent)
	}

	// ImageRenderer regenerates a page's rendered variants rotated 90°
	// clockwise from its current state. The returned page carries the new
	// URLs and dimensions; persistence stays with the caller.
	ImageRenderer interface {
		Rotate(ctx context.Context, p Page) (Page, error)
	}

	// GradeFinalizer posts the final grade downstream when marking
	// finishes and returns the grade actually recorded.
	GradeFinalizer interface {
		Finalize(ctx context.Context, a Activity, s Submission, d Draft) (float64, error)
	}

	// CapabilityResolver computes the principal's capability set for an
	// activity context. The controller consumes the booleans, it does not
	// implement the permission model.
	CapabilityResolver interface {
		Resolve(ctx context.Context, usr user.User, a Activity) (Capabilities, error)
	}

	// UserDirectory resolves user records; user.ServiceInterface satisfies it.
	UserDirectory interface {
		GetByID(id int) (user.User, error)
	}

	// ProgressCache is an optional short-TTL cache for the ping counters
	// and the activity-wide agreement level. Misses are not errors.
	ProgressCache interface {
		GetCounts(ctx context.Context, activityID int) (DraftCounts, bool)
		SetCounts(ctx context.Context, activityID int, c DraftCounts)
		GetAgreement(ctx context.Context, activityID int) (float64, bool)
		SetAgreement(ctx context.Context, activityID int, level float64)
	}
)
