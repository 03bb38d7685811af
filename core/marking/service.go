package marking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/scanmark/backend/core"
	"github.com/scanmark/backend/core/user"
)

// Action identifies one controller operation.
type Action string

const (
	ActionHeartbeat         Action = "heartbeat"
	ActionPing              Action = "ping"
	ActionAddComment        Action = "addcomment"
	ActionAddMark           Action = "addmark"
	ActionDeleteComment     Action = "deletecomment"
	ActionDeleteMark        Action = "deletemark"
	ActionUpdComment        Action = "updcomment"
	ActionAddRegrade        Action = "addregrade"
	ActionFinishMarking     Action = "finishmarking"
	ActionGetAllTabs        Action = "getalltabs"
	ActionGetSubmission     Action = "getsubmission"
	ActionGetNextSubmission Action = "getnextsubmission"
	ActionPrevComments      Action = "prevcomments"
	ActionSortPages         Action = "sortpages"
	ActionRotatePage        Action = "rotatepage"
)

// Request is one validated controller request. DraftID is the required
// `ids` parameter; the remaining fields are action-specific.
type Request struct {
	DraftID int    `json:"ids" query:"ids" form:"ids"`
	Action  Action `json:"action" query:"action" form:"action"`
	PageNo  int    `json:"pageno" query:"pageno" form:"pageno"`

	// comment/mark payload
	CommentID   int     `json:"commentid" query:"commentid" form:"commentid"`
	Content     string  `json:"content" query:"content" form:"content"`
	PosX        int     `json:"posx" query:"posx" form:"posx"`
	PosY        int     `json:"posy" query:"posy" form:"posy"`
	Width       int     `json:"width" query:"width" form:"width"`
	Height      int     `json:"height" query:"height" form:"height"`
	Format      int     `json:"format" query:"format" form:"format"`
	CriterionID int     `json:"criterionid" query:"criterionid" form:"criterionid"`
	LevelID     int     `json:"levelid" query:"levelid" form:"levelid"`
	Bonus       float64 `json:"bonus" query:"bonus" form:"bonus"`
	Colour      string  `json:"colour" query:"colour" form:"colour"`

	// regrade payload
	MotiveID int    `json:"motiveid" query:"motiveid" form:"motiveid"`
	Motive   string `json:"motive" query:"motive" form:"motive"`

	// sortpages payload: full permutation of the submission's page ids.
	// On the wire `neworder` is a CSV string parsed by the transport layer;
	// echo must not try to fill the slice from the raw parameter.
	NewOrder []int `json:"neworder" query:"-" form:"-"`
}

// Service is the grading session controller: it resolves the request's
// records and access, then dispatches to exactly one operation.
type Service interface {
	Dispatch(ctx context.Context, usr user.User, req Request) (interface{}, error)
}

type service struct {
	conf      *core.Config
	repo      Repository
	users     UserDirectory
	caps      CapabilityResolver
	audit     AuditSink
	images    ImageRenderer
	finalizer GradeFinalizer
	cache     ProgressCache // may be nil
	logger    core.Logger
}

var _ Service = (*service)(nil)

func NewService(
	conf *core.Config,
	repo Repository,
	users UserDirectory,
	caps CapabilityResolver,
	audit AuditSink,
	images ImageRenderer,
	finalizer GradeFinalizer,
	cache ProgressCache,
	logger core.Logger,
) Service {
	return &service{
		conf:      conf,
		repo:      repo,
		users:     users,
		caps:      caps,
		audit:     audit,
		images:    images,
		finalizer: finalizer,
		cache:     cache,
		logger:    logger,
	}
}

// requestContext carries everything resolved once per request. No handler
// reads ambient state.
type requestContext struct {
	usr        user.User
	req        Request
	activity   Activity
	submission Submission
	draft      Draft
	student    user.User
	hasStudent bool
	caps       Capabilities
	access     Access
}

// permission is the precondition stage applied after audit emission.
type permission int

const (
	permNone       permission = iota
	permGrade                 // grading-capable, readonly allowed
	permWrite                 // grading-capable and submission writable
	permRegrade               // regrade-capable
	permSupervisor            // supervisor only
)

type actionSpec struct {
	audit string // audit event name; empty = not audited (pure read)
	perm  permission
	exec  func(*service, context.Context, *requestContext) (interface{}, error)
}

// actions maps the action identifier to its handler. Audit emission,
// precondition check and operation are applied uniformly, in that order:
// audit records must exist even when the mutation later fails validation.
var actions = map[Action]actionSpec{
	ActionPing:              {perm: permNone, exec: (*service).ping},
	ActionAddComment:        {audit: "addcomment_added", perm: permWrite, exec: (*service).addComment},
	ActionAddMark:           {audit: "addmark_added", perm: permWrite, exec: (*service).addMark},
	ActionDeleteComment:     {audit: "deletecomment_deleted", perm: permWrite, exec: (*service).deleteComment},
	ActionDeleteMark:        {audit: "deletemark_deleted", perm: permWrite, exec: (*service).deleteMark},
	ActionUpdComment:        {audit: "updcomment_updated", perm: permWrite, exec: (*service).updComment},
	ActionAddRegrade:        {audit: "addregrade_added", perm: permRegrade, exec: (*service).addRegrade},
	ActionFinishMarking:     {audit: "marking_ended", perm: permWrite, exec: (*service).finishMarking},
	ActionGetAllTabs:        {perm: permNone, exec: (*service).getAllTabs},
	ActionGetSubmission:     {perm: permNone, exec: (*service).getSubmission},
	ActionGetNextSubmission: {perm: permGrade, exec: (*service).getNextSubmission},
	ActionPrevComments:      {perm: permGrade, exec: (*service).prevComments},
	ActionSortPages:         {audit: "sortpages_switched", perm: permSupervisor, exec: (*service).sortPages},
	ActionRotatePage:        {audit: "rotatepage_switched", perm: permSupervisor, exec: (*service).rotatePage},
}

func (svc *service) Dispatch(ctx context.Context, usr user.User, req Request) (interface{}, error) {
	rc := &requestContext{usr: usr, req: req}

	var err error
	if rc.draft, err = svc.repo.GetDraft(ctx, req.DraftID); err != nil {
		return nil, err
	}
	if rc.submission, err = svc.repo.GetSubmission(ctx, rc.draft.SubmissionID); err != nil {
		return nil, err
	}
	if rc.activity, err = svc.repo.GetActivity(ctx, rc.submission.ActivityID); err != nil {
		return nil, err
	}

	// the submission's student; suppressed in marker training
	if rc.activity.Type != TypeMarkerTraining && rc.submission.StudentID.Valid {
		student, err := svc.users.GetByID(rc.submission.StudentID.Int)
		if err != nil {
			return nil, ErrStudentNotFound
		}
		rc.student = student
		rc.hasStudent = true
	}

	if rc.caps, err = svc.caps.Resolve(ctx, usr, rc.activity); err != nil {
		return nil, errors.Wrap(err, "resolving capabilities")
	}
	rc.access = ResolveAccess(rc.activity, rc.submission, rc.draft, usr.ID, rc.caps)

	// authorization gate: audited, then terminal
	if !rc.caps.CanGrade && !rc.access.OwnSubmission && !rc.caps.CanSubmit {
		svc.auditEvent(ctx, "unauthorized_granted", rc)
		return nil, ErrUnauthorized
	}

	spec, ok := actions[req.Action]
	if !ok {
		return nil, ErrInvalidAction
	}
	if spec.audit != "" {
		svc.auditEvent(ctx, spec.audit, rc)
	}
	if err = checkPermission(spec.perm, rc); err != nil {
		return nil, err
	}
	return spec.exec(svc, ctx, rc)
}

func checkPermission(perm permission, rc *requestContext) error {
	switch perm {
	case permGrade:
		if !rc.caps.CanGrade {
			return ErrUnauthorized
		}
	case permWrite:
		if !rc.caps.CanGrade || rc.access.ReadOnly {
			return ErrUnauthorized
		}
	case permRegrade:
		if !rc.caps.CanRegrade {
			return ErrUnauthorized
		}
	case permSupervisor:
		if !rc.access.IsSupervisor {
			return ErrUnauthorized
		}
	}
	return nil
}

func (svc *service) auditEvent(ctx context.Context, name string, rc *requestContext) {
	svc.audit.Record(ctx, AuditEvent{
		ID:           uuid.NewString(),
		Name:         name,
		ActivityID:   rc.activity.ID,
		SubmissionID: rc.submission.ID,
		DraftID:      rc.draft.ID,
		UserID:       rc.usr.ID,
		At:           time.Now().UTC(),
	})
}
