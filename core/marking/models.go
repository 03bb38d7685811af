package marking

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// ActivityType distinguishes ordinary grading from marker-training
// (calibration) activities, where trainees never own the submission.
type ActivityType int

const (
	TypeNormal         ActivityType = 0
	TypeMarkerTraining ActivityType = 2
)

// Anonymity controls which identities are hidden during grading.
type Anonymity int

const (
	AnonymousStudent Anonymity = 0
	AnonymousBoth    Anonymity = 1
	AnonymousNone    Anonymity = 2
	AnonymousMarker  Anonymity = 3
)

func (a Anonymity) HidesStudent() bool {
	return a == AnonymousStudent || a == AnonymousBoth
}

func (a Anonymity) HidesMarker() bool {
	return a == AnonymousBoth || a == AnonymousMarker
}

// Status is the submission/draft workflow position. Values are ordered and
// spaced so intermediate states can be added without renumbering; the
// numeric value is the single source of truth for every threshold
// comparison in the resolver and the router.
type Status int

const (
	StatusMissing   Status = 0
	StatusAbsent    Status = 5
	StatusSubmitted Status = 10
	StatusGrading   Status = 15
	StatusPublished Status = 20
	StatusRegrading Status = 25
)

// Activity is the grading assignment configuration shared by all
// submissions under it. Immutable from this package's perspective.
type Activity struct {
	ID                    int          `json:"id" db:"id"`
	CourseID              int          `json:"course_id" db:"course_id"`
	Name                  string       `json:"name" db:"name"`
	Type                  ActivityType `json:"type" db:"type"`
	Anonymous             Anonymity    `json:"anonymous" db:"anonymous"`
	GradeMin              float64      `json:"grade_min" db:"grade_min"`
	GradeScale            float64      `json:"grade_scale" db:"grade_scale"` // maximum attainable grade span
	HeartbeatEnabled      bool         `json:"heartbeat_enabled" db:"heartbeat_enabled"`
	CollaborativeFeatures bool         `json:"collaborative_features" db:"collaborative_features"`
	LinkRubric            bool         `json:"link_rubric" db:"link_rubric"`
	GroupMode             bool         `json:"group_mode" db:"group_mode"`
	CreatedAt             time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at" db:"updated_at"`
}

// Submission is one student's body of work for an activity. StudentID is
// null in anonymized ingests and in marker-training mode.
type Submission struct {
	ID            int       `json:"id" db:"id"`
	ActivityID    int       `json:"activity_id" db:"activity_id"`
	StudentID     null.Int  `json:"student_id" db:"student_id"`
	GroupID       null.Int  `json:"group_id" db:"group_id"`
	Status        Status    `json:"status" db:"status"`
	SeenByStudent bool      `json:"seen_by_student" db:"seen_by_student"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Draft is one marker's independent grading pass over a submission.
// Several drafts may exist per submission for agreement/arbitration.
type Draft struct {
	ID           int       `json:"id" db:"id"`
	SubmissionID int       `json:"submission_id" db:"submission_id"`
	ActivityID   int       `json:"activity_id" db:"activity_id"`
	MarkerID     int       `json:"marker_id" db:"marker_id"`
	Grade        float64   `json:"grade" db:"grade"`
	Status       Status    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Page is one scanned page of a submission. PageNo is its position in the
// submission's sequence; Rotation is the accumulated clockwise rotation in
// degrees (0, 90, 180 or 270).
type Page struct {
	ID                int    `json:"id" db:"id"`
	SubmissionID      int    `json:"submission_id" db:"submission_id"`
	PageNo            int    `json:"page_no" db:"page_no"`
	ImageURL          string `json:"image_url" db:"image_url"`
	AnonymousImageURL string `json:"anonymous_image_url" db:"anonymous_image_url"`
	Width             int    `json:"width" db:"width"`
	Height            int    `json:"height" db:"height"`
	Rotation          int    `json:"rotation" db:"rotation"`
}

// Comment formats
const (
	FormatText = 1 // free-text comment
	FormatMark = 2 // rubric mark, contributes to the grade
)

// Comment is an annotation on a page of a draft. A comment with a rubric
// level attached is a mark and contributes Score+Bonus to the draft grade.
type Comment struct {
	ID          int       `json:"id" db:"id"`
	DraftID     int       `json:"draft_id" db:"draft_id"`
	PageID      int       `json:"page_id" db:"page_id"`
	MarkerID    int       `json:"marker_id" db:"marker_id"`
	MarkerName  string    `json:"marker_name" db:"marker_name"`
	Content     string    `json:"content" db:"content"`
	PosX        int       `json:"posx" db:"posx"`
	PosY        int       `json:"posy" db:"posy"`
	Width       int       `json:"width" db:"width"`
	Height      int       `json:"height" db:"height"`
	Format      int       `json:"format" db:"format"`
	CriterionID int       `json:"criterion_id" db:"criterion_id"`
	LevelID     int       `json:"level_id" db:"level_id"`
	Score       float64   `json:"score" db:"score"`
	Bonus       float64   `json:"bonus" db:"bonus"`
	Colour      string    `json:"colour" db:"colour"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (c Comment) IsMark() bool { return c.LevelID > 0 }

// RubricLevel is an opaque rubric row: the controller only needs the score
// a level carries and the criterion it belongs to.
type RubricLevel struct {
	ID          int     `json:"id" db:"id"`
	CriterionID int     `json:"criterion_id" db:"criterion_id"`
	Definition  string  `json:"definition" db:"definition"`
	Score       float64 `json:"score" db:"score"`
}

// RubricRow is one line of the rubric snapshot attached to a draft:
// criterion, selected level (if marked) and the mark carrying it.
type RubricRow struct {
	CriterionID int     `json:"criterion_id" db:"criterion_id"`
	Criterion   string  `json:"criterion" db:"criterion"`
	LevelID     int     `json:"level_id" db:"level_id"`
	Definition  string  `json:"definition" db:"definition"`
	Score       float64 `json:"score" db:"score"`
	Bonus       float64 `json:"bonus" db:"bonus"`
	CommentID   int     `json:"comment_id" db:"comment_id"`
}

// Regrade is a marker/student request to regrade a criterion of a draft.
type Regrade struct {
	ID          int       `json:"id" db:"id"`
	DraftID     int       `json:"draft_id" db:"draft_id"`
	CriterionID int       `json:"criterion_id" db:"criterion_id"`
	MotiveID    int       `json:"motive_id" db:"motive_id"`
	Comment     string    `json:"comment" db:"comment"`
	Accepted    bool      `json:"accepted" db:"accepted"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type RegradeMotive struct {
	ID          int    `json:"id" db:"id"`
	Description string `json:"description" db:"description"`
}

// Marker is a per-activity marker assignment. GroupID restricts the marker
// to one group's submissions when the activity runs in group mode.
type Marker struct {
	ActivityID int      `json:"activity_id" db:"activity_id"`
	UserID     int      `json:"user_id" db:"user_id"`
	GroupID    null.Int `json:"group_id" db:"group_id"`
}

// DraftCounts are the ping progress counters for an activity.
type DraftCounts struct {
	Total      int `json:"total"`
	InProgress int `json:"in_progress"`
	Published  int `json:"published"`
}

// GradeGroup is the set of qualifying draft grades of one submission, the
// unit the Agreement Estimator works on. A draft qualifies when it carries
// at least one comment.
type GradeGroup struct {
	SubmissionID int
	Grades       []float64
}

// Capabilities is the principal's resolved capability set for one activity
// context. SiteAdmin implies supervision everywhere.
type Capabilities struct {
	CanGrade        bool
	CanRegrade      bool
	CanSupervise    bool
	CanManageDelphi bool
	CanSubmit       bool
	SiteAdmin       bool
}

// Role is the principal's effective grading role.
type Role string

const (
	RoleNone    Role = ""
	RoleMarker  Role = "marker"
	RoleTeacher Role = "teacher"
)
