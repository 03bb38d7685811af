package marking

import "time"

// Per-action result types. Field names mirror what the grading clients
// consume; every field is declared, nothing is attached dynamically.

// PingResult is the session bootstrap payload.
type PingResult struct {
	User             int             `json:"user"`
	Student          int             `json:"student,omitempty"`
	Username         string          `json:"username"`
	RealUsername     string          `json:"realusername"`
	Role             Role            `json:"role"`
	GroupID          int             `json:"groupid"`
	AdminEmail       string          `json:"adminemail"`
	StudentAnonymous bool            `json:"studentanonymous"`
	MarkerAnonymous  bool            `json:"markeranonymous"`
	ReadOnly         bool            `json:"readonly"`
	Supervisor       bool            `json:"supervisor"`
	ManageDelphi     bool            `json:"managedelphi"`
	MarkingType      ActivityType    `json:"markingtype"`
	TotalTests       int             `json:"totaltests"`
	InProgressTests  int             `json:"inprogresstests"`
	PublishedTests   int             `json:"publishedtests"`
	AgreeLevel       float64         `json:"agreelevel"`
	Heartbeat        bool            `json:"heartbeat"`
	LinkRubric       bool            `json:"linkrubric"`
	Collaborative    bool            `json:"collaborativefeatures"`
	Motives          []RegradeMotive `json:"motives"`
	RealtimeServer   string          `json:"realtimeserver"`
	Version          string          `json:"version"`
}

// CommentResult is returned by addcomment/addmark.
type CommentResult struct {
	ID           int       `json:"id"`
	NewGrade     float64   `json:"newgrade"`
	TimeModified time.Time `json:"timemodified"`
}

// GradeResult is returned by deletecomment/deletemark/updcomment.
type GradeResult struct {
	NewGrade     float64   `json:"newgrade"`
	TimeModified time.Time `json:"timemodified"`
}

// RegradeResult is returned by addregrade.
type RegradeResult struct {
	ID           int       `json:"id"`
	Status       Status    `json:"status"`
	TimeModified time.Time `json:"timemodified"`
}

// FinishResult is the final grade snapshot returned by finishmarking.
type FinishResult struct {
	FinalGrade   float64   `json:"finalgrade"`
	Status       Status    `json:"status"`
	TimeModified time.Time `json:"timemodified"`
}

// CommentView is a comment as exposed to clients; marker identity is
// blanked under marker anonymity.
type CommentView struct {
	ID          int     `json:"id"`
	PageID      int     `json:"pageid"`
	MarkerID    int     `json:"markerid,omitempty"`
	MarkerName  string  `json:"markername,omitempty"`
	Content     string  `json:"content"`
	PosX        int     `json:"posx"`
	PosY        int     `json:"posy"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Format      int     `json:"format"`
	CriterionID int     `json:"criterionid"`
	LevelID     int     `json:"levelid"`
	Score       float64 `json:"score"`
	Bonus       float64 `json:"bonus"`
	Colour      string  `json:"colour"`
}

// PageTab is one page of the submission with its annotations; the image
// variant honors student anonymity.
type PageTab struct {
	ID       int           `json:"id"`
	PageNo   int           `json:"pageno"`
	ImageURL string        `json:"imageurl"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Comments []CommentView `json:"comments"`
}

// TabsResult is the ordered page/tab metadata returned by getalltabs.
type TabsResult struct {
	Pages []PageTab `json:"pages"`
}

// SubmissionResult is the grade snapshot returned by getsubmission.
type SubmissionResult struct {
	Grade        float64     `json:"grade"`
	Status       Status      `json:"status"`
	AgreeLevel   float64     `json:"agreelevel"`
	MarkerID     int         `json:"markerid"`
	MarkerName   string      `json:"markername"`
	MarkerEmail  string      `json:"markeremail"`
	Rubric       []RubricRow `json:"rubric"`
	TimeModified time.Time   `json:"timemodified"`
}

// NextResult is returned by getnextsubmission; NextSubmission is 0 when
// nothing is pending.
type NextResult struct {
	NextSubmission int `json:"nextsubmission"`
}

// PrevCommentsResult is the distinct comment texts previously used in the
// activity.
type PrevCommentsResult struct {
	Comments []string `json:"comments"`
}

// SortResult echoes the applied page order.
type SortResult struct {
	NewOrder []int `json:"neworder"`
}

// RotateResult carries the regenerated image variants of the rotated page.
type RotateResult struct {
	PageNo            int    `json:"pageno"`
	ImageURL          string `json:"imageurl"`
	AnonymousImageURL string `json:"anonymousimageurl"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
}

// HeartbeatResult is the pre-auth liveness payload.
type HeartbeatResult struct {
	Time int64 `json:"time"`
}
