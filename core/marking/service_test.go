package marking

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/scanmark/backend/core"
	"github.com/scanmark/backend/core/user"
)

// fakeRepo is an in-memory Repository seeded per test.
type fakeRepo struct {
	activities  map[int]Activity
	submissions map[int]Submission
	drafts      map[int]Draft
	pages       map[int]Page // by id
	comments    map[int]Comment
	levels      map[int]RubricLevel
	motives     map[int]RegradeMotive
	markers     map[int]Marker // by user id
	nextID      int
	next        int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		activities:  make(map[int]Activity),
		submissions: make(map[int]Submission),
		drafts:      make(map[int]Draft),
		pages:       make(map[int]Page),
		comments:    make(map[int]Comment),
		levels:      make(map[int]RubricLevel),
		motives:     make(map[int]RegradeMotive),
		markers:     make(map[int]Marker),
		nextID:      100,
	}
}

func (r *fakeRepo) GetActivity(_ context.Context, id int) (Activity, error) {
	a, ok := r.activities[id]
	if !ok {
		return Activity{}, ErrActivityNotFound
	}
	return a, nil
}

func (r *fakeRepo) GetSubmission(_ context.Context, id int) (Submission, error) {
	s, ok := r.submissions[id]
	if !ok {
		return Submission{}, ErrSubmissionNotFound
	}
	return s, nil
}

func (r *fakeRepo) UpdateSubmission(_ context.Context, s Submission) (Submission, error) {
	r.submissions[s.ID] = s
	return s, nil
}

func (r *fakeRepo) GetDraft(_ context.Context, id int) (Draft, error) {
	d, ok := r.drafts[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	return d, nil
}

func (r *fakeRepo) DraftsBySubmission(_ context.Context, submissionID int) ([]Draft, error) {
	var ds []Draft
	for _, d := range r.drafts {
		if d.SubmissionID == submissionID {
			ds = append(ds, d)
		}
	}
	return ds, nil
}

func (r *fakeRepo) UpdateDraft(_ context.Context, d Draft) (Draft, error) {
	r.drafts[d.ID] = d
	return d, nil
}

func (r *fakeRepo) DraftCounts(_ context.Context, activityID int) (DraftCounts, error) {
	var c DraftCounts
	for _, d := range r.drafts {
		if d.ActivityID != activityID {
			continue
		}
		c.Total++
		switch {
		case d.Status == StatusGrading:
			c.InProgress++
		case d.Status > StatusGrading:
			c.Published++
		}
	}
	return c, nil
}

func (r *fakeRepo) AgreementGroups(_ context.Context, activityID int) ([]GradeGroup, error) {
	bySub := make(map[int][]float64)
	for _, d := range r.drafts {
		if d.ActivityID == activityID {
			bySub[d.SubmissionID] = append(bySub[d.SubmissionID], d.Grade)
		}
	}
	var groups []GradeGroup
	for id, grades := range bySub {
		groups = append(groups, GradeGroup{SubmissionID: id, Grades: grades})
	}
	return groups, nil
}

func (r *fakeRepo) ListPages(_ context.Context, submissionID int) ([]Page, error) {
	var ps []Page
	for _, p := range r.pages {
		if p.SubmissionID == submissionID {
			ps = append(ps, p)
		}
	}
	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			if ps[j].PageNo < ps[i].PageNo {
				ps[i], ps[j] = ps[j], ps[i]
			}
		}
	}
	return ps, nil
}

func (r *fakeRepo) GetPage(_ context.Context, submissionID, pageNo int) (Page, error) {
	for _, p := range r.pages {
		if p.SubmissionID == submissionID && p.PageNo == pageNo {
			return p, nil
		}
	}
	return Page{}, ErrPageNotFound
}

func (r *fakeRepo) UpdatePage(_ context.Context, p Page) (Page, error) {
	r.pages[p.ID] = p
	return p, nil
}

func (r *fakeRepo) ReorderPages(_ context.Context, _ int, order []int) error {
	for i, id := range order {
		p := r.pages[id]
		p.PageNo = i + 1
		r.pages[id] = p
	}
	return nil
}

func (r *fakeRepo) CreateComment(_ context.Context, c Comment) (Comment, error) {
	r.nextID++
	c.ID = r.nextID
	r.comments[c.ID] = c
	return c, nil
}

func (r *fakeRepo) GetComment(_ context.Context, id int) (Comment, error) {
	c, ok := r.comments[id]
	if !ok {
		return Comment{}, ErrCommentNotFound
	}
	return c, nil
}

func (r *fakeRepo) UpdateComment(_ context.Context, c Comment) (Comment, error) {
	r.comments[c.ID] = c
	return c, nil
}

func (r *fakeRepo) DeleteComment(_ context.Context, id int) error {
	delete(r.comments, id)
	return nil
}

func (r *fakeRepo) ListComments(_ context.Context, draftID int) ([]Comment, error) {
	var cs []Comment
	for _, c := range r.comments {
		if c.DraftID == draftID {
			cs = append(cs, c)
		}
	}
	return cs, nil
}

func (r *fakeRepo) PreviousComments(_ context.Context, _, _ int) ([]string, error) {
	seen := make(map[string]bool)
	var texts []string
	for _, c := range r.comments {
		if c.Content != "" && !seen[c.Content] {
			seen[c.Content] = true
			texts = append(texts, c.Content)
		}
	}
	return texts, nil
}

func (r *fakeRepo) RecomputeGrade(_ context.Context, draftID int) (float64, error) {
	var grade float64
	for _, c := range r.comments {
		if c.DraftID == draftID && c.IsMark() {
			grade += c.Score + c.Bonus
		}
	}
	d := r.drafts[draftID]
	d.Grade = grade
	r.drafts[draftID] = d
	return grade, nil
}

func (r *fakeRepo) GetRubricLevel(_ context.Context, id int) (RubricLevel, error) {
	l, ok := r.levels[id]
	if !ok {
		return RubricLevel{}, errors.New("level not found")
	}
	return l, nil
}

func (r *fakeRepo) RubricSnapshot(_ context.Context, _ int) ([]RubricRow, error) {
	return nil, nil
}

func (r *fakeRepo) CreateRegrade(_ context.Context, rg Regrade) (Regrade, error) {
	r.nextID++
	rg.ID = r.nextID
	return rg, nil
}

func (r *fakeRepo) GetRegradeMotive(_ context.Context, id int) (RegradeMotive, error) {
	m, ok := r.motives[id]
	if !ok {
		return RegradeMotive{}, ErrMotiveNotFound
	}
	return m, nil
}

func (r *fakeRepo) ListRegradeMotives(_ context.Context) ([]RegradeMotive, error) {
	var ms []RegradeMotive
	for _, m := range r.motives {
		ms = append(ms, m)
	}
	return ms, nil
}

func (r *fakeRepo) GetMarker(_ context.Context, _, userID int) (Marker, bool, error) {
	m, ok := r.markers[userID]
	return m, ok, nil
}

func (r *fakeRepo) NextSubmission(_ context.Context, _ NextQuery) (int, error) {
	return r.next, nil
}

type fakeDirectory map[int]user.User

func (d fakeDirectory) GetByID(id int) (user.User, error) {
	u, ok := d[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

type fakeCaps map[int]Capabilities

func (c fakeCaps) Resolve(_ context.Context, usr user.User, _ Activity) (Capabilities, error) {
	return c[usr.ID], nil
}

type fakeAudit struct{ events []AuditEvent }

func (a *fakeAudit) Record(_ context.Context, ev AuditEvent) { a.events = append(a.events, ev) }

func (a *fakeAudit) names() []string {
	var ns []string
	for _, ev := range a.events {
		ns = append(ns, ev.Name)
	}
	return ns
}

type fakeRenderer struct{ fail bool }

func (r fakeRenderer) Rotate(_ context.Context, p Page) (Page, error) {
	if r.fail {
		p.ImageURL = ""
		return p, nil
	}
	p.ImageURL = p.ImageURL + "?r"
	p.AnonymousImageURL = p.AnonymousImageURL + "?r"
	p.Width, p.Height = p.Height, p.Width
	return p, nil
}

type fakeFinalizer struct{}

func (fakeFinalizer) Finalize(_ context.Context, _ Activity, _ Submission, d Draft) (float64, error) {
	return d.Grade, nil
}

type fixture struct {
	svc   Service
	repo  *fakeRepo
	audit *fakeAudit
}

// newFixture seeds activity 1 / submission 10 / draft 20 with two pages,
// one rubric level and one motive. User 3 is a marker, 9 a teacher, 7 the
// student owning the submission.
func newFixture(t *testing.T, mutate func(*fakeRepo)) fixture {
	t.Helper()

	repo := newFakeRepo()
	repo.activities[1] = Activity{ID: 1, Name: "Final Exam", Anonymous: AnonymousStudent, GradeScale: 7}
	repo.submissions[10] = Submission{ID: 10, ActivityID: 1, StudentID: null.IntFrom(7), Status: StatusGrading}
	repo.drafts[20] = Draft{ID: 20, SubmissionID: 10, ActivityID: 1, MarkerID: 3, Status: StatusGrading}
	repo.pages[31] = Page{ID: 31, SubmissionID: 10, PageNo: 1, ImageURL: "/img/31.png", AnonymousImageURL: "/img/31a.png", Width: 800, Height: 1100}
	repo.pages[32] = Page{ID: 32, SubmissionID: 10, PageNo: 2, ImageURL: "/img/32.png", AnonymousImageURL: "/img/32a.png", Width: 800, Height: 1100}
	repo.levels[40] = RubricLevel{ID: 40, CriterionID: 4, Definition: "Complete", Score: 2}
	repo.motives[50] = RegradeMotive{ID: 50, Description: "Addition error"}
	if mutate != nil {
		mutate(repo)
	}

	users := fakeDirectory{
		3: {ID: 3, Name: "Marie Marker", Username: "mmarker", Email: "mmarker@example.com"},
		7: {ID: 7, Name: "Sam Student", Username: "sstudent", Email: "sstudent@example.com"},
		9: {ID: 9, Name: "Tess Teacher", Username: "tteacher", Email: "tteacher@example.com"},
	}
	caps := fakeCaps{
		3: {CanGrade: true},
		7: {CanSubmit: true},
		9: {CanGrade: true, CanRegrade: true, CanSupervise: true, CanManageDelphi: true},
	}
	audit := &fakeAudit{}
	logger := core.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	svc := NewService(core.NewTestConfig(), repo, users, caps, audit, fakeRenderer{}, fakeFinalizer{}, nil, logger)
	return fixture{svc: svc, repo: repo, audit: audit}
}

func TestDispatchUnauthorized(t *testing.T) {
	f := newFixture(t, nil)
	outsider := user.User{ID: 99, Name: "Out Sider"}

	_, err := f.svc.Dispatch(context.Background(), outsider, Request{DraftID: 20, Action: ActionPing})
	assert.Equal(t, ErrUnauthorized, errors.Cause(err))
	assert.Equal(t, []string{"unauthorized_granted"}, f.audit.names())
}

func TestDispatchInvalidAction(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Dispatch(context.Background(), user.User{ID: 3}, Request{DraftID: 20, Action: "explode"})
	assert.Equal(t, ErrInvalidAction, errors.Cause(err))
	assert.Empty(t, f.audit.events)
}

func TestDispatchUnknownDraft(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Dispatch(context.Background(), user.User{ID: 3}, Request{DraftID: 404, Action: ActionPing})
	assert.True(t, IsNotFound(err))
}

func TestPing(t *testing.T) {
	f := newFixture(t, func(r *fakeRepo) {
		r.drafts[21] = Draft{ID: 21, SubmissionID: 10, ActivityID: 1, MarkerID: 9, Status: StatusPublished}
	})

	res, err := f.svc.Dispatch(context.Background(), user.User{ID: 3, Name: "Marie Marker", Username: "mmarker"}, Request{DraftID: 20, Action: ActionPing})
	require.NoError(t, err)

	ping, ok := res.(PingResult)
	require.True(t, ok)
	assert.Equal(t, 3, ping.User)
	assert.Equal(t, 7, ping.Student)
	assert.Equal(t, RoleMarker, ping.Role)
	assert.True(t, ping.StudentAnonymous)
	assert.False(t, ping.ReadOnly)
	assert.Equal(t, 2, ping.TotalTests)
	assert.Equal(t, 1, ping.InProgressTests)
	assert.Equal(t, 1, ping.PublishedTests)
	assert.Len(t, ping.Motives, 1)
}

func TestAddCommentAndMark(t *testing.T) {
	f := newFixture(t, nil)
	marker := user.User{ID: 3}

	res, err := f.svc.Dispatch(context.Background(), marker, Request{
		DraftID: 20, Action: ActionAddComment, PageNo: 1, Content: "show your work", PosX: 10, PosY: 20,
	})
	require.NoError(t, err)
	cr, ok := res.(CommentResult)
	require.True(t, ok)
	assert.NotZero(t, cr.ID)
	assert.Zero(t, cr.NewGrade) // free text never grades

	res, err = f.svc.Dispatch(context.Background(), marker, Request{
		DraftID: 20, Action: ActionAddMark, PageNo: 1, LevelID: 40, Bonus: 0.5,
	})
	require.NoError(t, err)
	mr := res.(CommentResult)
	assert.Equal(t, 2.5, mr.NewGrade)
	assert.Equal(t, 2.5, f.repo.drafts[20].Grade)

	assert.Equal(t, []string{"addcomment_added", "addmark_added"}, f.audit.names())
}

func TestMutationsReadonlyForStudent(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Dispatch(context.Background(), user.User{ID: 7}, Request{
		DraftID: 20, Action: ActionAddComment, PageNo: 1, Content: "nope",
	})
	assert.Equal(t, ErrUnauthorized, errors.Cause(err))
	// the attempt is still audited
	assert.Equal(t, []string{"addcomment_added"}, f.audit.names())
}

func TestDeleteMarkRecomputesGrade(t *testing.T) {
	f := newFixture(t, nil)
	marker := user.User{ID: 3}

	res, err := f.svc.Dispatch(context.Background(), marker, Request{DraftID: 20, Action: ActionAddMark, PageNo: 1, LevelID: 40})
	require.NoError(t, err)
	markID := res.(CommentResult).ID

	res, err = f.svc.Dispatch(context.Background(), marker, Request{DraftID: 20, Action: ActionDeleteMark, CommentID: markID})
	require.NoError(t, err)
	assert.Zero(t, res.(GradeResult).NewGrade)

	// deleting a free-text comment as a mark is a business-rule violation
	res, err = f.svc.Dispatch(context.Background(), marker, Request{DraftID: 20, Action: ActionAddComment, PageNo: 1, Content: "just a note"})
	require.NoError(t, err)
	commentID := res.(CommentResult).ID
	_, err = f.svc.Dispatch(context.Background(), marker, Request{DraftID: 20, Action: ActionDeleteMark, CommentID: commentID})
	assert.Equal(t, ErrInvalidOperation, errors.Cause(err))

	// and the reverse: a fresh mark may not be deleted as a plain comment
	res, err = f.svc.Dispatch(context.Background(), marker, Request{DraftID: 20, Action: ActionAddMark, PageNo: 1, LevelID: 40})
	require.NoError(t, err)
	_, err = f.svc.Dispatch(context.Background(), marker, Request{DraftID: 20, Action: ActionDeleteComment, CommentID: res.(CommentResult).ID})
	assert.Equal(t, ErrInvalidOperation, errors.Cause(err))
}

func TestUpdCommentRecomputesGrade(t *testing.T) {
	f := newFixture(t, nil)
	marker := user.User{ID: 3}

	res, err := f.svc.Dispatch(context.Background(), marker, Request{DraftID: 20, Action: ActionAddMark, PageNo: 1, LevelID: 40, Bonus: 0.5})
	require.NoError(t, err)
	markID := res.(CommentResult).ID
	assert.Equal(t, 2.5, res.(CommentResult).NewGrade)

	res, err = f.svc.Dispatch(context.Background(), marker, Request{
		DraftID: 20, Action: ActionUpdComment, CommentID: markID, LevelID: 40, Bonus: 1, Content: "rounded up",
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.(GradeResult).NewGrade)
	assert.Equal(t, 3.0, f.repo.drafts[20].Grade)
	assert.Equal(t, "rounded up", f.repo.comments[markID].Content)

	// annotations of other drafts are out of reach
	f.repo.comments[777] = Comment{ID: 777, DraftID: 99, Content: "not yours"}
	_, err = f.svc.Dispatch(context.Background(), marker, Request{DraftID: 20, Action: ActionUpdComment, CommentID: 777})
	assert.Equal(t, ErrInvalidOperation, errors.Cause(err))
}

func TestGetSubmissionMarkerIdentity(t *testing.T) {
	// student anonymity only: the owner sees who marked the work
	f := newFixture(t, func(r *fakeRepo) {
		d := r.drafts[20]
		d.Grade = 4.5
		r.drafts[20] = d
	})

	res, err := f.svc.Dispatch(context.Background(), user.User{ID: 7}, Request{DraftID: 20, Action: ActionGetSubmission})
	require.NoError(t, err)
	sr := res.(SubmissionResult)
	assert.Equal(t, 4.5, sr.Grade)
	assert.Equal(t, StatusGrading, sr.Status)
	assert.Zero(t, sr.AgreeLevel) // single draft, no dispersion
	assert.Equal(t, 3, sr.MarkerID)
	assert.Equal(t, "Marie Marker", sr.MarkerName)

	// both-anonymous: marker identity is blanked for the owner
	f = newFixture(t, func(r *fakeRepo) {
		a := r.activities[1]
		a.Anonymous = AnonymousBoth
		r.activities[1] = a
	})

	res, err = f.svc.Dispatch(context.Background(), user.User{ID: 7}, Request{DraftID: 20, Action: ActionGetSubmission})
	require.NoError(t, err)
	sr = res.(SubmissionResult)
	assert.Zero(t, sr.MarkerID)
	assert.Empty(t, sr.MarkerName)
	assert.Empty(t, sr.MarkerEmail)

	// the supervisor always sees the marker
	res, err = f.svc.Dispatch(context.Background(), user.User{ID: 9}, Request{DraftID: 20, Action: ActionGetSubmission})
	require.NoError(t, err)
	assert.Equal(t, 3, res.(SubmissionResult).MarkerID)
}

func TestAddRegradeReopensPublishedSubmission(t *testing.T) {
	f := newFixture(t, func(r *fakeRepo) {
		s := r.submissions[10]
		s.Status = StatusPublished
		r.submissions[10] = s
	})

	res, err := f.svc.Dispatch(context.Background(), user.User{ID: 9}, Request{
		DraftID: 20, Action: ActionAddRegrade, CriterionID: 4, MotiveID: 50, Motive: "sum is off by one",
	})
	require.NoError(t, err)
	rr := res.(RegradeResult)
	assert.Equal(t, StatusRegrading, rr.Status)
	assert.Equal(t, StatusRegrading, f.repo.submissions[10].Status)
}

func TestFinishMarkingPublishes(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Dispatch(context.Background(), user.User{ID: 3}, Request{DraftID: 20, Action: ActionFinishMarking})
	require.NoError(t, err)
	fr := res.(FinishResult)
	assert.Equal(t, StatusPublished, fr.Status)
	assert.Equal(t, StatusPublished, f.repo.drafts[20].Status)
	assert.Equal(t, StatusPublished, f.repo.submissions[10].Status)
}

func TestFinishMarkingWaitsForAllDrafts(t *testing.T) {
	f := newFixture(t, func(r *fakeRepo) {
		r.drafts[21] = Draft{ID: 21, SubmissionID: 10, ActivityID: 1, MarkerID: 9, Status: StatusGrading}
	})

	res, err := f.svc.Dispatch(context.Background(), user.User{ID: 3}, Request{DraftID: 20, Action: ActionFinishMarking})
	require.NoError(t, err)
	assert.Equal(t, StatusGrading, res.(FinishResult).Status)
	assert.Equal(t, StatusGrading, f.repo.submissions[10].Status)
}

func TestGetAllTabsAnonymity(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Dispatch(context.Background(), user.User{ID: 3}, Request{DraftID: 20, Action: ActionGetAllTabs})
	require.NoError(t, err)
	tabs := res.(TabsResult)
	require.Len(t, tabs.Pages, 2)
	// student anonymity applies: the anonymized variant is served
	assert.Equal(t, "/img/31a.png", tabs.Pages[0].ImageURL)
	assert.Equal(t, 1, tabs.Pages[0].PageNo)

	// the supervisor sees the real scan
	res, err = f.svc.Dispatch(context.Background(), user.User{ID: 9}, Request{DraftID: 20, Action: ActionGetAllTabs})
	require.NoError(t, err)
	assert.Equal(t, "/img/31.png", res.(TabsResult).Pages[0].ImageURL)
}

func TestGetAllTabsMarksOwnWorkSeen(t *testing.T) {
	f := newFixture(t, nil)

	// marking is still in progress, the view still counts as seen
	_, err := f.svc.Dispatch(context.Background(), user.User{ID: 7}, Request{DraftID: 20, Action: ActionGetAllTabs})
	require.NoError(t, err)
	assert.True(t, f.repo.submissions[10].SeenByStudent)
	firstSeen := f.repo.submissions[10].UpdatedAt
	assert.False(t, firstSeen.IsZero())

	// every view refreshes the timestamp
	_, err = f.svc.Dispatch(context.Background(), user.User{ID: 7}, Request{DraftID: 20, Action: ActionGetAllTabs})
	require.NoError(t, err)
	assert.True(t, f.repo.submissions[10].SeenByStudent)
	assert.False(t, f.repo.submissions[10].UpdatedAt.Before(firstSeen))

	// other principals viewing leave the flag untouched
	f2 := newFixture(t, nil)
	_, err = f2.svc.Dispatch(context.Background(), user.User{ID: 3}, Request{DraftID: 20, Action: ActionGetAllTabs})
	require.NoError(t, err)
	assert.False(t, f2.repo.submissions[10].SeenByStudent)
}

func TestSortPages(t *testing.T) {
	f := newFixture(t, nil)
	teacher := user.User{ID: 9}

	// non-permutations leave the order untouched
	for _, bad := range [][]int{{31}, {31, 31}, {31, 99}} {
		_, err := f.svc.Dispatch(context.Background(), teacher, Request{DraftID: 20, Action: ActionSortPages, NewOrder: bad})
		assert.Equal(t, ErrInvalidOperation, errors.Cause(err))
		assert.Equal(t, 1, f.repo.pages[31].PageNo)
		assert.Equal(t, 2, f.repo.pages[32].PageNo)
	}

	res, err := f.svc.Dispatch(context.Background(), teacher, Request{DraftID: 20, Action: ActionSortPages, NewOrder: []int{32, 31}})
	require.NoError(t, err)
	assert.Equal(t, []int{32, 31}, res.(SortResult).NewOrder)
	assert.Equal(t, 2, f.repo.pages[31].PageNo)
	assert.Equal(t, 1, f.repo.pages[32].PageNo)

	// markers may not resequence
	_, err = f.svc.Dispatch(context.Background(), user.User{ID: 3}, Request{DraftID: 20, Action: ActionSortPages, NewOrder: []int{31, 32}})
	assert.Equal(t, ErrUnauthorized, errors.Cause(err))
}

func TestRotatePage(t *testing.T) {
	f := newFixture(t, nil)
	teacher := user.User{ID: 9}

	// four quarter turns land back on the original orientation
	for i, wantRotation := range []int{90, 180, 270, 0} {
		res, err := f.svc.Dispatch(context.Background(), teacher, Request{DraftID: 20, Action: ActionRotatePage, PageNo: 1})
		require.NoError(t, err, "turn %d", i+1)
		assert.NotEmpty(t, res.(RotateResult).ImageURL)
		assert.Equal(t, wantRotation, f.repo.pages[31].Rotation)
	}
	// width/height swapped an even number of times
	assert.Equal(t, 800, f.repo.pages[31].Width)
	assert.Equal(t, 1100, f.repo.pages[31].Height)
}

func TestRotatePageEmptyRender(t *testing.T) {
	f := newFixture(t, nil)
	svc := NewService(core.NewTestConfig(), f.repo, fakeDirectory{7: {ID: 7}, 9: {ID: 9}}, fakeCaps{9: {CanGrade: true, CanSupervise: true}},
		f.audit, fakeRenderer{fail: true}, fakeFinalizer{}, nil, core.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags)))

	_, err := svc.Dispatch(context.Background(), user.User{ID: 9}, Request{DraftID: 20, Action: ActionRotatePage, PageNo: 1})
	assert.Equal(t, ErrEmptyResult, errors.Cause(err))
	// nothing persisted
	assert.Zero(t, f.repo.pages[31].Rotation)
}

func TestPrevComments(t *testing.T) {
	f := newFixture(t, nil)
	marker := user.User{ID: 3}

	for _, content := range []string{"check units", "check units", "nice proof"} {
		_, err := f.svc.Dispatch(context.Background(), marker, Request{DraftID: 20, Action: ActionAddComment, PageNo: 1, Content: content})
		require.NoError(t, err)
	}

	res, err := f.svc.Dispatch(context.Background(), marker, Request{DraftID: 20, Action: ActionPrevComments})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"check units", "nice proof"}, res.(PrevCommentsResult).Comments)
}

func TestGetNextSubmission(t *testing.T) {
	f := newFixture(t, func(r *fakeRepo) {
		r.next = 11
	})

	res, err := f.svc.Dispatch(context.Background(), user.User{ID: 3}, Request{DraftID: 20, Action: ActionGetNextSubmission})
	require.NoError(t, err)
	assert.Equal(t, 11, res.(NextResult).NextSubmission)
}
