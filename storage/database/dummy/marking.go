package dummydb

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/scanmark/backend/core/marking"
)

type markingRepository struct {
	db *DB
}

var _ marking.Repository = (*markingRepository)(nil) // interface compliance check

func NewMarkingRepository(db *DB) marking.Repository {
	return &markingRepository{db: db}
}

// Seed helpers for tests and local development.

func (db *DB) AddActivity(a marking.Activity) marking.Activity {
	db.mu.Lock()
	defer db.mu.Unlock()
	if a.ID == 0 {
		a.ID = db.pk()
	}
	db.marking.activities[a.ID] = a
	return a
}

func (db *DB) AddSubmission(s marking.Submission) marking.Submission {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s.ID == 0 {
		s.ID = db.pk()
	}
	db.marking.submissions[s.ID] = s
	return s
}

func (db *DB) AddDraft(d marking.Draft) marking.Draft {
	db.mu.Lock()
	defer db.mu.Unlock()
	if d.ID == 0 {
		d.ID = db.pk()
	}
	db.marking.drafts[d.ID] = d
	return d
}

func (db *DB) AddPage(p marking.Page) marking.Page {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.ID == 0 {
		p.ID = db.pk()
	}
	db.marking.pages[p.ID] = p
	return p
}

func (db *DB) AddRubricLevel(activityID int, criterionDesc string, l marking.RubricLevel) marking.RubricLevel {
	db.mu.Lock()
	defer db.mu.Unlock()
	if l.CriterionID == 0 {
		l.CriterionID = db.pk()
	}
	var known bool
	for _, cr := range db.marking.criteria {
		if cr.ID == l.CriterionID {
			known = true
			break
		}
	}
	if !known {
		db.marking.criteria = append(db.marking.criteria, criterion{ID: l.CriterionID, ActivityID: activityID, Description: criterionDesc})
	}
	if l.ID == 0 {
		l.ID = db.pk()
	}
	db.marking.levels[l.ID] = l
	return l
}

func (db *DB) AddRegradeMotive(m marking.RegradeMotive) marking.RegradeMotive {
	db.mu.Lock()
	defer db.mu.Unlock()
	if m.ID == 0 {
		m.ID = db.pk()
	}
	db.marking.motives[m.ID] = m
	return m
}

func (db *DB) AddMarker(m marking.Marker) marking.Marker {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.marking.markers[markerKey{m.ActivityID, m.UserID}] = m
	return m
}

// Repository implementation

func (repo *markingRepository) GetActivity(_ context.Context, id int) (marking.Activity, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if a, ok := repo.db.marking.activities[id]; ok {
		return a, nil
	}
	return marking.Activity{}, marking.ErrActivityNotFound
}

func (repo *markingRepository) GetSubmission(_ context.Context, id int) (marking.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if s, ok := repo.db.marking.submissions[id]; ok {
		return s, nil
	}
	return marking.Submission{}, marking.ErrSubmissionNotFound
}

func (repo *markingRepository) UpdateSubmission(_ context.Context, s marking.Submission) (marking.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.marking.submissions[s.ID]; !ok {
		return marking.Submission{}, marking.ErrSubmissionNotFound
	}
	repo.db.marking.submissions[s.ID] = s
	return s, nil
}

func (repo *markingRepository) GetDraft(_ context.Context, id int) (marking.Draft, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if d, ok := repo.db.marking.drafts[id]; ok {
		return d, nil
	}
	return marking.Draft{}, marking.ErrDraftNotFound
}

func (repo *markingRepository) DraftsBySubmission(_ context.Context, submissionID int) ([]marking.Draft, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	var ds []marking.Draft
	for _, d := range repo.db.marking.drafts {
		if d.SubmissionID == submissionID {
			ds = append(ds, d)
		}
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].ID < ds[j].ID })
	return ds, nil
}

func (repo *markingRepository) UpdateDraft(_ context.Context, d marking.Draft) (marking.Draft, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.marking.drafts[d.ID]; !ok {
		return marking.Draft{}, marking.ErrDraftNotFound
	}
	repo.db.marking.drafts[d.ID] = d
	return d, nil
}

func (repo *markingRepository) DraftCounts(_ context.Context, activityID int) (marking.DraftCounts, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	var c marking.DraftCounts
	for _, d := range repo.db.marking.drafts {
		if d.ActivityID != activityID {
			continue
		}
		c.Total++
		switch {
		case d.Status == marking.StatusGrading:
			c.InProgress++
		case d.Status > marking.StatusGrading:
			c.Published++
		}
	}
	return c, nil
}

func (repo *markingRepository) AgreementGroups(_ context.Context, activityID int) ([]marking.GradeGroup, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	commented := make(map[int]bool)
	for _, c := range repo.db.marking.comments {
		commented[c.DraftID] = true
	}

	bySub := make(map[int][]float64)
	for _, d := range repo.db.marking.drafts {
		if d.ActivityID == activityID && commented[d.ID] {
			bySub[d.SubmissionID] = append(bySub[d.SubmissionID], d.Grade)
		}
	}
	groups := make([]marking.GradeGroup, 0, len(bySub))
	for id, grades := range bySub {
		groups = append(groups, marking.GradeGroup{SubmissionID: id, Grades: grades})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].SubmissionID < groups[j].SubmissionID })
	return groups, nil
}

func (repo *markingRepository) ListPages(_ context.Context, submissionID int) ([]marking.Page, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	var ps []marking.Page
	for _, p := range repo.db.marking.pages {
		if p.SubmissionID == submissionID {
			ps = append(ps, p)
		}
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].PageNo < ps[j].PageNo })
	return ps, nil
}

func (repo *markingRepository) GetPage(_ context.Context, submissionID, pageNo int) (marking.Page, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	for _, p := range repo.db.marking.pages {
		if p.SubmissionID == submissionID && p.PageNo == pageNo {
			return p, nil
		}
	}
	return marking.Page{}, marking.ErrPageNotFound
}

func (repo *markingRepository) UpdatePage(_ context.Context, p marking.Page) (marking.Page, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.marking.pages[p.ID]; !ok {
		return marking.Page{}, marking.ErrPageNotFound
	}
	repo.db.marking.pages[p.ID] = p
	return p, nil
}

func (repo *markingRepository) ReorderPages(_ context.Context, submissionID int, order []int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for i, id := range order {
		p, ok := repo.db.marking.pages[id]
		if !ok || p.SubmissionID != submissionID {
			return marking.ErrPageNotFound
		}
		p.PageNo = i + 1
		repo.db.marking.pages[id] = p
	}
	return nil
}

func (repo *markingRepository) CreateComment(_ context.Context, c marking.Comment) (marking.Comment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	c.ID = repo.db.pk()
	if usr, ok := repo.db.users[c.MarkerID]; ok {
		c.MarkerName = usr.Name
	}
	repo.db.marking.comments[c.ID] = c
	return c, nil
}

func (repo *markingRepository) GetComment(_ context.Context, id int) (marking.Comment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if c, ok := repo.db.marking.comments[id]; ok {
		return c, nil
	}
	return marking.Comment{}, marking.ErrCommentNotFound
}

func (repo *markingRepository) UpdateComment(_ context.Context, c marking.Comment) (marking.Comment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.marking.comments[c.ID]; !ok {
		return marking.Comment{}, marking.ErrCommentNotFound
	}
	repo.db.marking.comments[c.ID] = c
	return c, nil
}

func (repo *markingRepository) DeleteComment(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	delete(repo.db.marking.comments, id)
	return nil
}

func (repo *markingRepository) ListComments(_ context.Context, draftID int) ([]marking.Comment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	var cs []marking.Comment
	for _, c := range repo.db.marking.comments {
		if c.DraftID == draftID {
			cs = append(cs, c)
		}
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
	return cs, nil
}

func (repo *markingRepository) PreviousComments(_ context.Context, activityID, limit int) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var cs []marking.Comment
	for _, c := range repo.db.marking.comments {
		d, ok := repo.db.marking.drafts[c.DraftID]
		if ok && d.ActivityID == activityID && strings.TrimSpace(c.Content) != "" {
			cs = append(cs, c)
		}
	}
	// most recent first, distinct
	sort.Slice(cs, func(i, j int) bool { return cs[i].CreatedAt.After(cs[j].CreatedAt) })
	seen := make(map[string]bool)
	var texts []string
	for _, c := range cs {
		if seen[c.Content] {
			continue
		}
		seen[c.Content] = true
		texts = append(texts, c.Content)
		if len(texts) == limit {
			break
		}
	}
	return texts, nil
}

func (repo *markingRepository) RecomputeGrade(_ context.Context, draftID int) (float64, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	d, ok := repo.db.marking.drafts[draftID]
	if !ok {
		return 0, marking.ErrDraftNotFound
	}
	var grade float64
	for _, c := range repo.db.marking.comments {
		if c.DraftID == draftID && c.IsMark() {
			grade += c.Score + c.Bonus
		}
	}
	d.Grade = grade
	repo.db.marking.drafts[draftID] = d
	return grade, nil
}

func (repo *markingRepository) GetRubricLevel(_ context.Context, id int) (marking.RubricLevel, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if l, ok := repo.db.marking.levels[id]; ok {
		return l, nil
	}
	return marking.RubricLevel{}, marking.ErrInvalidOperation
}

func (repo *markingRepository) RubricSnapshot(_ context.Context, draftID int) ([]marking.RubricRow, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	d, ok := repo.db.marking.drafts[draftID]
	if !ok {
		return nil, marking.ErrDraftNotFound
	}

	var rows []marking.RubricRow
	for _, cr := range repo.db.marking.criteria {
		if cr.ActivityID != d.ActivityID {
			continue
		}
		row := marking.RubricRow{CriterionID: cr.ID, Criterion: cr.Description}
		for _, c := range repo.db.marking.comments {
			if c.DraftID == draftID && c.CriterionID == cr.ID && c.IsMark() {
				row.LevelID = c.LevelID
				row.Score = c.Score
				row.Bonus = c.Bonus
				row.CommentID = c.ID
				if l, ok := repo.db.marking.levels[c.LevelID]; ok {
					row.Definition = l.Definition
				}
				break
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (repo *markingRepository) CreateRegrade(_ context.Context, r marking.Regrade) (marking.Regrade, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	r.ID = repo.db.pk()
	repo.db.marking.regrades[r.ID] = r
	return r, nil
}

func (repo *markingRepository) GetRegradeMotive(_ context.Context, id int) (marking.RegradeMotive, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if m, ok := repo.db.marking.motives[id]; ok {
		return m, nil
	}
	return marking.RegradeMotive{}, marking.ErrMotiveNotFound
}

func (repo *markingRepository) ListRegradeMotives(_ context.Context) ([]marking.RegradeMotive, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	ms := make([]marking.RegradeMotive, 0, len(repo.db.marking.motives))
	for _, m := range repo.db.marking.motives {
		ms = append(ms, m)
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].ID < ms[j].ID })
	return ms, nil
}

func (repo *markingRepository) GetMarker(_ context.Context, activityID, userID int) (marking.Marker, bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	m, ok := repo.db.marking.markers[markerKey{activityID, userID}]
	return m, ok, nil
}

func (repo *markingRepository) NextSubmission(ctx context.Context, q marking.NextQuery) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	type candidate struct {
		id         int
		dispersion float64
	}
	var cands []candidate
	for _, s := range repo.db.marking.submissions {
		if s.ActivityID != q.ActivityID || s.ID == q.CurrentSubmissionID {
			continue
		}
		if s.Status < marking.StatusSubmitted || s.Status >= marking.StatusPublished {
			continue
		}
		if q.GroupID.Valid && (!s.GroupID.Valid || s.GroupID.Int != q.GroupID.Int) {
			continue
		}
		cands = append(cands, candidate{id: s.ID, dispersion: repo.dispersion(s.ID)})
	}
	if len(cands) == 0 {
		return 0, nil
	}

	sort.Slice(cands, func(i, j int) bool {
		if q.Policy == "dispersion" && cands[i].dispersion != cands[j].dispersion {
			return cands[i].dispersion > cands[j].dispersion
		}
		return cands[i].id < cands[j].id
	})
	return cands[0].id, nil
}

// dispersion is the unscaled grade spread of a submission's drafts; only
// relative order matters for next-submission selection.
func (repo *markingRepository) dispersion(submissionID int) float64 {
	var grades []float64
	for _, d := range repo.db.marking.drafts {
		if d.SubmissionID == submissionID {
			grades = append(grades, d.Grade)
		}
	}
	if len(grades) < 2 {
		return 0
	}
	var mean float64
	for _, g := range grades {
		mean += g
	}
	mean /= float64(len(grades))
	var sq float64
	for _, g := range grades {
		sq += (g - mean) * (g - mean)
	}
	return math.Sqrt(sq / float64(len(grades)))
}
