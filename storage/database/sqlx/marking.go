package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/scanmark/backend/core/marking"
)

type markingRepository struct {
	db *sqlx.DB
}

var _ marking.Repository = (*markingRepository)(nil) // interface compliance check

func NewMarkingRepository(db *sqlx.DB) marking.Repository {
	return &markingRepository{db: db}
}

func (repo *markingRepository) GetActivity(ctx context.Context, id int) (marking.Activity, error) {
	var a marking.Activity
	err := repo.db.GetContext(ctx, &a, `
		SELECT id, course_id, name, type, anonymous, grade_min, grade_scale, heartbeat_enabled,
		       collaborative_features, link_rubric, group_mode, created_at, updated_at
		FROM activity WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return marking.Activity{}, marking.ErrActivityNotFound
		}
		return marking.Activity{}, errors.Wrap(err, "getting activity")
	}
	return a, nil
}

func (repo *markingRepository) GetSubmission(ctx context.Context, id int) (marking.Submission, error) {
	var s marking.Submission
	err := repo.db.GetContext(ctx, &s, `
		SELECT id, activity_id, student_id, group_id, status, seen_by_student, created_at, updated_at
		FROM submission WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return marking.Submission{}, marking.ErrSubmissionNotFound
		}
		return marking.Submission{}, errors.Wrap(err, "getting submission")
	}
	return s, nil
}

func (repo *markingRepository) UpdateSubmission(ctx context.Context, s marking.Submission) (marking.Submission, error) {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE submission SET status = $2, seen_by_student = $3, updated_at = $4 WHERE id = $1`,
		s.ID, s.Status, s.SeenByStudent, s.UpdatedAt,
	)
	if err != nil {
		return marking.Submission{}, errors.Wrap(err, "updating submission")
	}
	return s, nil
}

func (repo *markingRepository) GetDraft(ctx context.Context, id int) (marking.Draft, error) {
	var d marking.Draft
	err := repo.db.GetContext(ctx, &d, `
		SELECT id, submission_id, activity_id, marker_id, grade, status, created_at, updated_at
		FROM draft WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return marking.Draft{}, marking.ErrDraftNotFound
		}
		return marking.Draft{}, errors.Wrap(err, "getting draft")
	}
	return d, nil
}

func (repo *markingRepository) DraftsBySubmission(ctx context.Context, submissionID int) ([]marking.Draft, error) {
	var ds []marking.Draft
	err := repo.db.SelectContext(ctx, &ds, `
		SELECT id, submission_id, activity_id, marker_id, grade, status, created_at, updated_at
		FROM draft WHERE submission_id = $1 ORDER BY id`, submissionID)
	if err != nil {
		return nil, errors.Wrap(err, "listing drafts")
	}
	return ds, nil
}

func (repo *markingRepository) UpdateDraft(ctx context.Context, d marking.Draft) (marking.Draft, error) {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE draft SET grade = $2, status = $3, updated_at = $4 WHERE id = $1`,
		d.ID, d.Grade, d.Status, d.UpdatedAt,
	)
	if err != nil {
		return marking.Draft{}, errors.Wrap(err, "updating draft")
	}
	return d, nil
}

func (repo *markingRepository) DraftCounts(ctx context.Context, activityID int) (marking.DraftCounts, error) {
	var c struct {
		Total      int `db:"total"`
		InProgress int `db:"in_progress"`
		Published  int `db:"published"`
	}
	err := repo.db.GetContext(ctx, &c, `
		SELECT COUNT(*)                                 AS total,
		       COUNT(*) FILTER (WHERE status = $2)      AS in_progress,
		       COUNT(*) FILTER (WHERE status > $2)      AS published
		FROM draft WHERE activity_id = $1`,
		activityID, marking.StatusGrading,
	)
	if err != nil {
		return marking.DraftCounts{}, errors.Wrap(err, "counting drafts")
	}
	return marking.DraftCounts{Total: c.Total, InProgress: c.InProgress, Published: c.Published}, nil
}

// AgreementGroups returns, per submission, the grades of drafts carrying at
// least one comment. Submissions with a single qualifying draft are kept;
// the estimator decides what qualifies.
func (repo *markingRepository) AgreementGroups(ctx context.Context, activityID int) ([]marking.GradeGroup, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT d.submission_id, array_agg(d.grade ORDER BY d.id)
		FROM draft d
		WHERE d.activity_id = $1
		  AND EXISTS (SELECT 1 FROM comment c WHERE c.draft_id = d.id)
		GROUP BY d.submission_id
		ORDER BY d.submission_id`, activityID)
	if err != nil {
		return nil, errors.Wrap(err, "querying agreement groups")
	}
	defer func() { _ = rows.Close() }()

	var groups []marking.GradeGroup
	for rows.Next() {
		var g marking.GradeGroup
		var grades pq.Float64Array
		if err = rows.Scan(&g.SubmissionID, &grades); err != nil {
			return nil, errors.Wrap(err, "scanning agreement group")
		}
		g.Grades = grades
		groups = append(groups, g)
	}
	return groups, errors.Wrap(rows.Err(), "reading agreement groups")
}

const pageColumns = `id, submission_id, page_no, image_url, anonymous_image_url, width, height, rotation`

func (repo *markingRepository) ListPages(ctx context.Context, submissionID int) ([]marking.Page, error) {
	var ps []marking.Page
	err := repo.db.SelectContext(ctx, &ps, `
		SELECT `+pageColumns+` FROM page WHERE submission_id = $1 ORDER BY page_no`, submissionID)
	if err != nil {
		return nil, errors.Wrap(err, "listing pages")
	}
	return ps, nil
}

func (repo *markingRepository) GetPage(ctx context.Context, submissionID, pageNo int) (marking.Page, error) {
	var p marking.Page
	err := repo.db.GetContext(ctx, &p, `
		SELECT `+pageColumns+` FROM page WHERE submission_id = $1 AND page_no = $2`, submissionID, pageNo)
	if err != nil {
		if err == sql.ErrNoRows {
			return marking.Page{}, marking.ErrPageNotFound
		}
		return marking.Page{}, errors.Wrap(err, "getting page")
	}
	return p, nil
}

func (repo *markingRepository) UpdatePage(ctx context.Context, p marking.Page) (marking.Page, error) {
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		// serialize against concurrent resequencing of the same submission
		if _, err := tx.ExecContext(ctx,
			`SELECT id FROM page WHERE submission_id = $1 FOR UPDATE`, p.SubmissionID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE page SET image_url = $2, anonymous_image_url = $3, width = $4, height = $5, rotation = $6
			WHERE id = $1`,
			p.ID, p.ImageURL, p.AnonymousImageURL, p.Width, p.Height, p.Rotation,
		)
		return err
	})
	if err != nil {
		return marking.Page{}, errors.Wrap(err, "updating page")
	}
	return p, nil
}

func (repo *markingRepository) ReorderPages(ctx context.Context, submissionID int, order []int) error {
	idArr := make(pq.Int64Array, 0, len(order))
	for _, id := range order {
		idArr = append(idArr, int64(id))
	}
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`SELECT id FROM page WHERE submission_id = $1 FOR UPDATE`, submissionID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE page p SET page_no = o.ord
			FROM (SELECT unnest($2::bigint[]) AS id, generate_series(1, array_length($2::bigint[], 1)) AS ord) o
			WHERE p.id = o.id AND p.submission_id = $1`,
			submissionID, idArr,
		)
		return err
	})
	return errors.Wrap(err, "reordering pages")
}

const commentColumns = `c.id, c.draft_id, c.page_id, c.marker_id, COALESCE(u.name, '') AS marker_name,
	c.content, c.posx, c.posy, c.width, c.height, c.format, c.criterion_id, c.level_id,
	c.score, c.bonus, c.colour, c.created_at, c.updated_at`

func (repo *markingRepository) CreateComment(ctx context.Context, c marking.Comment) (marking.Comment, error) {
	err := repo.db.GetContext(ctx, &c.ID, `
		INSERT INTO comment (draft_id, page_id, marker_id, content, posx, posy, width, height,
		                     format, criterion_id, level_id, score, bonus, colour, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		c.DraftID, c.PageID, c.MarkerID, c.Content, c.PosX, c.PosY, c.Width, c.Height,
		c.Format, c.CriterionID, c.LevelID, c.Score, c.Bonus, c.Colour, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return marking.Comment{}, errors.Wrap(err, "creating comment")
	}
	return c, nil
}

func (repo *markingRepository) GetComment(ctx context.Context, id int) (marking.Comment, error) {
	var c marking.Comment
	err := repo.db.GetContext(ctx, &c, `
		SELECT `+commentColumns+`
		FROM comment c LEFT JOIN "user" u ON u.id = c.marker_id
		WHERE c.id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return marking.Comment{}, marking.ErrCommentNotFound
		}
		return marking.Comment{}, errors.Wrap(err, "getting comment")
	}
	return c, nil
}

func (repo *markingRepository) UpdateComment(ctx context.Context, c marking.Comment) (marking.Comment, error) {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE comment SET content = $2, criterion_id = $3, level_id = $4, score = $5, bonus = $6,
		                   colour = $7, updated_at = $8
		WHERE id = $1`,
		c.ID, c.Content, c.CriterionID, c.LevelID, c.Score, c.Bonus, c.Colour, c.UpdatedAt,
	)
	if err != nil {
		return marking.Comment{}, errors.Wrap(err, "updating comment")
	}
	return c, nil
}

func (repo *markingRepository) DeleteComment(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM comment WHERE id = $1`, id)
	return errors.Wrap(err, "deleting comment")
}

func (repo *markingRepository) ListComments(ctx context.Context, draftID int) ([]marking.Comment, error) {
	var cs []marking.Comment
	err := repo.db.SelectContext(ctx, &cs, `
		SELECT `+commentColumns+`
		FROM comment c LEFT JOIN "user" u ON u.id = c.marker_id
		WHERE c.draft_id = $1 ORDER BY c.id`, draftID)
	if err != nil {
		return nil, errors.Wrap(err, "listing comments")
	}
	return cs, nil
}

func (repo *markingRepository) PreviousComments(ctx context.Context, activityID, limit int) ([]string, error) {
	var texts []string
	err := repo.db.SelectContext(ctx, &texts, `
		SELECT content FROM (
			SELECT DISTINCT ON (c.content) c.content, c.created_at
			FROM comment c
			JOIN draft d ON d.id = c.draft_id
			WHERE d.activity_id = $1 AND c.content <> ''
			ORDER BY c.content, c.created_at DESC
		) t
		ORDER BY t.created_at DESC
		LIMIT $2`, activityID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing previous comments")
	}
	return texts, nil
}

// RecomputeGrade re-aggregates the draft grade from the authoritative mark
// set in a single statement, so concurrent annotations can never leave a
// stale increment behind.
func (repo *markingRepository) RecomputeGrade(ctx context.Context, draftID int) (float64, error) {
	var grade float64
	err := repo.db.GetContext(ctx, &grade, `
		UPDATE draft d SET grade = agg.grade
		FROM (
			SELECT COALESCE(SUM(score + bonus), 0) AS grade
			FROM comment WHERE draft_id = $1 AND level_id > 0
		) agg
		WHERE d.id = $1
		RETURNING d.grade`, draftID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, marking.ErrDraftNotFound
		}
		return 0, errors.Wrap(err, "recomputing grade")
	}
	return grade, nil
}

func (repo *markingRepository) GetRubricLevel(ctx context.Context, id int) (marking.RubricLevel, error) {
	var l marking.RubricLevel
	err := repo.db.GetContext(ctx, &l, `
		SELECT id, criterion_id, definition, score FROM rubric_level WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return marking.RubricLevel{}, marking.ErrInvalidOperation
		}
		return marking.RubricLevel{}, errors.Wrap(err, "getting rubric level")
	}
	return l, nil
}

func (repo *markingRepository) RubricSnapshot(ctx context.Context, draftID int) ([]marking.RubricRow, error) {
	var rows []marking.RubricRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT cr.id                    AS criterion_id,
		       cr.description           AS criterion,
		       COALESCE(c.level_id, 0)  AS level_id,
		       COALESCE(l.definition, '') AS definition,
		       COALESCE(c.score, 0)     AS score,
		       COALESCE(c.bonus, 0)     AS bonus,
		       COALESCE(c.id, 0)        AS comment_id
		FROM rubric_criterion cr
		JOIN activity a ON a.id = cr.activity_id
		JOIN draft d ON d.activity_id = a.id AND d.id = $1
		LEFT JOIN comment c ON c.draft_id = d.id AND c.criterion_id = cr.id AND c.level_id > 0
		LEFT JOIN rubric_level l ON l.id = c.level_id
		ORDER BY cr.sort_order`, draftID)
	if err != nil {
		return nil, errors.Wrap(err, "loading rubric snapshot")
	}
	return rows, nil
}

func (repo *markingRepository) CreateRegrade(ctx context.Context, r marking.Regrade) (marking.Regrade, error) {
	err := repo.db.GetContext(ctx, &r.ID, `
		INSERT INTO regrade (draft_id, criterion_id, motive_id, comment, accepted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		r.DraftID, r.CriterionID, r.MotiveID, r.Comment, r.Accepted, r.CreatedAt,
	)
	if err != nil {
		return marking.Regrade{}, errors.Wrap(err, "creating regrade")
	}
	return r, nil
}

func (repo *markingRepository) GetRegradeMotive(ctx context.Context, id int) (marking.RegradeMotive, error) {
	var m marking.RegradeMotive
	err := repo.db.GetContext(ctx, &m, `SELECT id, description FROM regrade_motive WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return marking.RegradeMotive{}, marking.ErrMotiveNotFound
		}
		return marking.RegradeMotive{}, errors.Wrap(err, "getting regrade motive")
	}
	return m, nil
}

func (repo *markingRepository) ListRegradeMotives(ctx context.Context) ([]marking.RegradeMotive, error) {
	var ms []marking.RegradeMotive
	err := repo.db.SelectContext(ctx, &ms, `SELECT id, description FROM regrade_motive ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "listing regrade motives")
	}
	return ms, nil
}

func (repo *markingRepository) GetMarker(ctx context.Context, activityID, userID int) (marking.Marker, bool, error) {
	var m marking.Marker
	err := repo.db.GetContext(ctx, &m, `
		SELECT activity_id, user_id, group_id FROM marker WHERE activity_id = $1 AND user_id = $2`,
		activityID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return marking.Marker{}, false, nil
		}
		return marking.Marker{}, false, errors.Wrap(err, "getting marker")
	}
	return m, true, nil
}

func (repo *markingRepository) NextSubmission(ctx context.Context, q marking.NextQuery) (int, error) {
	query := `
		SELECT s.id FROM submission s
		WHERE s.activity_id = $1 AND s.id <> $2
		  AND s.status >= $3 AND s.status < $4`
	args := []interface{}{q.ActivityID, q.CurrentSubmissionID, marking.StatusSubmitted, marking.StatusPublished}
	if q.GroupID.Valid {
		args = append(args, q.GroupID.Int)
		query += ` AND s.group_id = $5`
	}

	switch q.Policy {
	case "dispersion":
		// hardest disagreements first
		query += `
		  ORDER BY (
			SELECT COALESCE(2 * stddev_pop(d.grade), 0)
			FROM draft d
			WHERE d.submission_id = s.id
			  AND EXISTS (SELECT 1 FROM comment c WHERE c.draft_id = d.id)
		  ) DESC NULLS LAST, s.id`
	default:
		query += ` ORDER BY s.id`
	}
	query += ` LIMIT 1`

	var id int
	if err := repo.db.GetContext(ctx, &id, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, errors.Wrap(err, "selecting next submission")
	}
	return id, nil
}

func (repo *markingRepository) inTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
