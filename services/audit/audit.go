package auditsvc

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/scanmark/backend/core"
	"github.com/scanmark/backend/core/marking"
)

// dbSink appends audit events to the audit_event table. Recording is
// fire-and-forget: a failed insert is logged and the request proceeds,
// auditing must never take the grading session down.
type dbSink struct {
	db     *sqlx.DB
	logger core.Logger
}

var _ marking.AuditSink = (*dbSink)(nil)

func NewDBSink(db *sqlx.DB, logger core.Logger) marking.AuditSink {
	return &dbSink{db: db, logger: logger}
}

func (s *dbSink) Record(ctx context.Context, ev marking.AuditEvent) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_event (id, name, activity_id, submission_id, draft_id, user_id, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.Name, ev.ActivityID, ev.SubmissionID, ev.DraftID, ev.UserID, ev.At,
	)
	if err != nil {
		s.logger.Error("recording audit event", err, "event", ev.Name)
	}
}

// logSink writes audit events to the application log; used when no
// database is around (tests, local dev on the in-memory store).
type logSink struct {
	logger core.Logger
}

var _ marking.AuditSink = (*logSink)(nil)

func NewLogSink(logger core.Logger) marking.AuditSink {
	return &logSink{logger: logger}
}

func (s *logSink) Record(_ context.Context, ev marking.AuditEvent) {
	s.logger.Info("audit", "name", ev.Name, "activity", ev.ActivityID,
		"submission", ev.SubmissionID, "draft", ev.DraftID, "user", ev.UserID)
}
