package marking

import (
	"context"

	"github.com/pkg/errors"
)

// ping validates the session and returns the client bootstrap payload:
// principal, role, anonymity flags, progress counters, the activity-wide
// agreement level and the activity configuration echo.
func (svc *service) ping(ctx context.Context, rc *requestContext) (interface{}, error) {
	counts, err := svc.draftCounts(ctx, rc.activity.ID)
	if err != nil {
		return nil, errors.Wrap(err, "counting drafts")
	}
	agree, err := svc.activityAgreement(ctx, rc.activity)
	if err != nil {
		return nil, errors.Wrap(err, "computing agreement")
	}
	motives, err := svc.repo.ListRegradeMotives(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing regrade motives")
	}

	res := PingResult{
		User:             rc.usr.ID,
		Username:         rc.usr.Name,
		RealUsername:     rc.usr.Username,
		Role:             rc.access.Role,
		GroupID:          rc.activity.ID,
		AdminEmail:       svc.conf.SupportEmail,
		StudentAnonymous: rc.access.StudentAnonymous,
		MarkerAnonymous:  rc.access.MarkerAnonymous,
		ReadOnly:         rc.access.ReadOnly,
		Supervisor:       rc.access.IsSupervisor,
		ManageDelphi:     rc.caps.CanManageDelphi,
		MarkingType:      rc.activity.Type,
		TotalTests:       counts.Total,
		InProgressTests:  counts.InProgress,
		PublishedTests:   counts.Published,
		Heartbeat:        rc.activity.HeartbeatEnabled,
		LinkRubric:       rc.activity.LinkRubric,
		Collaborative:    rc.activity.CollaborativeFeatures,
		AgreeLevel:       agree,
		Motives:          motives,
		RealtimeServer:   svc.conf.Marking.RealtimeServer,
		Version:          svc.conf.Build,
	}
	if rc.hasStudent {
		res.Student = rc.student.ID
	}
	return res, nil
}

// draftCounts reads the progress counters through the optional cache.
func (svc *service) draftCounts(ctx context.Context, activityID int) (DraftCounts, error) {
	if svc.cache != nil {
		if c, ok := svc.cache.GetCounts(ctx, activityID); ok {
			return c, nil
		}
	}
	counts, err := svc.repo.DraftCounts(ctx, activityID)
	if err != nil {
		return DraftCounts{}, err
	}
	if svc.cache != nil {
		svc.cache.SetCounts(ctx, activityID, counts)
	}
	return counts, nil
}

// activityAgreement reads the activity-wide agreement level through the
// optional cache.
func (svc *service) activityAgreement(ctx context.Context, a Activity) (float64, error) {
	if svc.cache != nil {
		if level, ok := svc.cache.GetAgreement(ctx, a.ID); ok {
			return level, nil
		}
	}
	groups, err := svc.repo.AgreementGroups(ctx, a.ID)
	if err != nil {
		return 0, err
	}
	level := ActivityAgreement(groups, svc.gradeScale(a))
	if svc.cache != nil {
		svc.cache.SetAgreement(ctx, a.ID, level)
	}
	return level, nil
}

// gradeScale is the activity's full grade span, falling back to the
// configured default when the activity does not define one.
func (svc *service) gradeScale(a Activity) float64 {
	if a.GradeScale > 0 {
		return a.GradeScale
	}
	return svc.conf.Marking.GradeScale
}
