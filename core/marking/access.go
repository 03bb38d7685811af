package marking

// Access is the principal's effective access to one submission, computed
// per request and never persisted.
type Access struct {
	Role             Role `json:"role"`
	ReadOnly         bool `json:"readonly"`
	StudentAnonymous bool `json:"studentanonymous"`
	MarkerAnonymous  bool `json:"markeranonymous"`
	IsSupervisor     bool `json:"supervisor"`
	IsGroupMode      bool `json:"groupmode"`
	OwnSubmission    bool `json:"-"`
}

// ResolveAccess derives role, writability and anonymity flags from the
// activity configuration, the submission's workflow status and the
// principal's capabilities. It is a pure function of its inputs.
func ResolveAccess(activity Activity, submission Submission, draft Draft, userID int, caps Capabilities) Access {
	acc := Access{IsGroupMode: activity.GroupMode}

	acc.IsSupervisor = caps.CanSupervise || caps.SiteAdmin

	// trainees never own the calibration submission
	own := submission.StudentID.Valid && submission.StudentID.Int == userID
	if activity.Type == TypeMarkerTraining {
		own = false
	}
	acc.OwnSubmission = own

	// a supervisor always sees real identities; a student viewing her own
	// work always sees her own identity
	acc.StudentAnonymous = activity.Anonymous.HidesStudent()
	if own || acc.IsSupervisor {
		acc.StudentAnonymous = false
	}
	acc.MarkerAnonymous = activity.Anonymous.HidesMarker()
	if acc.IsSupervisor {
		acc.MarkerAnonymous = false
	}

	switch {
	case caps.CanGrade && !acc.IsSupervisor:
		acc.Role = RoleMarker
	case caps.CanGrade && acc.IsSupervisor:
		acc.Role = RoleTeacher
	}

	// readonly by default for security
	acc.ReadOnly = true
	if (caps.CanGrade && submission.Status >= StatusSubmitted && submission.Status < StatusPublished) ||
		(caps.CanRegrade && submission.Status >= StatusPublished) {
		acc.ReadOnly = false
	}
	// in marker training only the draft's assigned marker may write
	if activity.Type == TypeMarkerTraining && draft.MarkerID != userID {
		acc.ReadOnly = true
	}

	return acc
}
