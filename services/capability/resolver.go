package capabilitysvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/scanmark/backend/core/marking"
	"github.com/scanmark/backend/core/user"
)

// resolver maps account roles to grading capabilities. Teachers supervise
// every activity of their courses; markers only grade activities they are
// assigned to.
type resolver struct {
	repo marking.Repository
}

var _ marking.CapabilityResolver = (*resolver)(nil)

func NewResolver(repo marking.Repository) marking.CapabilityResolver {
	return &resolver{repo: repo}
}

func (r *resolver) Resolve(ctx context.Context, usr user.User, a marking.Activity) (marking.Capabilities, error) {
	var caps marking.Capabilities

	if usr.IsAdmin() {
		return marking.Capabilities{
			CanGrade:        true,
			CanRegrade:      true,
			CanSupervise:    true,
			CanManageDelphi: true,
			SiteAdmin:       true,
		}, nil
	}
	if usr.IsTeacher() {
		return marking.Capabilities{
			CanGrade:        true,
			CanRegrade:      true,
			CanSupervise:    true,
			CanManageDelphi: true,
		}, nil
	}
	if usr.IsMarker() {
		_, assigned, err := r.repo.GetMarker(ctx, a.ID, usr.ID)
		if err != nil {
			return marking.Capabilities{}, errors.Wrap(err, "resolving marker assignment")
		}
		caps.CanGrade = assigned
	}
	if usr.IsStudent() {
		caps.CanSubmit = true
	}
	return caps, nil
}
