// internal/app/policy/meetingpolicy/meetingpolicy.go
package meetingpolicy

import (
	"net/http"

	"github.com/clarityhealth/claritymdt/internal/app/system/authz"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
)

// CanView reports whether the current user may read a meeting: managers
// see all meetings, everyone else only meetings they participate in.
func CanView(r *http.Request, m *models.Meeting) bool {
	role, _, uid, ok := authz.UserCtx(r)
	if !ok {
		return false
	}
	if role == authz.RoleAdmin || role == authz.RoleCoordinator {
		return true
	}
	for _, pid := range m.ParticipantIDs {
		if pid == uid {
			return true
		}
	}
	return false
}

// CanManage reports whether the current user may create, edit, or cancel
// meetings. Same rule as case management: admins and coordinators.
func CanManage(r *http.Request) bool {
	return authz.CanManageCases(r)
}
