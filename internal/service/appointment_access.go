package service

import "github.com/collegesync/collegesync-api/internal/models"

// AppointmentOwnership carries the ownership facts of a target appointment:
// the student it was created for (nil when teacher-initiated) and the
// creation-time snapshot of the subject's teacher.
type AppointmentOwnership struct {
	StudentID *string
	TeacherID string
}

// AppointmentPermissions is the per-appointment decision set handed to the
// presentation layer.
type AppointmentPermissions struct {
	CanView   bool `json:"can_view"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

// AppointmentAccess decides whether a viewer may view, edit or delete an
// appointment. Decisions are pure functions of the viewer and the target's
// ownership; admins are granted before any profile id is compared, so an
// admin with no profile never trips over a missing id.
type AppointmentAccess struct{}

// CanView reports whether the viewer may open the appointment's details.
// Viewing and editing share the same rule.
func (AppointmentAccess) CanView(viewer models.Viewer, target AppointmentOwnership) bool {
	return AppointmentAccess{}.CanEdit(viewer, target)
}

// CanEdit grants admins unconditionally, students who own the appointment,
// and the teacher whose subject it was created on.
func (AppointmentAccess) CanEdit(viewer models.Viewer, target AppointmentOwnership) bool {
	switch viewer.Role {
	case models.RoleAdmin:
		return true
	case models.RoleStudent:
		return viewer.ProfileID != "" && target.StudentID != nil && *target.StudentID == viewer.ProfileID
	case models.RoleTeacher:
		return viewer.ProfileID != "" && target.TeacherID == viewer.ProfileID
	default:
		return false
	}
}

// CanDelete is stricter than CanEdit: only the owning student or an admin
// may delete. Teachers cannot delete appointments even on their own
// subjects; that asymmetry is current policy and is pinned by tests.
func (AppointmentAccess) CanDelete(viewer models.Viewer, target AppointmentOwnership) bool {
	switch viewer.Role {
	case models.RoleAdmin:
		return true
	case models.RoleStudent:
		return viewer.ProfileID != "" && target.StudentID != nil && *target.StudentID == viewer.ProfileID
	default:
		return false
	}
}

// Permissions evaluates the full decision set in one pass.
func (a AppointmentAccess) Permissions(viewer models.Viewer, target AppointmentOwnership) AppointmentPermissions {
	edit := a.CanEdit(viewer, target)
	return AppointmentPermissions{
		CanView:   edit,
		CanEdit:   edit,
		CanDelete: a.CanDelete(viewer, target),
	}
}
