package dashroute

import (
	"sort"

	"github.com/dalemusser/rosterhub/internal/domain/models"
)

// Panel is one item on a role dashboard. Lower priority sorts first.
type Panel struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Priority int    `json:"priority"`
}

var (
	attendeePanels = []Panel{
		{Key: "schedule", Title: "Schedule", Priority: 10},
		{Key: "announcements", Title: "Announcements", Priority: 40},
		{Key: "resources", Title: "Resources", Priority: 50},
	}
	leaderPanels = []Panel{
		{Key: "faction_management", Title: "Faction Management", Priority: 10},
		{Key: "reports", Title: "Reports", Priority: 40},
		{Key: "tasks", Title: "Tasks", Priority: 50},
	}
	leaderAdminPanels = []Panel{
		{Key: "leader_admin", Title: "Leader Administration", Priority: 20},
		{Key: "faction_settings", Title: "Faction Settings", Priority: 30},
	}
	facultyPanels = []Panel{
		{Key: "class_enrollments", Title: "Class Enrollments", Priority: 10},
		{Key: "resources", Title: "Resources", Priority: 20},
	}
	facultyAdminPanels = []Panel{
		{Key: "faculty_admin", Title: "Faculty Administration", Priority: 15},
		{Key: "class_management", Title: "Class Management", Priority: 30},
	}
	portalPanels = []Panel{
		{Key: "users", Title: "Users", Priority: 10},
		{Key: "organizations", Title: "Organizations", Priority: 20},
	}
)

// Panels lists the dashboard panels for u's role in priority order.
// Admin users of the leader and faculty roles get extra panels.
func Panels(u *models.User) []Panel {
	if u == nil {
		return nil
	}
	var out []Panel
	switch u.UserType {
	case models.UserTypeAttendee:
		out = append(out, attendeePanels...)
	case models.UserTypeLeader:
		out = append(out, leaderPanels...)
		if u.IsAdmin {
			out = append(out, leaderAdminPanels...)
		}
	case models.UserTypeFaculty:
		out = append(out, facultyPanels...)
		if u.IsAdmin {
			out = append(out, facultyAdminPanels...)
		}
	case models.UserTypeAdmin:
		out = append(out, portalPanels...)
	default:
		return nil
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}
