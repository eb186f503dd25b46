package models

// Viewer is the already-authenticated principal reading or acting on comments.
// A zero UserID means anonymous.
type Viewer struct {
	UserID  int64
	IsStaff bool
}

func Anonymous() Viewer {
	return Viewer{}
}

func (v Viewer) IsAuthenticated() bool {
	return v.UserID != 0
}

// CanSee applies the visibility rule: approved comments are public, pending
// ones are shown to their author and staff, rejected ones to staff only.
func (v Viewer) CanSee(c *Comment) bool {
	switch c.Status {
	case StatusApproved:
		return true
	case StatusPending:
		return v.IsStaff || (v.IsAuthenticated() && v.UserID == c.AuthorID)
	case StatusRejected:
		return v.IsStaff
	}
	return false
}
