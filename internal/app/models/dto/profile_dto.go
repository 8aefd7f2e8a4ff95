package dto

// ChildInfo is one linked child on a parent's profile
type ChildInfo struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ProfileResponse is the viewer's own profile, including linked children for
// parent accounts
type ProfileResponse struct {
	ID            int64       `json:"id"`
	Email         string      `json:"email"`
	FirstName     string      `json:"firstName"`
	LastName      string      `json:"lastName"`
	RoleType      string      `json:"roleType"`
	ActiveChildID *int64      `json:"activeChildId,omitempty"`
	Children      []ChildInfo `json:"children,omitempty"`
}

// SetActiveChildRequest selects which linked child a parent is viewing
type SetActiveChildRequest struct {
	ChildID int64 `json:"childId" binding:"required"`
}
