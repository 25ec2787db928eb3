package changerequest

// Principal identifies the acting user. Either field may be empty;
// identity checks match on whichever is set.
type Principal struct {
	UID   string `json:"uid" bson:"uid"`
	Email string `json:"email" bson:"email"`
}

// Authenticated returns true if the principal carries any identity.
func (p Principal) Authenticated() bool {
	return p.UID != "" || p.Email != ""
}

// Is reports whether userID refers to this principal, matching either
// the uid or the email.
func (p Principal) Is(userID string) bool {
	if userID == "" {
		return false
	}
	return (p.UID != "" && p.UID == userID) || (p.Email != "" && p.Email == userID)
}

// Same reports whether other refers to the same user, matching on
// either identifier.
func (p Principal) Same(other Principal) bool {
	return p.Is(other.UID) || p.Is(other.Email)
}

// ID returns the preferred identifier for persistence: the uid when
// present, otherwise the email.
func (p Principal) ID() string {
	if p.UID != "" {
		return p.UID
	}
	return p.Email
}
