package domain

// Actor is the already-authenticated caller of an operation.
type Actor struct {
	ID   string
	Role Role
}

// CanOwnSessions reports whether the actor may create and write sessions.
func (a Actor) CanOwnSessions() bool {
	return a.Role == RoleEmployee || a.Role == RoleManager
}

// CanViewRollups reports whether the actor may read cross-market aggregates.
func (a Actor) CanViewRollups() bool {
	return a.Role == RoleManager || a.Role == RoleAdmin
}

// CanRead reports whether the actor may read the given session.
func (a Actor) CanRead(s *Session) bool {
	return a.ID == s.OwnerID || a.CanViewRollups()
}
