package domain

import "time"

// UserRole enumerates the actor roles of the service desk.
type UserRole string

const (
	UserRoleRequester UserRole = "requester"
	UserRoleAgent     UserRole = "agent"
	UserRoleManager   UserRole = "manager"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleRequester, UserRoleAgent, UserRoleManager:
		return true
	}
	return false
}

// CanManageTickets reports whether the role works tickets (agent or manager).
func (r UserRole) CanManageTickets() bool {
	return r == UserRoleAgent || r == UserRoleManager
}

// User is any authenticated actor: requester, agent or manager.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	Role         UserRole
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanManageTickets reports whether the user works tickets.
func (u *User) CanManageTickets() bool {
	return u != nil && u.Role.CanManageTickets()
}

// Actor identifies who performs an operation.
type Actor struct {
	ID   string
	Role UserRole
	Name string
}

// ActorOf builds an Actor for u.
func ActorOf(u *User) Actor {
	return Actor{ID: u.ID, Role: u.Role, Name: u.FullName}
}

// DisplayName is the name used in system comments.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return string(a.Role)
}
