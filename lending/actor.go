package lending

import (
	"context"
	"database/sql/driver"
	"fmt"
)

// Role is the closed set of principal roles known to the circulation core.
// Members hold loans; librarians and admins perform issue and return actions.
type Role int

const (
	// RoleUnknown is the zero value and never a valid role.
	RoleUnknown Role = iota

	// RoleStudent is a member who can hold loans.
	RoleStudent

	// RoleFaculty is a member who can hold loans.
	RoleFaculty

	// RoleAdmin can hold loans and perform any staff action.
	RoleAdmin

	// RoleLibrarian is a staff actor who issues and accepts returns.
	RoleLibrarian
)

const (
	roleStudent   = "student"
	roleFaculty   = "faculty"
	roleAdmin     = "admin"
	roleLibrarian = "librarian"
)

// String returns the storage representation of the role.
func (r Role) String() string {
	switch r {
	case RoleStudent:
		return roleStudent
	case RoleFaculty:
		return roleFaculty
	case RoleAdmin:
		return roleAdmin
	case RoleLibrarian:
		return roleLibrarian
	default:
		return "unknown"
	}
}

// ParseRole converts a storage representation back into a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case roleStudent:
		return RoleStudent, nil
	case roleFaculty:
		return RoleFaculty, nil
	case roleAdmin:
		return RoleAdmin, nil
	case roleLibrarian:
		return RoleLibrarian, nil
	default:
		return RoleUnknown, fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
}

// IsStaff reports whether the role may perform issue and return actions.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleLibrarian
}

// MarshalJSON encodes the role as its string representation.
func (r Role) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON decodes the string representation of the role.
func (r *Role) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("%w: invalid role", ErrValidation)
	}

	parsed, err := ParseRole(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}

	*r = parsed

	return nil
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	return r.String(), nil
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseRole(v)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	case []byte:
		return r.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
}

// Actor is the authenticated principal on whose behalf an operation runs.
// Authentication happens outside the core; the core trusts these values as
// already validated and carries them explicitly on the context instead of
// relying on ambient session state.
type Actor struct {
	MemberID MemberID
	StaffID  StaffID
	Role     Role
}

// actorContextKey is a private type to prevent context key collisions.
type actorContextKey struct{}

// WithActor returns a context carrying the acting principal.
//
// Example usage:
//
//	ctx = lending.WithActor(ctx, lending.Actor{StaffID: 1, Role: lending.RoleLibrarian})
//	loan, err := engine.IssueBook(ctx, cmd)
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFrom extracts the acting principal from the context.
// The second return value is false when no actor was attached.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
