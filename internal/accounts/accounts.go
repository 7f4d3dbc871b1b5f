// Package accounts manages the people around the circulation core: members
// who borrow (students, faculty, admins) and the librarians who issue and
// return on their behalf. It owns the users table and credential
// verification; it never touches loan or book state. Deleting a member is
// guarded so nobody disappears while still holding books.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"libcirc/lending"
)

var (
	// ErrUserNotFound occurs when a referenced account does not exist.
	ErrUserNotFound = fmt.Errorf("%w: user does not exist", lending.ErrNotFound)

	// ErrEmailTaken occurs when another account already uses the email.
	ErrEmailTaken = fmt.Errorf("%w: email already registered", lending.ErrConflict)

	// ErrMemberHasOpenLoans occurs when a delete is attempted while the
	// member still holds books.
	ErrMemberHasOpenLoans = fmt.Errorf("%w: member has open loans", lending.ErrConflict)

	// ErrInvalidCredentials occurs when authentication fails. It deliberately
	// does not reveal whether the email or the password was wrong.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", lending.ErrValidation)

	// ErrMissingField occurs when a required account field is empty.
	ErrMissingField = fmt.Errorf("%w: name, email, and password are required", lending.ErrValidation)
)

// User is a library account: a member or a staff account, distinguished by role.
type User struct {
	ID           int64        `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	Email        string       `db:"email" json:"email"`
	Role         lending.Role `db:"role" json:"role"`
	PasswordHash string       `db:"password_hash" json:"-"`
}

// MemberID returns the account id typed for the lending core.
func (u User) MemberID() lending.MemberID {
	return lending.MemberID(u.ID)
}

// StaffID returns the account id typed for the lending core.
func (u User) StaffID() lending.StaffID {
	return lending.StaffID(u.ID)
}

// LoanGuard is the slice of the lending engine the accounts store needs:
// whether a member still holds open loans.
type LoanGuard interface {
	MemberHasOpenLoans(ctx context.Context, memberID lending.MemberID) (bool, error)
}

// Store provides account management over the users table.
type Store struct {
	db    *sqlx.DB
	guard LoanGuard
}

// NewStore creates an accounts store on the given database handle. The
// guard is consulted before deleting an account.
func NewStore(db *sqlx.DB, guard LoanGuard) *Store {
	return &Store{db: db, guard: guard}
}

// CreateSchema creates the users table and its unique email index if they do
// not exist yet. The DDL is portable between postgres and sqlite except for
// the id column, selected by serialID.
func (s *Store) CreateSchema(ctx context.Context, serialID string) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
	id %s,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	role TEXT NOT NULL,
	password_hash TEXT NOT NULL
)`, serialID),
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email)`,
	}

	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return errors.Join(lending.ErrOperationFailed, err)
		}
	}

	return nil
}

// SerialIDPostgres and SerialIDSQLite are the per-store id column variants
// for CreateSchema.
const (
	SerialIDPostgres = "BIGSERIAL PRIMARY KEY"
	SerialIDSQLite   = "INTEGER PRIMARY KEY AUTOINCREMENT"
)

// CreateUserParams carries the input for creating an account.
type CreateUserParams struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Role     lending.Role `json:"role"`
}

// CreateUser creates an account with a bcrypt password hash.
func (s *Store) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	name := strings.TrimSpace(params.Name)
	email := strings.ToLower(strings.TrimSpace(params.Email))

	if name == "" || email == "" || params.Password == "" {
		return User{}, ErrMissingField
	}

	if _, err := s.GetUserByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		return User{}, err
	}

	query := s.db.Rebind(`INSERT INTO users (name, email, role, password_hash) VALUES (?, ?, ?, ?)`)

	if _, err = s.db.ExecContext(ctx, query, name, email, params.Role.String(), hash); err != nil {
		return User{}, errors.Join(lending.ErrOperationFailed, err)
	}

	return s.GetUserByEmail(ctx, email)
}

// GetUser loads one account by id.
func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	var user User

	query := s.db.Rebind(`SELECT id, name, email, role, password_hash FROM users WHERE id = ?`)

	err := s.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}

	if err != nil {
		return User{}, errors.Join(lending.ErrOperationFailed, err)
	}

	return user, nil
}

// GetUserByEmail loads one account by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User

	query := s.db.Rebind(`SELECT id, name, email, role, password_hash FROM users WHERE email = ?`)

	err := s.db.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}

	if err != nil {
		return User{}, errors.Join(lending.ErrOperationFailed, err)
	}

	return user, nil
}

// ListUsers returns accounts, optionally filtered to one role, ordered by name.
func (s *Store) ListUsers(ctx context.Context, role lending.Role) ([]User, error) {
	query := `SELECT id, name, email, role, password_hash FROM users`

	var args []any

	if role != lending.RoleUnknown {
		query += ` WHERE role = ?`
		args = append(args, role.String())
	}

	query += ` ORDER BY name, id`

	var users []User
	if err := s.db.SelectContext(ctx, &users, s.db.Rebind(query), args...); err != nil {
		return nil, errors.Join(lending.ErrOperationFailed, err)
	}

	return users, nil
}

// DeleteUser removes an account. Borrowers still holding books cannot be
// deleted; admins borrow like any other member, only librarians never do.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}

	if user.Role != lending.RoleLibrarian {
		hasLoans, guardErr := s.guard.MemberHasOpenLoans(ctx, user.MemberID())
		if guardErr != nil {
			return guardErr
		}

		if hasLoans {
			return ErrMemberHasOpenLoans
		}
	}

	query := s.db.Rebind(`DELETE FROM users WHERE id = ?`)
	if _, err = s.db.ExecContext(ctx, query, id); err != nil {
		return errors.Join(lending.ErrOperationFailed, err)
	}

	return nil
}

// Authenticate verifies an email/password pair and returns the account.
func (s *Store) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}

	if err != nil {
		return User{}, err
	}

	if !CheckPassword(user.PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}
