package lending

import (
	"database/sql/driver"
	"fmt"
)

// LoanID identifies a single lending transaction.
type LoanID int64

// MemberID identifies a borrower. Members are owned by user management;
// the circulation core references them by id only.
type MemberID int64

// StaffID identifies the librarian or admin who performed an issue or
// return action. Staff accounts are owned by user management.
type StaffID int64

// LoanStatus is the lifecycle state of a loan: open until returned,
// then closed forever.
type LoanStatus int

const (
	// LoanStatusUnknown is the zero value and never a valid stored status.
	LoanStatusUnknown LoanStatus = iota

	// LoanOpen means the copy is out and no return has been recorded.
	LoanOpen

	// LoanReturned means the loan was closed; its fine is final.
	LoanReturned
)

const (
	loanStatusOpen     = "open"
	loanStatusReturned = "returned"
)

// String returns the storage representation of the status.
func (s LoanStatus) String() string {
	switch s {
	case LoanOpen:
		return loanStatusOpen
	case LoanReturned:
		return loanStatusReturned
	default:
		return "unknown"
	}
}

// ParseLoanStatus converts a storage representation back into a LoanStatus.
func ParseLoanStatus(s string) (LoanStatus, error) {
	switch s {
	case loanStatusOpen:
		return LoanOpen, nil
	case loanStatusReturned:
		return LoanReturned, nil
	default:
		return LoanStatusUnknown, fmt.Errorf("%w: unknown loan status %q", ErrValidation, s)
	}
}

// MarshalJSON encodes the status as its string representation.
func (s LoanStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Value implements driver.Valuer.
func (s LoanStatus) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan implements sql.Scanner.
func (s *LoanStatus) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseLoanStatus(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	case []byte:
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into LoanStatus", src)
	}
}

// Loan is a single lending transaction linking a borrower, a book copy, and
// the staff actor who issued it. Loans are append-only: a loan is created by
// a successful issue, mutated exactly once by a successful return, and never
// deleted.
type Loan struct {
	ID         LoanID     `db:"id" json:"id"`
	MemberID   MemberID   `db:"member_id" json:"member_id"`
	BookID     BookID     `db:"book_id" json:"book_id"`
	StaffID    StaffID    `db:"staff_id" json:"staff_id"`
	IssueDate  Date       `db:"issue_date" json:"issue_date"`
	DueDate    Date       `db:"due_date" json:"due_date"`
	ReturnDate Date       `db:"return_date" json:"return_date"`
	Fine       Money      `db:"fine_cents" json:"fine"`
	Status     LoanStatus `db:"status" json:"status"`
}

// IsOpen reports whether the loan has not been returned yet.
func (l Loan) IsOpen() bool {
	return l.Status == LoanOpen
}

// IsOverdue reports whether the loan is open and past its due date.
func (l Loan) IsOverdue(today Date) bool {
	return l.IsOpen() && l.DueDate.Before(today)
}
