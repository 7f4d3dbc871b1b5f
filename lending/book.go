package lending

import (
	"database/sql/driver"
	"fmt"
)

// BookID identifies a single circulating copy. The system models one copy
// per book record; there are no per-title copy counts.
type BookID int64

// BookStatus is the availability state of a book copy. It is a closed
// enumeration: a copy is either on the shelf or out on exactly one open loan.
type BookStatus int

const (
	// BookStatusUnknown is the zero value and never a valid stored status.
	BookStatusUnknown BookStatus = iota

	// BookAvailable means no open loan references the copy.
	BookAvailable

	// BookIssued means exactly one open loan references the copy.
	BookIssued
)

const (
	bookStatusAvailable = "available"
	bookStatusIssued    = "issued"
)

// String returns the storage representation of the status.
func (s BookStatus) String() string {
	switch s {
	case BookAvailable:
		return bookStatusAvailable
	case BookIssued:
		return bookStatusIssued
	default:
		return "unknown"
	}
}

// ParseBookStatus converts a storage representation back into a BookStatus.
func ParseBookStatus(s string) (BookStatus, error) {
	switch s {
	case bookStatusAvailable:
		return BookAvailable, nil
	case bookStatusIssued:
		return BookIssued, nil
	default:
		return BookStatusUnknown, fmt.Errorf("%w: unknown book status %q", ErrValidation, s)
	}
}

// MarshalJSON encodes the status as its string representation.
func (s BookStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes the string representation of the status.
func (s *BookStatus) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("%w: invalid book status", ErrValidation)
	}

	parsed, err := ParseBookStatus(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// Value implements driver.Valuer.
func (s BookStatus) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan implements sql.Scanner.
func (s *BookStatus) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseBookStatus(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	case []byte:
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into BookStatus", src)
	}
}

// Book is a circulating catalog entry. Status is mutated only by a lending
// engine, inside the same transaction that creates or closes the loan.
type Book struct {
	ID       BookID     `db:"id" json:"id"`
	Title    string     `db:"title" json:"title"`
	Author   string     `db:"author" json:"author"`
	ISBN     string     `db:"isbn" json:"isbn,omitempty"`
	Category string     `db:"category" json:"category"`
	Status   BookStatus `db:"status" json:"status"`
}
