// Package reporting provides read-only aggregates over the circulation
// tables: dashboard counts, fine statistics, activity rankings, and the
// overdue list with potential fines. Nothing here mutates core state; every
// figure is derived from the books, loans, and users tables as they stand.
package reporting

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"libcirc/lending"
)

// Store runs the report queries.
type Store struct {
	db    *sqlx.DB
	clock func() time.Time
}

// NewStore creates a reporting store on the given database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

// WithClock replaces the time source used to derive "today". Tests use this
// to pin the calendar.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

func (s *Store) today() lending.Date {
	return lending.DateOf(s.clock())
}

// Dashboard is the at-a-glance state of the library.
type Dashboard struct {
	TotalBooks     int           `json:"total_books"`
	AvailableBooks int           `json:"available_books"`
	IssuedBooks    int           `json:"issued_books"`
	TotalMembers   int           `json:"total_members"`
	TotalStaff     int           `json:"total_staff"`
	OpenLoans      int           `json:"open_loans"`
	ReturnedLoans  int           `json:"returned_loans"`
	OverdueLoans   int           `json:"overdue_loans"`
	FinesCollected lending.Money `json:"fines_collected"`
}

// Dashboard aggregates the headline counts.
func (s *Store) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard

	counts := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&d.TotalBooks, `SELECT COUNT(*) FROM books`, nil},
		{&d.AvailableBooks, `SELECT COUNT(*) FROM books WHERE status = ?`,
			[]any{lending.BookAvailable.String()}},
		{&d.IssuedBooks, `SELECT COUNT(*) FROM books WHERE status = ?`,
			[]any{lending.BookIssued.String()}},
		{&d.TotalMembers, `SELECT COUNT(*) FROM users WHERE role NOT IN (?, ?)`,
			[]any{lending.RoleAdmin.String(), lending.RoleLibrarian.String()}},
		{&d.TotalStaff, `SELECT COUNT(*) FROM users WHERE role IN (?, ?)`,
			[]any{lending.RoleAdmin.String(), lending.RoleLibrarian.String()}},
		{&d.OpenLoans, `SELECT COUNT(*) FROM loans WHERE status = ?`,
			[]any{lending.LoanOpen.String()}},
		{&d.ReturnedLoans, `SELECT COUNT(*) FROM loans WHERE status = ?`,
			[]any{lending.LoanReturned.String()}},
		{&d.OverdueLoans, `SELECT COUNT(*) FROM loans WHERE status = ? AND due_date < ?`,
			[]any{lending.LoanOpen.String(), s.today().String()}},
	}

	for _, count := range counts {
		if err := s.db.GetContext(ctx, count.dest, s.db.Rebind(count.query), count.args...); err != nil {
			return Dashboard{}, errors.Join(lending.ErrOperationFailed, err)
		}
	}

	var fines int64

	query := s.db.Rebind(`SELECT COALESCE(SUM(fine_cents), 0) FROM loans WHERE status = ?`)
	if err := s.db.GetContext(ctx, &fines, query, lending.LoanReturned.String()); err != nil {
		return Dashboard{}, errors.Join(lending.ErrOperationFailed, err)
	}

	d.FinesCollected = lending.Money(fines)

	return d, nil
}

// FineStats summarizes the fines assessed on closed loans.
type FineStats struct {
	Total      lending.Money `json:"total"`
	Average    lending.Money `json:"average"`
	FinedLoans int           `json:"fined_loans"`
}

// FineStats computes the fine sum and the average over loans that were
// actually fined. An archive with no fined loans reports zeroes.
func (s *Store) FineStats(ctx context.Context) (FineStats, error) {
	var row struct {
		Total int64 `db:"total"`
		Count int   `db:"count"`
	}

	query := s.db.Rebind(`SELECT COALESCE(SUM(fine_cents), 0) AS total, COUNT(*) AS count
		FROM loans WHERE status = ? AND fine_cents > 0`)
	if err := s.db.GetContext(ctx, &row, query, lending.LoanReturned.String()); err != nil {
		return FineStats{}, errors.Join(lending.ErrOperationFailed, err)
	}

	stats := FineStats{
		Total:      lending.Money(row.Total),
		FinedLoans: row.Count,
	}

	if row.Count > 0 {
		stats.Average = lending.Money(row.Total / int64(row.Count))
	}

	return stats, nil
}

// BookCount ranks a book by how often it was issued.
type BookCount struct {
	BookID lending.BookID `db:"book_id" json:"book_id"`
	Title  string         `db:"title" json:"title"`
	Author string         `db:"author" json:"author"`
	Issues int            `db:"issues" json:"issues"`
}

// MostIssuedBooks returns the books with the most loans, open or closed.
func (s *Store) MostIssuedBooks(ctx context.Context, limit int) ([]BookCount, error) {
	if limit <= 0 {
		limit = 10
	}

	query := s.db.Rebind(`SELECT l.book_id AS book_id, b.title AS title, b.author AS author,
			COUNT(*) AS issues
		FROM loans l
		JOIN books b ON b.id = l.book_id
		GROUP BY l.book_id, b.title, b.author
		ORDER BY issues DESC, b.title
		LIMIT ?`)

	var ranking []BookCount
	if err := s.db.SelectContext(ctx, &ranking, query, limit); err != nil {
		return nil, errors.Join(lending.ErrOperationFailed, err)
	}

	return ranking, nil
}

// BorrowerCount ranks a member by how many loans they have taken.
type BorrowerCount struct {
	MemberID lending.MemberID `db:"member_id" json:"member_id"`
	Name     string           `db:"name" json:"name"`
	Loans    int              `db:"loans" json:"loans"`
}

// MostActiveBorrowers returns the members with the most loans taken.
func (s *Store) MostActiveBorrowers(ctx context.Context, limit int) ([]BorrowerCount, error) {
	if limit <= 0 {
		limit = 10
	}

	query := s.db.Rebind(`SELECT l.member_id AS member_id, COALESCE(u.name, '') AS name,
			COUNT(*) AS loans
		FROM loans l
		LEFT JOIN users u ON u.id = l.member_id
		GROUP BY l.member_id, u.name
		ORDER BY loans DESC, l.member_id
		LIMIT ?`)

	var ranking []BorrowerCount
	if err := s.db.SelectContext(ctx, &ranking, query, limit); err != nil {
		return nil, errors.Join(lending.ErrOperationFailed, err)
	}

	return ranking, nil
}

// CategoryCount is the number of catalog entries in one category.
type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Books    int    `db:"books" json:"books"`
}

// BooksByCategory breaks the catalog down by category.
func (s *Store) BooksByCategory(ctx context.Context) ([]CategoryCount, error) {
	query := `SELECT category, COUNT(*) AS books FROM books
		WHERE category <> '' GROUP BY category ORDER BY category`

	var breakdown []CategoryCount
	if err := s.db.SelectContext(ctx, &breakdown, query); err != nil {
		return nil, errors.Join(lending.ErrOperationFailed, err)
	}

	return breakdown, nil
}

// RoleCount is the number of accounts holding one role.
type RoleCount struct {
	Role  lending.Role `db:"role" json:"role"`
	Users int          `db:"users" json:"users"`
}

// UserCountsByRole breaks the accounts down by role.
func (s *Store) UserCountsByRole(ctx context.Context) ([]RoleCount, error) {
	query := `SELECT role, COUNT(*) AS users FROM users GROUP BY role ORDER BY role`

	var breakdown []RoleCount
	if err := s.db.SelectContext(ctx, &breakdown, query); err != nil {
		return nil, errors.Join(lending.ErrOperationFailed, err)
	}

	return breakdown, nil
}

// OverdueLoan is one row of the overdue report: the open loan, who holds it,
// how late it is, and the fine that would be assessed if it came back today.
type OverdueLoan struct {
	LoanID        lending.LoanID   `db:"loan_id" json:"loan_id"`
	BookID        lending.BookID   `db:"book_id" json:"book_id"`
	Title         string           `db:"title" json:"title"`
	MemberID      lending.MemberID `db:"member_id" json:"member_id"`
	MemberName    string           `db:"member_name" json:"member_name"`
	DueDate       lending.Date     `db:"due_date" json:"due_date"`
	DaysLate      int              `db:"-" json:"days_late"`
	PotentialFine lending.Money    `db:"-" json:"potential_fine"`
}

// OverdueReport lists all overdue open loans with their potential fines,
// most overdue first. The potential fine is display-only; nothing is written.
func (s *Store) OverdueReport(ctx context.Context) ([]OverdueLoan, error) {
	today := s.today()

	query := s.db.Rebind(`SELECT l.id AS loan_id, l.book_id AS book_id, b.title AS title,
			l.member_id AS member_id, COALESCE(u.name, '') AS member_name, l.due_date AS due_date
		FROM loans l
		JOIN books b ON b.id = l.book_id
		LEFT JOIN users u ON u.id = l.member_id
		WHERE l.status = ? AND l.due_date < ?
		ORDER BY l.due_date, l.id`)

	var report []OverdueLoan
	if err := s.db.SelectContext(ctx, &report, query, lending.LoanOpen.String(), today.String()); err != nil {
		return nil, errors.Join(lending.ErrOperationFailed, err)
	}

	for i := range report {
		report[i].DaysLate = report[i].DueDate.DaysUntil(today)
		report[i].PotentialFine = lending.PotentialFine(report[i].DueDate, today)
	}

	return report, nil
}
