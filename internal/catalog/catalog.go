// Package catalog manages the book catalog around the circulation core:
// adding, editing, searching, and removing book records. It never touches a
// book's availability status or any loan row; those belong to the lending
// engine. Removal is guarded so a copy that is out on loan stays in the
// catalog until it comes back.
package catalog

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
	// ErrISBNTaken occurs when another catalog entry already carries the ISBN.
	ErrISBNTaken = fmt.Errorf("%w: isbn already in catalog", lending.ErrConflict)

	// ErrBookIssued occurs when a delete is attempted while the copy is out.
	ErrBookIssued = fmt.Errorf("%w: book is out on loan", lending.ErrConflict)

	// ErrMissingTitle occurs when a book is created or updated without a title.
	ErrMissingTitle = fmt.Errorf("%w: title must not be empty", lending.ErrValidation)
)

// LoanGuard is the slice of the lending engine the catalog needs: whether a
// copy currently has an open loan.
type LoanGuard interface {
	FindOpenLoanByBook(ctx context.Context, bookID lending.BookID) (lending.Loan, error)
}

// Store provides catalog management over the books table.
type Store struct {
	db    *sqlx.DB
	guard LoanGuard
}

// NewStore creates a catalog store on the given database handle. The guard
// is consulted before deleting a book.
func NewStore(db *sqlx.DB, guard LoanGuard) *Store {
	return &Store{db: db, guard: guard}
}

// BookParams carries the caller-editable fields of a catalog entry.
type BookParams struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	ISBN     string `json:"isbn"`
	Category string `json:"category"`
}

func (p BookParams) validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrMissingTitle
	}

	return nil
}

// AddBook creates a new catalog entry in available state.
func (s *Store) AddBook(ctx context.Context, params BookParams) (lending.Book, error) {
	if err := params.validate(); err != nil {
		return lending.Book{}, err
	}

	if params.ISBN != "" {
		taken, err := s.isbnTaken(ctx, params.ISBN, 0)
		if err != nil {
			return lending.Book{}, err
		}

		if taken {
			return lending.Book{}, ErrISBNTaken
		}
	}

	id, err := s.insertBook(ctx, params)
	if err != nil {
		return lending.Book{}, err
	}

	return s.GetBook(ctx, id)
}

// insertBook creates the row and reports its id. The postgres driver only
// exposes new ids through RETURNING; every other driver through LastInsertId.
func (s *Store) insertBook(ctx context.Context, params BookParams) (lending.BookID, error) {
	values := []any{params.Title, params.Author, params.ISBN, params.Category, lending.BookAvailable.String()}

	if s.db.DriverName() == "postgres" {
		var id int64

		query := `INSERT INTO books (title, author, isbn, category, status)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`
		if err := s.db.GetContext(ctx, &id, query, values...); err != nil {
			return 0, errors.Join(lending.ErrOperationFailed, err)
		}

		return lending.BookID(id), nil
	}

	query := s.db.Rebind(`INSERT INTO books (title, author, isbn, category, status) VALUES (?, ?, ?, ?, ?)`)

	result, err := s.db.ExecContext(ctx, query, values...)
	if err != nil {
		return 0, errors.Join(lending.ErrOperationFailed, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.Join(lending.ErrOperationFailed, err)
	}

	return lending.BookID(id), nil
}

// GetBook loads one catalog entry.
func (s *Store) GetBook(ctx context.Context, bookID lending.BookID) (lending.Book, error) {
	var book lending.Book

	query := s.db.Rebind(`SELECT id, title, author, isbn, category, status FROM books WHERE id = ?`)

	err := s.db.GetContext(ctx, &book, query, int64(bookID))
	if errors.Is(err, sql.ErrNoRows) {
		return lending.Book{}, lending.ErrBookNotFound
	}

	if err != nil {
		return lending.Book{}, errors.Join(lending.ErrOperationFailed, err)
	}

	return book, nil
}

// UpdateBook edits the caller-editable fields of a catalog entry.
// The availability status is deliberately not editable here.
func (s *Store) UpdateBook(ctx context.Context, bookID lending.BookID, params BookParams) (lending.Book, error) {
	if err := params.validate(); err != nil {
		return lending.Book{}, err
	}

	if params.ISBN != "" {
		taken, err := s.isbnTaken(ctx, params.ISBN, bookID)
		if err != nil {
			return lending.Book{}, err
		}

		if taken {
			return lending.Book{}, ErrISBNTaken
		}
	}

	query := s.db.Rebind(`UPDATE books SET title = ?, author = ?, isbn = ?, category = ? WHERE id = ?`)

	result, err := s.db.ExecContext(ctx, query,
		params.Title, params.Author, params.ISBN, params.Category, int64(bookID))
	if err != nil {
		return lending.Book{}, errors.Join(lending.ErrOperationFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return lending.Book{}, errors.Join(lending.ErrOperationFailed, err)
	}

	if rowsAffected == 0 {
		return lending.Book{}, lending.ErrBookNotFound
	}

	return s.GetBook(ctx, bookID)
}

// DeleteBook removes a catalog entry. The delete is rejected while an open
// loan references the copy, and the statement itself is conditioned on the
// available status so a concurrent issue cannot slip a delete through.
func (s *Store) DeleteBook(ctx context.Context, bookID lending.BookID) error {
	if _, err := s.GetBook(ctx, bookID); err != nil {
		return err
	}

	_, err := s.guard.FindOpenLoanByBook(ctx, bookID)
	if err == nil {
		return ErrBookIssued
	}

	if !errors.Is(err, lending.ErrNoActiveLoan) {
		return err
	}

	query := s.db.Rebind(`DELETE FROM books WHERE id = ? AND status = ?`)

	result, err := s.db.ExecContext(ctx, query, int64(bookID), lending.BookAvailable.String())
	if err != nil {
		return errors.Join(lending.ErrOperationFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Join(lending.ErrOperationFailed, err)
	}

	if rowsAffected == 0 {
		return ErrBookIssued
	}

	return nil
}

// SearchFilter narrows a catalog listing. Zero values mean "no filter".
type SearchFilter struct {
	Query    string // matches title, author, or ISBN
	Category string
	Status   lending.BookStatus
	Limit    int
	Offset   int
}

// ListBooks returns catalog entries matching the filter, ordered by title.
func (s *Store) ListBooks(ctx context.Context, filter SearchFilter) ([]lending.Book, error) {
	query := `SELECT id, title, author, isbn, category, status FROM books`

	var (
		conditions []string
		args       []any
	)

	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		conditions = append(conditions, `(title LIKE ? OR author LIKE ? OR isbn LIKE ?)`)
		args = append(args, pattern, pattern, pattern)
	}

	if filter.Category != "" {
		conditions = append(conditions, `category = ?`)
		args = append(args, filter.Category)
	}

	if filter.Status != lending.BookStatusUnknown {
		conditions = append(conditions, `status = ?`)
		args = append(args, filter.Status.String())
	}

	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}

	query += ` ORDER BY title, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	var books []lending.Book
	if err := s.db.SelectContext(ctx, &books, s.db.Rebind(query), args...); err != nil {
		return nil, errors.Join(lending.ErrOperationFailed, err)
	}

	return books, nil
}

// Categories returns the distinct non-empty categories in the catalog.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	var categories []string

	query := `SELECT DISTINCT category FROM books WHERE category <> '' ORDER BY category`
	if err := s.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, errors.Join(lending.ErrOperationFailed, err)
	}

	return categories, nil
}

func (s *Store) isbnTaken(ctx context.Context, isbn string, exclude lending.BookID) (bool, error) {
	var id int64

	query := s.db.Rebind(`SELECT id FROM books WHERE isbn = ? AND id <> ? LIMIT 1`)

	err := s.db.GetContext(ctx, &id, query, isbn, int64(exclude))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, errors.Join(lending.ErrOperationFailed, err)
	}

	return true, nil
}
