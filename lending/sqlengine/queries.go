package sqlengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"libcirc/lending"
)

var loanColumns = []any{
	colID, colMemberID, colBookID, colStaffID,
	colIssueDate, colDueDate, colReturnDate, colFineCents, colStatus,
}

var bookColumns = []any{
	colID, colTitle, colAuthor, colISBN, colCategory, colStatus,
}

// GetBook loads a single book copy with its availability status.
func (e *Engine) GetBook(ctx context.Context, bookID lending.BookID) (lending.Book, error) {
	return e.readBook(ctx, e.db, bookID)
}

// GetLoan loads a single loan regardless of its status.
// Returns ErrLoanNotFound when no loan with that id exists.
func (e *Engine) GetLoan(ctx context.Context, loanID lending.LoanID) (lending.Loan, error) {
	dataset := e.builder().
		From(e.tables.Loans).
		Select(loanColumns...).
		Where(goqu.Ex{colID: int64(loanID)})

	loans, err := e.queryLoans(ctx, e.db, dataset)
	if err != nil {
		return lending.Loan{}, err
	}

	if len(loans) == 0 {
		return lending.Loan{}, lending.ErrLoanNotFound
	}

	return loans[0], nil
}

// FindOpenLoanByBook finds the open loan for a book copy, if any.
// Returns ErrNoActiveLoan when the copy is on the shelf.
func (e *Engine) FindOpenLoanByBook(ctx context.Context, bookID lending.BookID) (lending.Loan, error) {
	return e.readOpenLoanByBook(ctx, e.db, bookID)
}

// ListOpenLoans returns all open loans ordered by due date, soonest first.
func (e *Engine) ListOpenLoans(ctx context.Context) ([]lending.Loan, error) {
	dataset := e.builder().
		From(e.tables.Loans).
		Select(loanColumns...).
		Where(goqu.Ex{colStatus: lending.LoanOpen.String()}).
		Order(goqu.C(colDueDate).Asc(), goqu.C(colID).Asc())

	return e.queryLoans(ctx, e.db, dataset)
}

// ListOverdueLoans returns open loans whose due date is before today,
// most overdue first.
func (e *Engine) ListOverdueLoans(ctx context.Context) ([]lending.Loan, error) {
	dataset := e.builder().
		From(e.tables.Loans).
		Select(loanColumns...).
		Where(
			goqu.C(colStatus).Eq(lending.LoanOpen.String()),
			goqu.C(colDueDate).Lt(e.Today().String()),
		).
		Order(goqu.C(colDueDate).Asc(), goqu.C(colID).Asc())

	return e.queryLoans(ctx, e.db, dataset)
}

// ListFinishedLoans returns closed loans, most recently returned first,
// capped at limit. A limit of zero or less returns all closed loans.
func (e *Engine) ListFinishedLoans(ctx context.Context, limit int) ([]lending.Loan, error) {
	dataset := e.builder().
		From(e.tables.Loans).
		Select(loanColumns...).
		Where(goqu.Ex{colStatus: lending.LoanReturned.String()}).
		Order(goqu.C(colReturnDate).Desc(), goqu.C(colID).Desc())

	if limit > 0 {
		dataset = dataset.Limit(uint(limit))
	}

	return e.queryLoans(ctx, e.db, dataset)
}

// ListOpenLoansByMember returns a member's open loans ordered by due date.
func (e *Engine) ListOpenLoansByMember(ctx context.Context, memberID lending.MemberID) ([]lending.Loan, error) {
	dataset := e.builder().
		From(e.tables.Loans).
		Select(loanColumns...).
		Where(goqu.Ex{
			colStatus:   lending.LoanOpen.String(),
			colMemberID: int64(memberID),
		}).
		Order(goqu.C(colDueDate).Asc(), goqu.C(colID).Asc())

	return e.queryLoans(ctx, e.db, dataset)
}

// MemberHasOpenLoans reports whether a member currently has any open loan.
// Account deletion is guarded on this.
func (e *Engine) MemberHasOpenLoans(ctx context.Context, memberID lending.MemberID) (bool, error) {
	dataset := e.builder().
		From(e.tables.Loans).
		Select(colID).
		Where(goqu.Ex{
			colStatus:   lending.LoanOpen.String(),
			colMemberID: int64(memberID),
		}).
		Limit(1)

	statement, _, err := dataset.ToSQL()
	if err != nil {
		e.logError(ctx, logMsgBuildQueryFailed, err)
		return false, errors.Join(lending.ErrOperationFailed, err)
	}

	rows, err := e.db.Query(ctx, statement)
	if err != nil {
		e.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, statement)
		return false, errors.Join(lending.ErrOperationFailed, err)
	}

	defer e.closeRows(ctx, rows)

	return rows.Next(), nil
}

// readBook loads a book row inside or outside a transaction.
func (e *Engine) readBook(ctx context.Context, run dbRunner, bookID lending.BookID) (lending.Book, error) {
	statement, _, err := e.builder().
		From(e.tables.Books).
		Select(bookColumns...).
		Where(goqu.Ex{colID: int64(bookID)}).
		ToSQL()
	if err != nil {
		e.logError(ctx, logMsgBuildQueryFailed, err)
		return lending.Book{}, errors.Join(lending.ErrOperationFailed, err)
	}

	queryStart := time.Now()

	rows, err := run.Query(ctx, statement)
	if err != nil {
		e.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, statement)
		return lending.Book{}, errors.Join(lending.ErrOperationFailed, err)
	}

	defer e.closeRows(ctx, rows)

	e.logStatementWithDuration(ctx, logActionQuery, statement, time.Since(queryStart))

	if !rows.Next() {
		return lending.Book{}, lending.ErrBookNotFound
	}

	var book lending.Book
	if err = rows.Scan(&book.ID, &book.Title, &book.Author, &book.ISBN, &book.Category, &book.Status); err != nil {
		e.logError(ctx, logMsgScanRowFailed, err)
		return lending.Book{}, errors.Join(lending.ErrOperationFailed, err)
	}

	return book, nil
}

// readOpenLoanByID loads the loan with the given id if it is still open.
func (e *Engine) readOpenLoanByID(ctx context.Context, run dbRunner, loanID lending.LoanID) (lending.Loan, error) {
	dataset := e.builder().
		From(e.tables.Loans).
		Select(loanColumns...).
		Where(goqu.Ex{
			colID:     int64(loanID),
			colStatus: lending.LoanOpen.String(),
		})

	return e.querySingleLoan(ctx, run, dataset)
}

// readOpenLoanByBook loads the open loan for the given book copy. At most
// one can exist; the partial unique index enforces this in the store.
func (e *Engine) readOpenLoanByBook(ctx context.Context, run dbRunner, bookID lending.BookID) (lending.Loan, error) {
	dataset := e.builder().
		From(e.tables.Loans).
		Select(loanColumns...).
		Where(goqu.Ex{
			colBookID: int64(bookID),
			colStatus: lending.LoanOpen.String(),
		})

	return e.querySingleLoan(ctx, run, dataset)
}

func (e *Engine) querySingleLoan(ctx context.Context, run dbRunner, dataset *goqu.SelectDataset) (lending.Loan, error) {
	loans, err := e.queryLoans(ctx, run, dataset)
	if err != nil {
		return lending.Loan{}, err
	}

	if len(loans) == 0 {
		return lending.Loan{}, lending.ErrNoActiveLoan
	}

	return loans[0], nil
}

func (e *Engine) queryLoans(ctx context.Context, run dbRunner, dataset *goqu.SelectDataset) ([]lending.Loan, error) {
	statement, _, err := dataset.ToSQL()
	if err != nil {
		e.logError(ctx, logMsgBuildQueryFailed, err)
		return nil, errors.Join(lending.ErrOperationFailed, err)
	}

	queryStart := time.Now()

	rows, err := run.Query(ctx, statement)
	if err != nil {
		e.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, statement)
		return nil, errors.Join(lending.ErrOperationFailed, err)
	}

	defer e.closeRows(ctx, rows)

	e.logStatementWithDuration(ctx, logActionQuery, statement, time.Since(queryStart))

	var loans []lending.Loan

	for rows.Next() {
		var loan lending.Loan

		err = rows.Scan(
			&loan.ID, &loan.MemberID, &loan.BookID, &loan.StaffID,
			&loan.IssueDate, &loan.DueDate, &loan.ReturnDate, &loan.Fine, &loan.Status,
		)
		if err != nil {
			e.logError(ctx, logMsgScanRowFailed, err)
			return nil, errors.Join(lending.ErrOperationFailed, err)
		}

		loans = append(loans, loan)
	}

	return loans, nil
}

func (e *Engine) closeRows(ctx context.Context, rows interface{ Close() error }) {
	if err := rows.Close(); err != nil {
		e.logWarning(ctx, logMsgCloseRowsFailed, logAttrError, err.Error())
	}
}
