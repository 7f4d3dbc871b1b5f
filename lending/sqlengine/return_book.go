package sqlengine

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/doug-martin/goqu/v9"

	"libcirc/lending"
	"libcirc/lending/sqlengine/internal/adapters"
)

// ReturnBookCommand carries the input for returning a book copy. The open
// loan is resolved by LoanID when set, otherwise by BookID. ReturnDate may
// be backdated within [issueDate, today]; a zero ReturnDate means today.
type ReturnBookCommand struct {
	LoanID     lending.LoanID
	BookID     lending.BookID
	ReturnDate lending.Date
}

// ReturnBook atomically closes the open loan, records the fine, and marks
// the book copy available again.
//
// The fine is computed from the loan's due date and the effective return
// date at the daily rate; an on-time return records a zero fine. Closing
// the loan and releasing the copy happen in one transaction, guarded by
// conditional updates, so a concurrent return of the same copy leaves
// exactly one closed loan. Store-level failures surface as
// ErrOperationFailed with no partial effect.
func (e *Engine) ReturnBook(ctx context.Context, cmd ReturnBookCommand) (lending.Loan, error) {
	start := time.Now()
	today := e.Today()

	returnDate := cmd.ReturnDate
	if returnDate.IsZero() {
		returnDate = today
	}

	ctx, span := e.startSpan(ctx, spanNameReturn, map[string]string{
		spanAttrOperation: logActionReturn,
		spanAttrBookID:    strconv.FormatInt(int64(cmd.BookID), 10),
	})

	tx, err := e.db.BeginTx(ctx)
	if err != nil {
		return lending.Loan{}, e.failReturn(ctx, span, logMsgBeginTxFailed, errorTypeBeginTx, err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	loan, err := e.resolveOpenLoan(ctx, tx, cmd)
	if err != nil {
		return lending.Loan{}, e.rejectReturn(ctx, span, cmd, err)
	}

	if err = lending.DecideReturn(loan, returnDate, today); err != nil {
		return lending.Loan{}, e.rejectReturn(ctx, span, cmd, err)
	}

	fine := lending.FineFor(loan.DueDate, returnDate)

	if err = e.closeLoan(ctx, tx, loan.ID, returnDate, fine); err != nil {
		return lending.Loan{}, e.rejectReturn(ctx, span, cmd, err)
	}

	if err = e.releaseBook(ctx, tx, loan.BookID); err != nil {
		return lending.Loan{}, e.failReturn(ctx, span, logMsgLoanInvariantBroken, errorTypeExec, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return lending.Loan{}, e.failReturn(ctx, span, logMsgCommitFailed, errorTypeCommit, err)
	}

	loan.ReturnDate = returnDate
	loan.Fine = fine
	loan.Status = lending.LoanReturned

	e.logOperation(ctx, logActionReturn,
		logAttrLoanID, int64(loan.ID),
		logAttrBookID, int64(loan.BookID),
		logAttrFine, fine.String())
	e.recordDurationMetrics(ctx, logActionReturn, statusSuccess, time.Since(start))
	e.recordFineMetrics(ctx, fine)
	e.finishSpan(span, statusSuccess, map[string]string{logAttrFine: fine.String()})

	return loan, nil
}

// resolveOpenLoan loads the open loan named by the command, preferring the
// loan id over the book id when both are set.
func (e *Engine) resolveOpenLoan(ctx context.Context, tx adapters.DBTx, cmd ReturnBookCommand) (lending.Loan, error) {
	if cmd.LoanID != 0 {
		return e.readOpenLoanByID(ctx, tx, cmd.LoanID)
	}

	return e.readOpenLoanByBook(ctx, tx, cmd.BookID)
}

// closeLoan records the return date and fine, guarded on the loan still
// being open. Zero rows affected means a concurrent return already closed it.
func (e *Engine) closeLoan(
	ctx context.Context,
	tx adapters.DBTx,
	loanID lending.LoanID,
	returnDate lending.Date,
	fine lending.Money,
) error {
	statement, _, err := e.builder().
		Update(e.tables.Loans).
		Set(goqu.Record{
			colReturnDate: returnDate.String(),
			colFineCents:  fine.Cents(),
			colStatus:     lending.LoanReturned.String(),
		}).
		Where(goqu.Ex{
			colID:     int64(loanID),
			colStatus: lending.LoanOpen.String(),
		}).
		ToSQL()
	if err != nil {
		e.logError(ctx, logMsgBuildQueryFailed, err)
		return errors.Join(lending.ErrOperationFailed, err)
	}

	execStart := time.Now()

	result, err := tx.Exec(ctx, statement)
	if err != nil {
		e.logError(ctx, logMsgDBExecFailed, err, logAttrQuery, statement)
		return errors.Join(lending.ErrOperationFailed, err)
	}

	e.logStatementWithDuration(ctx, logActionReturn, statement, time.Since(execStart))

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		e.logError(ctx, logMsgRowsAffectedFailed, err)
		return errors.Join(lending.ErrOperationFailed, err)
	}

	if rowsAffected == 0 {
		e.recordConflictMetrics(ctx, logActionReturn)
		return lending.ErrNoActiveLoan
	}

	return nil
}

// releaseBook flips the book row back to available, guarded on it being
// issued. An open loan always implies an issued book, so zero rows affected
// here means the invariant is broken and the transaction must not commit.
func (e *Engine) releaseBook(ctx context.Context, tx adapters.DBTx, bookID lending.BookID) error {
	statement, _, err := e.builder().
		Update(e.tables.Books).
		Set(goqu.Record{colStatus: lending.BookAvailable.String()}).
		Where(goqu.Ex{
			colID:     int64(bookID),
			colStatus: lending.BookIssued.String(),
		}).
		ToSQL()
	if err != nil {
		e.logError(ctx, logMsgBuildQueryFailed, err)
		return errors.Join(lending.ErrOperationFailed, err)
	}

	result, err := tx.Exec(ctx, statement)
	if err != nil {
		e.logError(ctx, logMsgDBExecFailed, err, logAttrQuery, statement)
		return errors.Join(lending.ErrOperationFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		e.logError(ctx, logMsgRowsAffectedFailed, err)
		return errors.Join(lending.ErrOperationFailed, err)
	}

	if rowsAffected == 0 {
		err = errors.New("book row was not in issued status")
		e.logError(ctx, logMsgLoanInvariantBroken, err, logAttrBookID, int64(bookID))

		return errors.Join(lending.ErrOperationFailed, err)
	}

	return nil
}

// failReturn handles store-level failures of the return transition.
func (e *Engine) failReturn(ctx context.Context, span lending.SpanContext, message, errorType string, err error) error {
	e.logError(ctx, message, err)
	e.recordErrorMetrics(ctx, logActionReturn, errorType)
	e.finishSpan(span, statusError, map[string]string{spanAttrErrorType: errorType})

	if errors.Is(err, lending.ErrOperationFailed) {
		return err
	}

	return errors.Join(lending.ErrOperationFailed, err)
}

// rejectReturn handles domain rejections of the return transition.
func (e *Engine) rejectReturn(ctx context.Context, span lending.SpanContext, cmd ReturnBookCommand, err error) error {
	e.logOperation(ctx, logActionReturn,
		logAttrLoanID, int64(cmd.LoanID),
		logAttrBookID, int64(cmd.BookID),
		logAttrError, err.Error())
	e.finishSpan(span, statusError, map[string]string{spanAttrErrorType: lending.KindName(err)})

	return err
}
