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

// IssueBookCommand carries the input for issuing a book copy to a member.
// IssueDate is always "today" as seen by the engine's clock; only the due
// date is caller-supplied.
type IssueBookCommand struct {
	BookID   lending.BookID
	MemberID lending.MemberID
	StaffID  lending.StaffID
	DueDate  lending.Date
}

// IssueBook atomically creates an open loan and marks the book copy issued.
//
// The whole transition runs in one transaction. Availability is re-checked
// by a conditional update on the book row, so when two issuers race on the
// same copy exactly one wins and the loser receives ErrBookNotAvailable.
// Store-level failures surface as ErrOperationFailed with no partial effect;
// the engine never retries on its own.
func (e *Engine) IssueBook(ctx context.Context, cmd IssueBookCommand) (lending.Loan, error) {
	start := time.Now()
	today := e.Today()

	ctx, span := e.startSpan(ctx, spanNameIssue, map[string]string{
		spanAttrOperation: logActionIssue,
		spanAttrBookID:    strconv.FormatInt(int64(cmd.BookID), 10),
	})

	tx, err := e.db.BeginTx(ctx)
	if err != nil {
		return lending.Loan{}, e.failIssue(ctx, span, logMsgBeginTxFailed, errorTypeBeginTx, err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	book, err := e.readBook(ctx, tx, cmd.BookID)
	if err != nil {
		return lending.Loan{}, e.rejectIssue(ctx, span, cmd, err)
	}

	if err = lending.DecideIssue(book, cmd.DueDate, today); err != nil {
		return lending.Loan{}, e.rejectIssue(ctx, span, cmd, err)
	}

	if err = e.markBookIssued(ctx, tx, cmd.BookID); err != nil {
		return lending.Loan{}, e.rejectIssue(ctx, span, cmd, err)
	}

	if err = e.insertLoan(ctx, tx, cmd, today); err != nil {
		return lending.Loan{}, e.failIssue(ctx, span, logMsgDBExecFailed, errorTypeExec, err)
	}

	loan, err := e.readOpenLoanByBook(ctx, tx, cmd.BookID)
	if err != nil {
		return lending.Loan{}, e.failIssue(ctx, span, logMsgDBQueryFailed, errorTypeQuery, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return lending.Loan{}, e.failIssue(ctx, span, logMsgCommitFailed, errorTypeCommit, err)
	}

	e.logOperation(ctx, logActionIssue,
		logAttrLoanID, int64(loan.ID),
		logAttrBookID, int64(loan.BookID),
		logAttrMemberID, int64(loan.MemberID))
	e.recordDurationMetrics(ctx, logActionIssue, statusSuccess, time.Since(start))
	e.finishSpan(span, statusSuccess, nil)

	return loan, nil
}

// markBookIssued flips the book row to issued, guarded on it still being
// available. Zero rows affected means another transaction won the copy.
func (e *Engine) markBookIssued(ctx context.Context, tx adapters.DBTx, bookID lending.BookID) error {
	statement, _, err := e.builder().
		Update(e.tables.Books).
		Set(goqu.Record{colStatus: lending.BookIssued.String()}).
		Where(goqu.Ex{
			colID:     int64(bookID),
			colStatus: lending.BookAvailable.String(),
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

	e.logStatementWithDuration(ctx, logActionIssue, statement, time.Since(execStart))

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		e.logError(ctx, logMsgRowsAffectedFailed, err)
		return errors.Join(lending.ErrOperationFailed, err)
	}

	if rowsAffected == 0 {
		e.logOperation(ctx, logActionIssue, logMsgStatusConflict, true, logAttrBookID, int64(bookID))
		e.recordConflictMetrics(ctx, logActionIssue)

		return lending.ErrBookNotAvailable
	}

	return nil
}

// insertLoan creates the open loan row for the issued copy.
func (e *Engine) insertLoan(ctx context.Context, tx adapters.DBTx, cmd IssueBookCommand, issueDate lending.Date) error {
	statement, _, err := e.builder().
		Insert(e.tables.Loans).
		Rows(goqu.Record{
			colMemberID:  int64(cmd.MemberID),
			colBookID:    int64(cmd.BookID),
			colStaffID:   int64(cmd.StaffID),
			colIssueDate: issueDate.String(),
			colDueDate:   cmd.DueDate.String(),
			colFineCents: int64(0),
			colStatus:    lending.LoanOpen.String(),
		}).
		ToSQL()
	if err != nil {
		e.logError(ctx, logMsgBuildQueryFailed, err)
		return errors.Join(lending.ErrOperationFailed, err)
	}

	execStart := time.Now()

	if _, err = tx.Exec(ctx, statement); err != nil {
		e.logError(ctx, logMsgDBExecFailed, err, logAttrQuery, statement)
		return errors.Join(lending.ErrOperationFailed, err)
	}

	e.logStatementWithDuration(ctx, logActionIssue, statement, time.Since(execStart))

	return nil
}

// failIssue handles store-level failures of the issue transition.
func (e *Engine) failIssue(ctx context.Context, span lending.SpanContext, message, errorType string, err error) error {
	e.logError(ctx, message, err)
	e.recordErrorMetrics(ctx, logActionIssue, errorType)
	e.finishSpan(span, statusError, map[string]string{spanAttrErrorType: errorType})

	if errors.Is(err, lending.ErrOperationFailed) {
		return err
	}

	return errors.Join(lending.ErrOperationFailed, err)
}

// rejectIssue handles domain rejections of the issue transition; the error
// already carries its kind and is passed through unchanged.
func (e *Engine) rejectIssue(ctx context.Context, span lending.SpanContext, cmd IssueBookCommand, err error) error {
	e.logOperation(ctx, logActionIssue,
		logAttrBookID, int64(cmd.BookID),
		logAttrError, err.Error())
	e.finishSpan(span, statusError, map[string]string{spanAttrErrorType: lending.KindName(err)})

	return err
}
