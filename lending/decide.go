package lending

// DecideIssue implements the business rules for issuing a book copy.
// This is a pure function with no side effects - it inspects the loaded book
// state and the requested due date and returns the error that should abort
// the operation, or nil when the issue may proceed.
//
// Business Rules:
//
//	GIVEN: A book copy with its current availability status
//	WHEN: An issue is requested with a due date
//	THEN: The issue may proceed and a new open loan should be created
//	ERROR: ErrBookNotAvailable if the copy is already issued
//	ERROR: ErrDueDateNotInFuture if the due date is not strictly after today
//
// The engine re-checks availability with a conditional update inside the
// transaction, so a race between two issuers is resolved by the store even
// when both passed this check.
func DecideIssue(book Book, dueDate Date, today Date) error {
	if book.Status != BookAvailable {
		return ErrBookNotAvailable
	}

	if !dueDate.After(today) {
		return ErrDueDateNotInFuture
	}

	return nil
}

// DecideReturn implements the business rules for returning a book copy.
// This is a pure function with no side effects - it inspects the loaded loan
// and the requested return date and returns the error that should abort the
// operation, or nil when the return may proceed.
//
// Business Rules:
//
//	GIVEN: The open loan for the copy being returned
//	WHEN: A return is requested with a return date
//	THEN: The return may proceed; the fine is FineFor(loan.DueDate, returnDate)
//	ERROR: ErrNoActiveLoan if the loan is not open
//	ERROR: ErrReturnBeforeIssue if the return date precedes the issue date
//	ERROR: ErrReturnInFuture if the return date is after today
//
// Staff may backdate a return within [issueDate, today]; future-dated
// returns are rejected.
func DecideReturn(loan Loan, returnDate Date, today Date) error {
	if loan.Status != LoanOpen {
		return ErrNoActiveLoan
	}

	if returnDate.Before(loan.IssueDate) {
		return ErrReturnBeforeIssue
	}

	if returnDate.After(today) {
		return ErrReturnInFuture
	}

	return nil
}
