package sqlengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libcirc/lending"
	"libcirc/lending/sqlengine"
	"libcirc/testutil/helper"
)

func Test_IssueBook_When_BookIsAvailable(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.March, 1)
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(helper.FixedClock(today)))

	// arrange
	bookID := wrapper.SeedBook("The Go Programming Language", "Donovan & Kernighan", lending.BookAvailable)
	dueDate := today.AddDays(14)

	// act
	loan, err := wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID:   bookID,
		MemberID: 42,
		StaffID:  7,
		DueDate:  dueDate,
	})

	// assert
	require.NoError(t, err, "error issuing an available book")
	assert.NotZero(t, loan.ID)
	assert.Equal(t, bookID, loan.BookID)
	assert.Equal(t, lending.MemberID(42), loan.MemberID)
	assert.Equal(t, lending.StaffID(7), loan.StaffID)
	assert.Equal(t, today, loan.IssueDate)
	assert.Equal(t, dueDate, loan.DueDate)
	assert.True(t, loan.ReturnDate.IsZero())
	assert.Equal(t, lending.LoanOpen, loan.Status)

	book, err := wrapper.Engine().GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, lending.BookIssued, book.Status)
}

func Test_IssueBook_When_BookDoesNotExist(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.March, 1)
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(helper.FixedClock(today)))

	// act
	_, err := wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID:   999,
		MemberID: 42,
		StaffID:  7,
		DueDate:  today.AddDays(14),
	})

	// assert
	assert.ErrorIs(t, err, lending.ErrBookNotFound)
	assert.ErrorIs(t, err, lending.ErrNotFound)
}

func Test_IssueBook_When_BookIsAlreadyIssued(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.March, 1)
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(helper.FixedClock(today)))

	// arrange
	bookID := wrapper.SeedBook("Clean Architecture", "Robert C. Martin", lending.BookAvailable)

	_, err := wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID: bookID, MemberID: 42, StaffID: 7, DueDate: today.AddDays(14),
	})
	require.NoError(t, err, "error issuing the book the first time")

	// act
	_, err = wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID: bookID, MemberID: 43, StaffID: 7, DueDate: today.AddDays(14),
	})

	// assert
	assert.ErrorIs(t, err, lending.ErrBookNotAvailable)
	assert.ErrorIs(t, err, lending.ErrConflict)
}

func Test_IssueBook_When_DueDateIsNotInTheFuture(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.March, 1)
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(helper.FixedClock(today)))

	// arrange
	bookID := wrapper.SeedBook("Refactoring", "Martin Fowler", lending.BookAvailable)

	for _, dueDate := range []lending.Date{today, today.AddDays(-1)} {
		// act
		_, err := wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
			BookID: bookID, MemberID: 42, StaffID: 7, DueDate: dueDate,
		})

		// assert
		assert.ErrorIs(t, err, lending.ErrDueDateNotInFuture)
		assert.ErrorIs(t, err, lending.ErrValidation)
	}

	// the rejected issues must not have touched the book
	book, err := wrapper.Engine().GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, lending.BookAvailable, book.Status)
}

func Test_ReturnBook_When_ReturnedOnTime(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.March, 1)
	current := today
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(func() time.Time { return current.Time() }))

	// arrange
	bookID := wrapper.SeedBook("The Pragmatic Programmer", "Hunt & Thomas", lending.BookAvailable)

	issued, err := wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID: bookID, MemberID: 42, StaffID: 7, DueDate: today.AddDays(14),
	})
	require.NoError(t, err, "error issuing the book in test setup")

	current = today.AddDays(10)

	// act
	returned, err := wrapper.Engine().ReturnBook(ctx, sqlengine.ReturnBookCommand{BookID: bookID})

	// assert
	require.NoError(t, err, "error returning the book on time")
	assert.Equal(t, issued.ID, returned.ID)
	assert.Equal(t, lending.LoanReturned, returned.Status)
	assert.Equal(t, today.AddDays(10), returned.ReturnDate)
	assert.Equal(t, lending.Money(0), returned.Fine)

	book, err := wrapper.Engine().GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, lending.BookAvailable, book.Status)
}

func Test_ReturnBook_When_ReturnedLate_AssessesTheFine(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.March, 1)
	current := today
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(func() time.Time { return current.Time() }))

	// arrange: issued with a 14-day term, returned 20 days later -> 6 late days
	bookID := wrapper.SeedBook("Domain-Driven Design", "Eric Evans", lending.BookAvailable)

	_, err := wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID: bookID, MemberID: 42, StaffID: 7, DueDate: today.AddDays(14),
	})
	require.NoError(t, err, "error issuing the book in test setup")

	current = today.AddDays(20)

	// act
	returned, err := wrapper.Engine().ReturnBook(ctx, sqlengine.ReturnBookCommand{BookID: bookID})

	// assert
	require.NoError(t, err, "error returning the book late")
	assert.Equal(t, lending.MoneyFromUnits(60), returned.Fine)
	assert.Equal(t, "60.00", returned.Fine.String())

	// the closed loan keeps its fine
	loan, err := wrapper.Engine().GetLoan(ctx, returned.ID)
	require.NoError(t, err)
	assert.Equal(t, lending.MoneyFromUnits(60), loan.Fine)
	assert.Equal(t, lending.LoanReturned, loan.Status)
}

func Test_ReturnBook_When_NoOpenLoanExists(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.March, 1)
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(helper.FixedClock(today)))

	// arrange
	bookID := wrapper.SeedBook("Working Effectively with Legacy Code", "Michael Feathers", lending.BookAvailable)

	// act
	_, err := wrapper.Engine().ReturnBook(ctx, sqlengine.ReturnBookCommand{BookID: bookID})

	// assert
	assert.ErrorIs(t, err, lending.ErrNoActiveLoan)
	assert.ErrorIs(t, err, lending.ErrNotFound)
}

func Test_ReturnBook_When_ReturnedTwice(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.March, 1)
	current := today
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(func() time.Time { return current.Time() }))

	// arrange
	bookID := wrapper.SeedBook("A Philosophy of Software Design", "John Ousterhout", lending.BookAvailable)

	issued, err := wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID: bookID, MemberID: 42, StaffID: 7, DueDate: today.AddDays(14),
	})
	require.NoError(t, err, "error issuing the book in test setup")

	current = today.AddDays(5)

	_, err = wrapper.Engine().ReturnBook(ctx, sqlengine.ReturnBookCommand{LoanID: issued.ID})
	require.NoError(t, err, "error returning the book the first time")

	// act
	_, err = wrapper.Engine().ReturnBook(ctx, sqlengine.ReturnBookCommand{LoanID: issued.ID})

	// assert
	assert.ErrorIs(t, err, lending.ErrNoActiveLoan)
}

func Test_ReturnBook_When_BackdatedWithinTheLoanPeriod(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.March, 1)
	current := today
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(func() time.Time { return current.Time() }))

	// arrange: due after 3 days, return backdated to one day late
	bookID := wrapper.SeedBook("Structure and Interpretation", "Abelson & Sussman", lending.BookAvailable)

	_, err := wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID: bookID, MemberID: 42, StaffID: 7, DueDate: today.AddDays(3),
	})
	require.NoError(t, err, "error issuing the book in test setup")

	current = today.AddDays(10)

	// act
	returned, err := wrapper.Engine().ReturnBook(ctx, sqlengine.ReturnBookCommand{
		BookID:     bookID,
		ReturnDate: today.AddDays(4),
	})

	// assert
	require.NoError(t, err, "error returning the book backdated")
	assert.Equal(t, today.AddDays(4), returned.ReturnDate)
	assert.Equal(t, lending.MoneyFromUnits(10), returned.Fine)
}

func Test_ReturnBook_When_ReturnDateIsInvalid(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.March, 1)
	current := today
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(func() time.Time { return current.Time() }))

	// arrange
	bookID := wrapper.SeedBook("The Mythical Man-Month", "Fred Brooks", lending.BookAvailable)

	_, err := wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID: bookID, MemberID: 42, StaffID: 7, DueDate: today.AddDays(14),
	})
	require.NoError(t, err, "error issuing the book in test setup")

	current = today.AddDays(5)

	// act + assert: before the issue date
	_, err = wrapper.Engine().ReturnBook(ctx, sqlengine.ReturnBookCommand{
		BookID:     bookID,
		ReturnDate: today.AddDays(-1),
	})
	assert.ErrorIs(t, err, lending.ErrReturnBeforeIssue)

	// act + assert: in the future
	_, err = wrapper.Engine().ReturnBook(ctx, sqlengine.ReturnBookCommand{
		BookID:     bookID,
		ReturnDate: today.AddDays(6),
	})
	assert.ErrorIs(t, err, lending.ErrReturnInFuture)

	// the rejected returns must not have closed the loan
	loan, err := wrapper.Engine().FindOpenLoanByBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, lending.LoanOpen, loan.Status)
}

func Test_IssueBook_When_BookWasReturned_CanBeIssuedAgain(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.March, 1)
	current := today
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(func() time.Time { return current.Time() }))

	// arrange: full lifecycle for the first borrower
	bookID := wrapper.SeedBook("Site Reliability Engineering", "Beyer et al.", lending.BookAvailable)

	first, err := wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID: bookID, MemberID: 42, StaffID: 7, DueDate: today.AddDays(14),
	})
	require.NoError(t, err)

	current = today.AddDays(7)

	_, err = wrapper.Engine().ReturnBook(ctx, sqlengine.ReturnBookCommand{LoanID: first.ID})
	require.NoError(t, err)

	// act
	second, err := wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID: bookID, MemberID: 43, StaffID: 7, DueDate: current.AddDays(14),
	})

	// assert
	require.NoError(t, err, "error issuing the returned book again")
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, lending.MemberID(43), second.MemberID)
}
