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

func Test_ListOpenLoans_OrdersByDueDate(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.June, 1)
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(helper.FixedClock(today)))

	// arrange: three open loans with shuffled due dates
	late := wrapper.SeedBook("Due Soonest", "A", lending.BookIssued)
	mid := wrapper.SeedBook("Due Middle", "B", lending.BookIssued)
	far := wrapper.SeedBook("Due Last", "C", lending.BookIssued)

	wrapper.SeedOpenLoan(far, 1, today.AddDays(-1), today.AddDays(21))
	wrapper.SeedOpenLoan(late, 2, today.AddDays(-10), today.AddDays(2))
	wrapper.SeedOpenLoan(mid, 3, today.AddDays(-5), today.AddDays(9))

	// act
	loans, err := wrapper.Engine().ListOpenLoans(ctx)

	// assert
	require.NoError(t, err)
	require.Len(t, loans, 3)
	assert.Equal(t, late, loans[0].BookID)
	assert.Equal(t, mid, loans[1].BookID)
	assert.Equal(t, far, loans[2].BookID)
}

func Test_ListOverdueLoans_ExcludesLoansDueTodayOrLater(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.June, 1)
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(helper.FixedClock(today)))

	// arrange
	overdue := wrapper.SeedBook("Overdue", "A", lending.BookIssued)
	dueToday := wrapper.SeedBook("Due Today", "B", lending.BookIssued)
	onTime := wrapper.SeedBook("On Time", "C", lending.BookIssued)

	wrapper.SeedOpenLoan(overdue, 1, today.AddDays(-20), today.AddDays(-3))
	wrapper.SeedOpenLoan(dueToday, 2, today.AddDays(-14), today)
	wrapper.SeedOpenLoan(onTime, 3, today.AddDays(-1), today.AddDays(13))

	// act
	loans, err := wrapper.Engine().ListOverdueLoans(ctx)

	// assert: a loan due today is not overdue yet
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, overdue, loans[0].BookID)
	assert.True(t, loans[0].IsOverdue(today))
}

func Test_ListFinishedLoans_RespectsTheLimit(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.June, 1)
	current := today
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(func() time.Time { return current.Time() }))

	// arrange: three full lifecycles returned on consecutive days
	var lastReturned lending.LoanID

	for i := range 3 {
		bookID := wrapper.SeedBook("Cycle", "D", lending.BookAvailable)

		issued, err := wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
			BookID: bookID, MemberID: lending.MemberID(i + 1), StaffID: 7, DueDate: current.AddDays(14),
		})
		require.NoError(t, err)

		current = current.AddDays(1)

		returned, err := wrapper.Engine().ReturnBook(ctx, sqlengine.ReturnBookCommand{LoanID: issued.ID})
		require.NoError(t, err)

		lastReturned = returned.ID
	}

	// act
	loans, err := wrapper.Engine().ListFinishedLoans(ctx, 2)

	// assert: most recently returned first
	require.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, lastReturned, loans[0].ID)

	all, err := wrapper.Engine().ListFinishedLoans(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func Test_ListOpenLoansByMember_And_MemberHasOpenLoans(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.June, 1)
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(helper.FixedClock(today)))

	// arrange
	first := wrapper.SeedBook("Borrowed One", "A", lending.BookIssued)
	second := wrapper.SeedBook("Borrowed Two", "B", lending.BookIssued)
	other := wrapper.SeedBook("Someone Else's", "C", lending.BookIssued)

	wrapper.SeedOpenLoan(first, 42, today.AddDays(-5), today.AddDays(9))
	wrapper.SeedOpenLoan(second, 42, today.AddDays(-2), today.AddDays(12))
	wrapper.SeedOpenLoan(other, 99, today.AddDays(-2), today.AddDays(12))

	// act
	loans, err := wrapper.Engine().ListOpenLoansByMember(ctx, 42)

	// assert
	require.NoError(t, err)
	assert.Len(t, loans, 2)

	hasLoans, err := wrapper.Engine().MemberHasOpenLoans(ctx, 42)
	require.NoError(t, err)
	assert.True(t, hasLoans)

	hasLoans, err = wrapper.Engine().MemberHasOpenLoans(ctx, 1000)
	require.NoError(t, err)
	assert.False(t, hasLoans)
}

func Test_GetBook_When_BookDoesNotExist(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)

	// act
	_, err := wrapper.Engine().GetBook(ctx, 12345)

	// assert
	assert.ErrorIs(t, err, lending.ErrBookNotFound)
}

func Test_GetLoan_When_LoanDoesNotExist(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)

	// act
	_, err := wrapper.Engine().GetLoan(ctx, 12345)

	// assert
	assert.ErrorIs(t, err, lending.ErrLoanNotFound)
	assert.ErrorIs(t, err, lending.ErrNotFound)
}

func Test_FindOpenLoanByBook_When_CopyIsOnTheShelf(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)

	// arrange
	bookID := wrapper.SeedBook("On The Shelf", "A", lending.BookAvailable)

	// act
	_, err := wrapper.Engine().FindOpenLoanByBook(ctx, bookID)

	// assert
	assert.ErrorIs(t, err, lending.ErrNoActiveLoan)
}
