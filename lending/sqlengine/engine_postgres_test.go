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
	"libcirc/testutil/helper/postgreswrapper"
)

// Runs only when LIBCIRC_TEST_DATABASE_URL points at a postgres instance;
// the default test run covers the same paths hermetically on SQLite.
func Test_Engine_IssueAndReturn_OnPostgres(t *testing.T) {
	// setup
	today := lending.NewDate(2025, time.June, 1)
	wrapper := postgreswrapper.CreateWrapper(t, sqlengine.WithClock(helper.FixedClock(today)))
	postgreswrapper.CleanUp(t, wrapper)

	engine := wrapper.Engine()
	ctx := context.Background()

	// arrange
	bookID := lending.BookID(postgreswrapper.SeedBook(t, wrapper, "Postgres Up and Running", "Riggs"))

	// act: issue and return on the real store
	loan, err := engine.IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID:   bookID,
		MemberID: 1,
		StaffID:  1,
		DueDate:  today.AddDays(14),
	})
	require.NoError(t, err)

	returned, err := engine.ReturnBook(ctx, sqlengine.ReturnBookCommand{LoanID: loan.ID})
	require.NoError(t, err)

	// assert
	assert.Equal(t, lending.LoanReturned, returned.Status)
	assert.Equal(t, lending.Money(0), returned.Fine)

	book, err := engine.GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, lending.BookAvailable, book.Status)
}
