package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libcirc/internal/catalog"
	"libcirc/lending"
	"libcirc/lending/sqlengine"
	"libcirc/testutil/helper"
)

func newStore(t *testing.T, wrapper *helper.SQLiteWrapper) *catalog.Store {
	t.Helper()

	db := sqlx.NewDb(wrapper.DB(), "sqlite")

	return catalog.NewStore(db, wrapper.Engine())
}

func Test_AddBook_And_GetBook(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)
	store := newStore(t, wrapper)

	// act
	book, err := store.AddBook(ctx, catalog.BookParams{
		Title:    "The Go Programming Language",
		Author:   "Donovan & Kernighan",
		ISBN:     "978-0134190440",
		Category: "Programming",
	})

	// assert
	require.NoError(t, err, "error adding a book")
	assert.NotZero(t, book.ID)
	assert.Equal(t, lending.BookAvailable, book.Status)

	loaded, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book, loaded)
}

func Test_AddBook_When_ContentIsDuplicated(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)
	store := newStore(t, wrapper)

	// two physical copies of the same work, no ISBN
	first, err := store.AddBook(ctx, catalog.BookParams{Title: "Refactoring", Author: "Fowler"})
	require.NoError(t, err)

	// act
	second, err := store.AddBook(ctx, catalog.BookParams{Title: "Refactoring", Author: "Fowler"})

	// assert: each copy gets its own id and loads back as itself
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	loaded, err := store.GetBook(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second, loaded)
}

func Test_AddBook_When_TitleIsMissing(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)
	store := newStore(t, wrapper)

	// act
	_, err := store.AddBook(ctx, catalog.BookParams{Title: "   ", Author: "Anon"})

	// assert
	assert.ErrorIs(t, err, catalog.ErrMissingTitle)
	assert.ErrorIs(t, err, lending.ErrValidation)
}

func Test_AddBook_When_ISBNIsTaken(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)
	store := newStore(t, wrapper)

	_, err := store.AddBook(ctx, catalog.BookParams{Title: "First", ISBN: "123-456"})
	require.NoError(t, err)

	// act
	_, err = store.AddBook(ctx, catalog.BookParams{Title: "Second", ISBN: "123-456"})

	// assert
	assert.ErrorIs(t, err, catalog.ErrISBNTaken)
	assert.ErrorIs(t, err, lending.ErrConflict)
}

func Test_UpdateBook_EditsFieldsButNotStatus(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)
	store := newStore(t, wrapper)

	book, err := store.AddBook(ctx, catalog.BookParams{Title: "Old Title", Author: "A"})
	require.NoError(t, err)

	// act
	updated, err := store.UpdateBook(ctx, book.ID, catalog.BookParams{
		Title:    "New Title",
		Author:   "A",
		Category: "History",
	})

	// assert
	require.NoError(t, err, "error updating the book")
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, "History", updated.Category)
	assert.Equal(t, lending.BookAvailable, updated.Status)
}

func Test_UpdateBook_When_BookDoesNotExist(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)
	store := newStore(t, wrapper)

	// act
	_, err := store.UpdateBook(ctx, 999, catalog.BookParams{Title: "Ghost"})

	// assert
	assert.ErrorIs(t, err, lending.ErrBookNotFound)
}

func Test_DeleteBook_When_CopyIsOnTheShelf(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)
	store := newStore(t, wrapper)

	book, err := store.AddBook(ctx, catalog.BookParams{Title: "Removable", Author: "A"})
	require.NoError(t, err)

	// act
	err = store.DeleteBook(ctx, book.ID)

	// assert
	require.NoError(t, err, "error deleting an available book")

	_, err = store.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, lending.ErrBookNotFound)
}

func Test_DeleteBook_When_CopyIsOutOnLoan(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.March, 1)
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(helper.FixedClock(today)))
	store := newStore(t, wrapper)

	book, err := store.AddBook(ctx, catalog.BookParams{Title: "Borrowed", Author: "A"})
	require.NoError(t, err)

	_, err = wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID: book.ID, MemberID: 42, StaffID: 7, DueDate: today.AddDays(14),
	})
	require.NoError(t, err, "error issuing the book in test setup")

	// act
	err = store.DeleteBook(ctx, book.ID)

	// assert
	assert.ErrorIs(t, err, catalog.ErrBookIssued)
	assert.ErrorIs(t, err, lending.ErrConflict)

	_, err = store.GetBook(ctx, book.ID)
	assert.NoError(t, err, "the issued book must stay in the catalog")
}

func Test_ListBooks_FiltersAndSearches(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)
	store := newStore(t, wrapper)

	seed := []catalog.BookParams{
		{Title: "The Go Programming Language", Author: "Donovan", Category: "Programming"},
		{Title: "Learning Python", Author: "Lutz", Category: "Programming"},
		{Title: "A Brief History of Time", Author: "Hawking", Category: "Science"},
	}
	for _, params := range seed {
		_, err := store.AddBook(ctx, params)
		require.NoError(t, err)
	}

	// act + assert: free-text search over title and author
	books, err := store.ListBooks(ctx, catalog.SearchFilter{Query: "go programming"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "The Go Programming Language", books[0].Title)

	books, err = store.ListBooks(ctx, catalog.SearchFilter{Query: "Hawking"})
	require.NoError(t, err)
	assert.Len(t, books, 1)

	// act + assert: category filter
	books, err = store.ListBooks(ctx, catalog.SearchFilter{Category: "Programming"})
	require.NoError(t, err)
	assert.Len(t, books, 2)

	// act + assert: limit pagination
	books, err = store.ListBooks(ctx, catalog.SearchFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, books, 2)

	// act + assert: distinct categories
	categories, err := store.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Programming", "Science"}, categories)
}
