package accounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libcirc/internal/accounts"
	"libcirc/lending"
	"libcirc/lending/sqlengine"
	"libcirc/testutil/helper"
)

func newStore(t *testing.T, wrapper *helper.SQLiteWrapper) *accounts.Store {
	t.Helper()

	db := sqlx.NewDb(wrapper.DB(), "sqlite")
	store := accounts.NewStore(db, wrapper.Engine())

	require.NoError(t, store.CreateSchema(context.Background(), accounts.SerialIDSQLite))

	return store
}

func Test_CreateUser_And_Authenticate(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)
	store := newStore(t, wrapper)

	// act
	user, err := store.CreateUser(ctx, accounts.CreateUserParams{
		Name:     "Ada Lovelace",
		Email:    "Ada@Library.example",
		Password: "correct horse battery staple",
		Role:     lending.RoleStudent,
	})

	// assert
	require.NoError(t, err, "error creating the account")
	assert.NotZero(t, user.ID)
	assert.Equal(t, "ada@library.example", user.Email, "emails are normalized to lower case")
	assert.Equal(t, lending.RoleStudent, user.Role)
	assert.NotEqual(t, "correct horse battery staple", user.PasswordHash)

	authenticated, err := store.Authenticate(ctx, "ada@library.example", "correct horse battery staple")
	require.NoError(t, err, "error authenticating with the right password")
	assert.Equal(t, user.ID, authenticated.ID)

	_, err = store.Authenticate(ctx, "ada@library.example", "wrong password")
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)

	_, err = store.Authenticate(ctx, "nobody@library.example", "whatever")
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
}

func Test_CreateUser_When_EmailIsTaken(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)
	store := newStore(t, wrapper)

	_, err := store.CreateUser(ctx, accounts.CreateUserParams{
		Name: "First", Email: "dup@library.example", Password: "pw-one", Role: lending.RoleStudent,
	})
	require.NoError(t, err)

	// act
	_, err = store.CreateUser(ctx, accounts.CreateUserParams{
		Name: "Second", Email: "DUP@library.example", Password: "pw-two", Role: lending.RoleFaculty,
	})

	// assert
	assert.ErrorIs(t, err, accounts.ErrEmailTaken)
	assert.ErrorIs(t, err, lending.ErrConflict)
}

func Test_CreateUser_When_RequiredFieldsAreMissing(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)
	store := newStore(t, wrapper)

	// act + assert
	for _, params := range []accounts.CreateUserParams{
		{Email: "a@b.example", Password: "pw", Role: lending.RoleStudent},
		{Name: "A", Password: "pw", Role: lending.RoleStudent},
		{Name: "A", Email: "a@b.example", Role: lending.RoleStudent},
	} {
		_, err := store.CreateUser(ctx, params)
		assert.ErrorIs(t, err, accounts.ErrMissingField)
	}
}

func Test_ListUsers_FiltersByRole(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := helper.NewSQLiteWrapper(t)
	store := newStore(t, wrapper)

	seed := []accounts.CreateUserParams{
		{Name: "Student One", Email: "s1@library.example", Password: "pw", Role: lending.RoleStudent},
		{Name: "Student Two", Email: "s2@library.example", Password: "pw", Role: lending.RoleStudent},
		{Name: "Librarian", Email: "lib@library.example", Password: "pw", Role: lending.RoleLibrarian},
	}
	for _, params := range seed {
		_, err := store.CreateUser(ctx, params)
		require.NoError(t, err)
	}

	// act
	students, err := store.ListUsers(ctx, lending.RoleStudent)
	require.NoError(t, err)

	everyone, err := store.ListUsers(ctx, lending.RoleUnknown)
	require.NoError(t, err)

	// assert
	assert.Len(t, students, 2)
	assert.Len(t, everyone, 3)
}

func Test_DeleteUser_When_MemberHoldsOpenLoans(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.March, 1)
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(helper.FixedClock(today)))
	store := newStore(t, wrapper)

	member, err := store.CreateUser(ctx, accounts.CreateUserParams{
		Name: "Borrower", Email: "b@library.example", Password: "pw", Role: lending.RoleStudent,
	})
	require.NoError(t, err)

	bookID := wrapper.SeedBook("Borrowed Book", "A", lending.BookAvailable)

	_, err = wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID: bookID, MemberID: member.MemberID(), StaffID: 1, DueDate: today.AddDays(14),
	})
	require.NoError(t, err, "error issuing the book in test setup")

	// act
	err = store.DeleteUser(ctx, member.ID)

	// assert
	assert.ErrorIs(t, err, accounts.ErrMemberHasOpenLoans)
	assert.ErrorIs(t, err, lending.ErrConflict)

	// returning the book unblocks the delete
	_, err = wrapper.Engine().ReturnBook(ctx, sqlengine.ReturnBookCommand{BookID: bookID})
	require.NoError(t, err)

	require.NoError(t, store.DeleteUser(ctx, member.ID))

	_, err = store.GetUser(ctx, member.ID)
	assert.ErrorIs(t, err, accounts.ErrUserNotFound)
}

func Test_DeleteUser_When_AdminHoldsOpenLoans(t *testing.T) {
	// setup
	ctx := context.Background()
	today := lending.NewDate(2025, time.March, 1)
	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(helper.FixedClock(today)))
	store := newStore(t, wrapper)

	admin, err := store.CreateUser(ctx, accounts.CreateUserParams{
		Name: "Head of Library", Email: "head@library.example", Password: "pw", Role: lending.RoleAdmin,
	})
	require.NoError(t, err)

	bookID := wrapper.SeedBook("Borrowed By Admin", "A", lending.BookAvailable)

	_, err = wrapper.Engine().IssueBook(ctx, sqlengine.IssueBookCommand{
		BookID: bookID, MemberID: admin.MemberID(), StaffID: admin.StaffID(), DueDate: today.AddDays(14),
	})
	require.NoError(t, err, "error issuing the book in test setup")

	// act: admins borrow like any other member, so the guard applies
	err = store.DeleteUser(ctx, admin.ID)

	// assert
	assert.ErrorIs(t, err, accounts.ErrMemberHasOpenLoans)

	_, err = store.GetUser(ctx, admin.ID)
	require.NoError(t, err, "the account must survive the rejected delete")
}

func Test_HashPassword_When_PasswordIsTooLong(t *testing.T) {
	// act
	_, err := accounts.HashPassword(string(make([]byte, 100)))

	// assert
	assert.ErrorIs(t, err, accounts.ErrPasswordTooLong)
	assert.ErrorIs(t, err, lending.ErrValidation)
}
