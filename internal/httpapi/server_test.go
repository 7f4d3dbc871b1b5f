package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libcirc/internal/accounts"
	"libcirc/internal/catalog"
	"libcirc/internal/httpapi"
	"libcirc/internal/reporting"
	"libcirc/lending"
	"libcirc/lending/sqlengine"
	"libcirc/testutil/helper"
)

// apiHarness wires the whole stack over an in-memory store, with the
// calendar under test control.
type apiHarness struct {
	t       *testing.T
	server  *httptest.Server
	today   *lending.Date
	staff   string // bearer token
	student string // bearer token
	member  accounts.User
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	start := lending.NewDate(2025, time.March, 1)
	today := &start
	clock := func() time.Time { return today.Time() }

	wrapper := helper.NewSQLiteWrapper(t, sqlengine.WithClock(clock))
	db := sqlx.NewDb(wrapper.DB(), "sqlite")

	users := accounts.NewStore(db, wrapper.Engine())
	require.NoError(t, users.CreateSchema(context.Background(), accounts.SerialIDSQLite))

	auth := httpapi.NewAuthenticator("test-secret", time.Hour).WithClock(clock)

	server := httpapi.NewServer(httpapi.Options{
		Engine:   wrapper.Engine(),
		Catalog:  catalog.NewStore(db, wrapper.Engine()),
		Accounts: users,
		Reports:  reporting.NewStore(db).WithClock(clock),
		Auth:     auth,
		Clock:    clock,
	})

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	harness := &apiHarness{t: t, server: ts, today: today}

	_, err := users.CreateUser(context.Background(), accounts.CreateUserParams{
		Name: "Libby", Email: "libby@library.example", Password: "staff-pw", Role: lending.RoleLibrarian,
	})
	require.NoError(t, err)

	harness.member, err = users.CreateUser(context.Background(), accounts.CreateUserParams{
		Name: "Stu", Email: "stu@library.example", Password: "member-pw", Role: lending.RoleStudent,
	})
	require.NoError(t, err)

	harness.staff = harness.login("libby@library.example", "staff-pw")
	harness.student = harness.login("stu@library.example", "member-pw")

	return harness
}

func (h *apiHarness) login(email, password string) string {
	h.t.Helper()

	status, body := h.do(http.MethodPost, "/api/login", "", map[string]any{
		"email": email, "password": password,
	})
	require.Equal(h.t, http.StatusOK, status, "login failed: %s", body)

	var response struct {
		Token string `json:"token"`
	}
	require.NoError(h.t, json.Unmarshal(body, &response))

	return response.Token
}

func (h *apiHarness) do(method, path, token string, payload any) (int, []byte) {
	h.t.Helper()

	var body *bytes.Buffer = bytes.NewBuffer(nil)
	if payload != nil {
		require.NoError(h.t, json.NewEncoder(body).Encode(payload))
	}

	req, err := http.NewRequest(method, h.server.URL+path, body)
	require.NoError(h.t, err)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(h.t, err)

	return resp.StatusCode, buf.Bytes()
}

func Test_API_FullCirculationLifecycle(t *testing.T) {
	// setup
	h := newAPIHarness(t)

	// arrange: catalog a book
	status, body := h.do(http.MethodPost, "/api/books", h.staff, map[string]any{
		"title": "The Go Programming Language", "author": "Donovan", "category": "Programming",
	})
	require.Equal(t, http.StatusCreated, status, "add book failed: %s", body)

	var book lending.Book
	require.NoError(t, json.Unmarshal(body, &book))

	// act: issue it with the default loan period
	status, body = h.do(http.MethodPost, "/api/loans", h.staff, map[string]any{
		"book_id": book.ID, "member_id": h.member.ID,
	})
	require.Equal(t, http.StatusCreated, status, "issue failed: %s", body)

	var loan struct {
		ID      lending.LoanID `json:"id"`
		DueDate string         `json:"due_date"`
	}
	require.NoError(t, json.Unmarshal(body, &loan))
	assert.Equal(t, "2025-03-15", loan.DueDate, "default loan period is 14 days")

	// the member sees their open loan
	status, body = h.do(http.MethodGet, "/api/my/loans", h.student, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), fmt.Sprintf(`"id":%d`, loan.ID))

	// act: return 20 days later -> 6 days late -> 60.00 fine
	*h.today = h.today.AddDays(20)

	status, body = h.do(http.MethodPost, "/api/returns", h.staff, map[string]any{
		"loan_id": loan.ID,
	})
	require.Equal(t, http.StatusOK, status, "return failed: %s", body)
	assert.Contains(t, string(body), `"fine":"60.00"`)

	// assert: the copy is available again and the dashboard reflects the fine
	status, body = h.do(http.MethodGet, fmt.Sprintf("/api/books/%d", book.ID), h.student, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"available"`)

	status, body = h.do(http.MethodGet, "/api/dashboard", h.staff, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"fines_collected":"60.00"`)
}

func Test_API_ErrorKindToStatusMapping(t *testing.T) {
	// setup
	h := newAPIHarness(t)

	// not found -> 404
	status, body := h.do(http.MethodPost, "/api/loans", h.staff, map[string]any{
		"book_id": 999, "member_id": h.member.ID,
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), `"kind":"not_found"`)

	// validation -> 400
	addStatus, addBody := h.do(http.MethodPost, "/api/books", h.staff, map[string]any{
		"title": "Conflict Fodder",
	})
	require.Equal(t, http.StatusCreated, addStatus)

	var book lending.Book
	require.NoError(t, json.Unmarshal(addBody, &book))

	status, body = h.do(http.MethodPost, "/api/loans", h.staff, map[string]any{
		"book_id": book.ID, "member_id": h.member.ID, "due_date": "2025-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), `"kind":"validation"`)

	// conflict -> 409 (second issue of the same copy)
	status, _ = h.do(http.MethodPost, "/api/loans", h.staff, map[string]any{
		"book_id": book.ID, "member_id": h.member.ID,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body = h.do(http.MethodPost, "/api/loans", h.staff, map[string]any{
		"book_id": book.ID, "member_id": h.member.ID,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), `"kind":"conflict"`)
}

func Test_API_AuthAndRoleGuards(t *testing.T) {
	// setup
	h := newAPIHarness(t)

	// no token -> 401
	status, _ := h.do(http.MethodGet, "/api/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// garbage token -> 401
	status, _ = h.do(http.MethodGet, "/api/books", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// member hitting a staff endpoint -> 403
	status, _ = h.do(http.MethodPost, "/api/loans", h.student, map[string]any{
		"book_id": 1, "member_id": h.member.ID,
	})
	assert.Equal(t, http.StatusForbidden, status)

	// wrong password -> 401
	status, _ = h.do(http.MethodPost, "/api/login", "", map[string]any{
		"email": "stu@library.example", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func Test_API_CatalogGuards(t *testing.T) {
	// setup
	h := newAPIHarness(t)

	status, body := h.do(http.MethodPost, "/api/books", h.staff, map[string]any{
		"title": "Guarded", "author": "A",
	})
	require.Equal(t, http.StatusCreated, status)

	var book lending.Book
	require.NoError(t, json.Unmarshal(body, &book))

	status, _ = h.do(http.MethodPost, "/api/loans", h.staff, map[string]any{
		"book_id": book.ID, "member_id": h.member.ID,
	})
	require.Equal(t, http.StatusCreated, status)

	// deleting an issued book -> 409; deleting its borrower -> 409
	status, _ = h.do(http.MethodDelete, fmt.Sprintf("/api/books/%d", book.ID), h.staff, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = h.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", h.member.ID), h.staff, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func Test_API_OverdueReport(t *testing.T) {
	// setup
	h := newAPIHarness(t)

	status, body := h.do(http.MethodPost, "/api/books", h.staff, map[string]any{
		"title": "Will Be Late", "author": "A",
	})
	require.Equal(t, http.StatusCreated, status)

	var book lending.Book
	require.NoError(t, json.Unmarshal(body, &book))

	status, _ = h.do(http.MethodPost, "/api/loans", h.staff, map[string]any{
		"book_id": book.ID, "member_id": h.member.ID,
	})
	require.Equal(t, http.StatusCreated, status)

	// act: 16 days later the 14-day loan is 2 days overdue
	*h.today = h.today.AddDays(16)

	status, body = h.do(http.MethodGet, "/api/reports/overdue", h.staff, nil)

	// assert
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"days_late":2`)
	assert.Contains(t, string(body), `"potential_fine":"20.00"`)
	assert.Contains(t, string(body), `"member_name":"Stu"`)
}
