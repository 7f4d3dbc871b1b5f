// Package lending provides the core types and rules for a library's
// circulation lifecycle: which book copies exist, which are on loan,
// and what is owed when a copy comes back late.
//
// The package is pure - it contains domain types (Book, Loan, Date, Money),
// closed status and role enumerations, the fine policy, and the precondition
// checks for issuing and returning a copy. All persistence and transaction
// handling lives in the engine implementations (see lending/sqlengine).
//
// Key invariants enforced across the package and its engines:
//   - A book is Issued if and only if exactly one open loan references it.
//   - A loan is closed at most once; its fine is fixed at close time and
//     never recomputed.
//   - Fine computation is a pure function of two calendar dates.
//
// Errors are classified into four kinds (ErrNotFound, ErrValidation,
// ErrConflict, ErrOperationFailed) so that callers can branch with errors.Is
// without inspecting error strings.
package lending
