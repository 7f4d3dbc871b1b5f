package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"libcirc/lending"
	"libcirc/lending/sqlengine"
)

type issueRequest struct {
	BookID   lending.BookID   `json:"book_id"`
	MemberID lending.MemberID `json:"member_id"`
	DueDate  lending.Date     `json:"due_date"`
}

// handleIssueBook issues a copy to a member. The staff id is taken from the
// authenticated actor; a missing due date defaults to the configured loan
// period. Store-level failures are retried, domain rejections are not.
func (s *Server) handleIssueBook(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDomainError(w, err)
		return
	}

	actor, _ := lending.ActorFrom(r.Context())

	dueDate := req.DueDate
	if dueDate.IsZero() {
		dueDate = s.today().AddDays(s.defaultLoanDays)
	}

	cmd := sqlengine.IssueBookCommand{
		BookID:   req.BookID,
		MemberID: req.MemberID,
		StaffID:  actor.StaffID,
		DueDate:  dueDate,
	}

	var loan lending.Loan

	err := retryOnOperationFailed(r.Context(), func(ctx context.Context) error {
		var issueErr error
		loan, issueErr = s.engine.IssueBook(ctx, cmd)
		return issueErr
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, loan)
}

type returnRequest struct {
	LoanID     lending.LoanID `json:"loan_id"`
	BookID     lending.BookID `json:"book_id"`
	ReturnDate lending.Date   `json:"return_date"`
}

// handleReturnBook closes an open loan, resolved by loan id or book id.
func (s *Server) handleReturnBook(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDomainError(w, err)
		return
	}

	cmd := sqlengine.ReturnBookCommand{
		LoanID:     req.LoanID,
		BookID:     req.BookID,
		ReturnDate: req.ReturnDate,
	}

	var loan lending.Loan

	err := retryOnOperationFailed(r.Context(), func(ctx context.Context) error {
		var returnErr error
		loan, returnErr = s.engine.ReturnBook(ctx, cmd)
		return returnErr
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, loan)
}

func (s *Server) handleOpenLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.engine.ListOpenLoans(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, loans)
}

func (s *Server) handleOverdueLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.engine.ListOverdueLoans(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, loans)
}

func (s *Server) handleFinishedLoans(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	loans, err := s.engine.ListFinishedLoans(r.Context(), limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, loans)
}

// handleMyLoans returns the open loans of the authenticated member.
func (s *Server) handleMyLoans(w http.ResponseWriter, r *http.Request) {
	actor, _ := lending.ActorFrom(r.Context())

	loans, err := s.engine.ListOpenLoansByMember(r.Context(), actor.MemberID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, loans)
}
