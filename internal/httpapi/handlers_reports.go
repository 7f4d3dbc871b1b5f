package httpapi

import (
	"net/http"
	"strconv"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.reports.Dashboard(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dashboard)
}

func (s *Server) handleFineStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reports.FineStats(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleMostIssued(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ranking, err := s.reports.MostIssuedBooks(r.Context(), limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ranking)
}

func (s *Server) handleMostActive(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ranking, err := s.reports.MostActiveBorrowers(r.Context(), limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ranking)
}

func (s *Server) handleBooksByCategory(w http.ResponseWriter, r *http.Request) {
	breakdown, err := s.reports.BooksByCategory(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, breakdown)
}

func (s *Server) handleUserCountsByRole(w http.ResponseWriter, r *http.Request) {
	breakdown, err := s.reports.UserCountsByRole(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, breakdown)
}

func (s *Server) handleOverdueReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.OverdueReport(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}
