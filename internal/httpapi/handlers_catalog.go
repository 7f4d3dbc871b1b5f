package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"libcirc/internal/catalog"
	"libcirc/lending"
)

func bookIDParam(r *http.Request) (lending.BookID, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, lending.ErrBookNotFound
	}

	return lending.BookID(id), nil
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	filter := catalog.SearchFilter{
		Query:    query.Get("q"),
		Category: query.Get("category"),
		Limit:    limit,
		Offset:   offset,
	}

	if status := query.Get("status"); status != "" {
		parsed, err := lending.ParseBookStatus(status)
		if err != nil {
			respondDomainError(w, err)
			return
		}

		filter.Status = parsed
	}

	books, err := s.catalog.ListBooks(r.Context(), filter)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, books)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDParam(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	book, err := s.catalog.GetBook(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, book)
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var params catalog.BookParams
	if err := decodeJSON(r, &params); err != nil {
		respondDomainError(w, err)
		return
	}

	book, err := s.catalog.AddBook(r.Context(), params)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, book)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDParam(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var params catalog.BookParams
	if err = decodeJSON(r, &params); err != nil {
		respondDomainError(w, err)
		return
	}

	book, err := s.catalog.UpdateBook(r.Context(), id, params)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, book)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDParam(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err = s.catalog.DeleteBook(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.catalog.Categories(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, categories)
}
