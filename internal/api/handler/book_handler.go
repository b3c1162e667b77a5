package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bookshelf/internal/api/middleware"
	"bookshelf/internal/app/service"
	"bookshelf/internal/common"
)

const (
	defaultBookPageSize = 100
	maxBookPageSize     = 500
)

type BookHandler struct {
	bookService *service.BookService
}

func NewBookHandler(bs *service.BookService) *BookHandler {
	return &BookHandler{bookService: bs}
}

func (h *BookHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listBooks)
	r.Get("/{bookID}", h.getBook)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/", h.createBook)
		authed.Post("/search-by-isbn", h.searchByISBN)
		authed.Put("/{bookID}", h.updateBook)
		authed.Delete("/{bookID}", h.deleteBook)
	})
}

func (h *BookHandler) listBooks(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	if skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultBookPageSize
	}
	if limit > maxBookPageSize {
		limit = maxBookPageSize
	}

	books, err := h.bookService.ListBooks(r.Context(), limit, skip)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, books)
}

func (h *BookHandler) getBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	book, err := h.bookService.GetBook(r.Context(), bookID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, book)
}

func (h *BookHandler) createBook(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	book, err := h.bookService.CreateBook(r.Context(), userID, role, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, book)
}

func (h *BookHandler) updateBook(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	bookID := chi.URLParam(r, "bookID")

	var req service.UpdateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	book, err := h.bookService.UpdateBook(r.Context(), userID, role, bookID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, book)
}

func (h *BookHandler) deleteBook(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	bookID := chi.URLParam(r, "bookID")

	if err := h.bookService.DeleteBook(r.Context(), userID, role, bookID); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookHandler) searchByISBN(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.SearchByISBNRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	// 201 whether the book was just imported or already in the catalog.
	book, err := h.bookService.SearchByISBN(r.Context(), userID, role, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, book)
}
