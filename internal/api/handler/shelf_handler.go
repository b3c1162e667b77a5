package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bookshelf/internal/api/middleware"
	"bookshelf/internal/app/service"
	"bookshelf/internal/common"
)

type ShelfHandler struct {
	shelfService *service.ShelfService
}

func NewShelfHandler(ss *service.ShelfService) *ShelfHandler {
	return &ShelfHandler{shelfService: ss}
}

func (h *ShelfHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator) // All shelf routes require auth
	r.Get("/", h.listItems)
	r.Post("/", h.addItem)
	r.Get("/{itemID}", h.getItem)
	r.Put("/{itemID}", h.updateItem)
	r.Delete("/{itemID}", h.removeItem)
}

func (h *ShelfHandler) listItems(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := callerIdentity(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	items, err := h.shelfService.ListItems(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, items)
}

func (h *ShelfHandler) addItem(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := callerIdentity(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.AddShelfItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	item, err := h.shelfService.AddItem(r.Context(), userID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, item)
}

func (h *ShelfHandler) getItem(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	itemID := chi.URLParam(r, "itemID")

	item, err := h.shelfService.GetItem(r.Context(), userID, role, itemID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, item)
}

func (h *ShelfHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	itemID := chi.URLParam(r, "itemID")

	var req service.UpdateShelfItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	item, err := h.shelfService.UpdateItem(r.Context(), userID, role, itemID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, item)
}

func (h *ShelfHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	itemID := chi.URLParam(r, "itemID")

	if err := h.shelfService.RemoveItem(r.Context(), userID, role, itemID); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
