package api

import (
	"net/http"

	"git.sr.ht/~jakintosh/itemstore/internal/service"
)

func (a *API) CreateItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := Caller(r.Context())
		if !ok {
			returnJson(ErrorResponse{Detail: "Not authenticated"}, http.StatusForbidden, w)
			return
		}

		query := r.URL.Query()
		if !query.Has("text") {
			returnJson(ErrorResponse{Detail: "Missing query parameter: text"}, http.StatusUnprocessableEntity, w)
			return
		}

		if _, err := a.service.CreateItem(r.Context(), caller, query.Get("text")); err != nil {
			a.writeError(w, r, err)
			return
		}
		returnJson(MessageResponse{Message: "Text saved successfully"}, http.StatusOK, w)
	}
}

func (a *API) FetchMyItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := Caller(r.Context())
		if !ok {
			returnJson(ErrorResponse{Detail: "Not authenticated"}, http.StatusForbidden, w)
			return
		}

		items, err := a.service.ListItems(r.Context(), caller)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		returnJson(nonNil(items), http.StatusOK, w)
	}
}

func (a *API) FetchAllItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := Caller(r.Context())
		if !ok {
			returnJson(ErrorResponse{Detail: "Not authenticated"}, http.StatusForbidden, w)
			return
		}

		items, err := a.service.ListAllItems(r.Context(), caller)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		returnJson(nonNil(items), http.StatusOK, w)
	}
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil(items []service.Item) []service.Item {
	if items == nil {
		return []service.Item{}
	}
	return items
}
