package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (a *API) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(a.metrics.Middleware)

	v1 := r.PathPrefix("/api/v1").Subrouter()

	items := v1.PathPrefix("/items").Subrouter()
	items.Use(a.Authenticate)
	items.HandleFunc("/create_item", a.CreateItem()).Methods(http.MethodPost)
	items.HandleFunc("/fetch_my_items", a.FetchMyItems()).Methods(http.MethodGet)
	items.HandleFunc("/fetch_all_items_by_admin", a.FetchAllItems()).Methods(http.MethodGet)

	users := v1.PathPrefix("/users").Subrouter()
	users.HandleFunc("/register", a.Register()).Methods(http.MethodPost)
	users.HandleFunc("/login", a.Login()).Methods(http.MethodPost)

	if a.jwks != nil {
		r.Handle("/.well-known/jwks.json", a.jwks).Methods(http.MethodGet)
	}
	if a.metrics != nil {
		r.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		returnJson(ErrorResponse{Detail: "Not Found"}, http.StatusNotFound, w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		returnJson(ErrorResponse{Detail: "Method Not Allowed"}, http.StatusMethodNotAllowed, w)
	})
	return r
}
