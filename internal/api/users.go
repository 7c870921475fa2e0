package api

import (
	"net/http"
)

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func (a *API) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if ok := decodeRequest(&req, w, r, a.log); !ok {
			return
		}

		if err := a.service.Register(r.Context(), req.Email, req.Password); err != nil {
			a.writeError(w, r, err)
			return
		}
		returnJson(MessageResponse{Message: "User registered successfully"}, http.StatusOK, w)
	}
}

func (a *API) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if ok := decodeRequest(&req, w, r, a.log); !ok {
			return
		}

		result, err := a.service.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		response := LoginResponse{
			Message: "User logged in successfully",
			Token:   result.AccessToken,
		}
		returnJson(response, http.StatusOK, w)
	}
}
