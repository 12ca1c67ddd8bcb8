package handler

import (
	"net/http"

	"github.com/msomdec/conduit/internal/domain"
	"github.com/msomdec/conduit/internal/service"
)

// UserHandler handles registration, login and the current user.
type UserHandler struct {
	auth *service.AuthService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(auth *service.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

type userResponse struct {
	User UserDTO `json:"user"`
}

// HandleRegister creates an account.
// POST /api/users
// Request:  {"user":{"username":"...","email":"...","password":"..."}}
// Response: {"user":{...}}
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		} `json:"user"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, token, err := h.auth.Register(r.Context(), req.User.Username, req.User.Email, req.User.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{User: toUserDTO(user, token)})
}

// HandleLogin exchanges credentials for a token.
// POST /api/users/login
// Request:  {"user":{"email":"...","password":"..."}}
// Response: {"user":{...}}
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		} `json:"user"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.User.Email, req.User.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: toUserDTO(user, token)})
}

// HandleCurrent returns the authenticated user with a fresh token.
// GET /api/user
func (h *UserHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, r, domain.ErrUnauthorized)
		return
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: toUserDTO(user, token)})
}

// HandleUpdate patches the authenticated user. Absent fields are kept.
// PUT /api/user
// Request:  {"user":{"email":"...","username":"...","password":"...","bio":"...","image":"..."}}
// Response: {"user":{...}}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, r, domain.ErrUnauthorized)
		return
	}

	var req struct {
		User struct {
			Username *string `json:"username"`
			Email    *string `json:"email"`
			Password *string `json:"password"`
			Bio      *string `json:"bio"`
			Image    *string `json:"image"`
		} `json:"user"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	updated, token, err := h.auth.Update(r.Context(), user, domain.UserPatch{
		Username: req.User.Username,
		Email:    req.User.Email,
		Password: req.User.Password,
		Bio:      req.User.Bio,
		Image:    req.User.Image,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: toUserDTO(updated, token)})
}
