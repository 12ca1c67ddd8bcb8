package handler

import (
	"net/http"

	"github.com/msomdec/conduit/internal/domain"
	"github.com/msomdec/conduit/internal/service"
)

// ProfileHandler serves public profiles and follow actions.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

type profileResponse struct {
	Profile ProfileDTO `json:"profile"`
}

// HandleGet returns a profile.
// GET /api/profiles/{username}
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Get(r.Context(), r.PathValue("username"), UserFromContext(r.Context()))
	h.respond(w, r, profile, err)
}

// HandleFollow follows a user.
// POST /api/profiles/{username}/follow
func (h *ProfileHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Follow(r.Context(), UserFromContext(r.Context()), r.PathValue("username"))
	h.respond(w, r, profile, err)
}

// HandleUnfollow unfollows a user.
// DELETE /api/profiles/{username}/follow
func (h *ProfileHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Unfollow(r.Context(), UserFromContext(r.Context()), r.PathValue("username"))
	h.respond(w, r, profile, err)
}

func (h *ProfileHandler) respond(w http.ResponseWriter, r *http.Request, profile *domain.Profile, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Profile: toProfileDTO(*profile)})
}
