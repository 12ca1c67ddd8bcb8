package handler

import (
	"net/http"
	"strconv"

	"github.com/msomdec/conduit/internal/domain"
	"github.com/msomdec/conduit/internal/service"
)

// CommentHandler handles comments on articles.
type CommentHandler struct {
	comments *service.CommentService
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(comments *service.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type commentResponse struct {
	Comment CommentDTO `json:"comment"`
}

type commentsResponse struct {
	Comments []CommentDTO `json:"comments"`
}

// HandleAdd posts a comment.
// POST /api/articles/{slug}/comments
// Request:  {"comment":{"body":"..."}}
func (h *CommentHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Comment struct {
			Body string `json:"body"`
		} `json:"comment"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	comment, err := h.comments.Add(r.Context(), r.PathValue("slug"), UserFromContext(r.Context()), req.Comment.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, commentResponse{Comment: toCommentDTO(comment)})
}

// HandleList lists an article's comments, oldest first.
// GET /api/articles/{slug}/comments
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.List(r.Context(), r.PathValue("slug"), UserFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commentsResponse{Comments: toCommentDTOs(comments)})
}

// HandleDelete removes a comment. Only its author may do this.
// DELETE /api/articles/{slug}/comments/{id}
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, domain.ErrNotFound)
		return
	}

	if err := h.comments.Delete(r.Context(), r.PathValue("slug"), id, UserFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
