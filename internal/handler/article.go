package handler

import (
	"net/http"
	"strconv"

	"github.com/msomdec/conduit/internal/domain"
	"github.com/msomdec/conduit/internal/service"
)

// ArticleHandler handles article, feed, favorite and tag requests.
type ArticleHandler struct {
	articles *service.ArticleService
}

// NewArticleHandler creates a new ArticleHandler.
func NewArticleHandler(articles *service.ArticleService) *ArticleHandler {
	return &ArticleHandler{articles: articles}
}

type articleResponse struct {
	Article ArticleDTO `json:"article"`
}

type articlesResponse struct {
	Articles      []ArticleDTO `json:"articles"`
	ArticlesCount int          `json:"articlesCount"`
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

type articleRequest struct {
	Article struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Body        *string  `json:"body"`
		TagList     []string `json:"tagList"`
	} `json:"article"`
}

// HandleList lists articles, newest first.
// GET /api/articles?tag=&author=&favorited=&limit=&offset=
func (h *ArticleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	page, err := h.articles.List(r.Context(), domain.ArticleFilter{
		Tag:         q.Get("tag"),
		Author:      q.Get("author"),
		FavoritedBy: q.Get("favorited"),
		Limit:       limit,
		Offset:      offset,
	}, UserFromContext(r.Context()))
	h.respondPage(w, r, page, err)
}

// HandleFeed lists articles by authors the viewer follows.
// GET /api/articles/feed?limit=&offset=
func (h *ArticleHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := h.articles.Feed(r.Context(), UserFromContext(r.Context()), limit, offset)
	h.respondPage(w, r, page, err)
}

// HandleGet returns a single article.
// GET /api/articles/{slug}
func (h *ArticleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.Get(r.Context(), r.PathValue("slug"), UserFromContext(r.Context()))
	h.respond(w, r, http.StatusOK, article, err)
}

// HandleCreate publishes an article.
// POST /api/articles
// Request:  {"article":{"title":"...","description":"...","body":"...","tagList":["..."]}}
func (h *ArticleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	article, err := h.articles.Create(r.Context(), UserFromContext(r.Context()), domain.ArticleInput{
		Title:       deref(req.Article.Title),
		Description: deref(req.Article.Description),
		Body:        deref(req.Article.Body),
		TagList:     req.Article.TagList,
	})
	h.respond(w, r, http.StatusCreated, article, err)
}

// HandleUpdate patches an article. Only its author may do this.
// PUT /api/articles/{slug}
func (h *ArticleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	article, err := h.articles.Update(r.Context(), r.PathValue("slug"), UserFromContext(r.Context()), domain.ArticlePatch{
		Title:       req.Article.Title,
		Description: req.Article.Description,
		Body:        req.Article.Body,
	})
	h.respond(w, r, http.StatusOK, article, err)
}

// HandleDelete removes an article. Only its author may do this.
// DELETE /api/articles/{slug}
func (h *ArticleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.articles.Delete(r.Context(), r.PathValue("slug"), UserFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFavorite favorites an article.
// POST /api/articles/{slug}/favorite
func (h *ArticleHandler) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.Favorite(r.Context(), r.PathValue("slug"), UserFromContext(r.Context()))
	h.respond(w, r, http.StatusOK, article, err)
}

// HandleUnfavorite removes a favorite.
// DELETE /api/articles/{slug}/favorite
func (h *ArticleHandler) HandleUnfavorite(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.Unfavorite(r.Context(), r.PathValue("slug"), UserFromContext(r.Context()))
	h.respond(w, r, http.StatusOK, article, err)
}

// HandleTags lists every tag in use.
// GET /api/tags
func (h *ArticleHandler) HandleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.articles.Tags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagsResponse{Tags: tags})
}

func (h *ArticleHandler) respond(w http.ResponseWriter, r *http.Request, status int, article *domain.RichArticle, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, articleResponse{Article: toArticleDTO(article)})
}

func (h *ArticleHandler) respondPage(w http.ResponseWriter, r *http.Request, page *domain.ArticlePage, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articlesResponse{
		Articles:      toArticleDTOs(page.Articles),
		ArticlesCount: page.Count,
	})
}

// parsePage reads limit and offset from the query string. Absent values fall
// back to the defaults; range checks are left to the service.
func parsePage(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	verr := &domain.ValidationError{}

	limit = domain.DefaultPageLimit
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			verr.Add("limit", "must be an integer")
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			verr.Add("offset", "must be an integer")
		}
	}
	return limit, offset, verr.OrNil()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
