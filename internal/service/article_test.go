package service_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/msomdec/conduit/internal/domain"
	"github.com/msomdec/conduit/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type articleFixture struct {
	auth     *service.AuthService
	articles *service.ArticleService
	profiles *service.ProfileService
}

func newArticleFixture(t *testing.T) *articleFixture {
	t.Helper()
	db := newTestDB(t)
	return &articleFixture{
		auth:     service.NewAuthService(db.Users(), testBcryptCost, 0),
		articles: service.NewArticleService(db.Articles(), db.Users(), db.Relationships(), 0),
		profiles: service.NewProfileService(db.Users(), db.Relationships()),
	}
}

func (f *articleFixture) publish(t *testing.T, author *domain.User, title string, tags ...string) *domain.RichArticle {
	t.Helper()
	a, err := f.articles.Create(context.Background(), author, domain.ArticleInput{
		Title:       title,
		Description: "about " + title,
		Body:        "body of " + title,
		TagList:     tags,
	})
	require.NoError(t, err, "publish %q", title)
	return a
}

func page(limit, offset int) domain.ArticleFilter {
	return domain.ArticleFilter{Limit: limit, Offset: offset}
}

func TestArticleService_Create(t *testing.T) {
	f := newArticleFixture(t)
	jake, _ := register(t, f.auth, "jake")

	a := f.publish(t, jake, "How to train your dragon", "dragons", " training ", "dragons", "")

	assert.NotZero(t, a.ID)
	assert.Equal(t, []string{"dragons", "training"}, a.TagList)
	assert.Equal(t, "jake", a.Author.Username)
	assert.False(t, a.Author.Following)
	assert.False(t, a.Favorited)
	assert.Zero(t, a.FavoritesCount)
	assert.Equal(t, strconv.FormatInt(a.CreatedAt.Unix(), 10)+"-how-to-train-your-dragon", a.Slug)
}

func TestArticleService_Create_Validation(t *testing.T) {
	f := newArticleFixture(t)
	jake, _ := register(t, f.auth, "jake")

	_, err := f.articles.Create(context.Background(), jake, domain.ArticleInput{Title: " "})
	fields := validationFields(t, err)
	for _, field := range []string{"title", "description", "body"} {
		assert.Equal(t, []string{"can't be blank"}, fields[field], field)
	}
}

func TestArticleService_Get_ViewerFlags(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	jake, _ := register(t, f.auth, "jake")
	x, _ := register(t, f.auth, "xavier")
	y, _ := register(t, f.auth, "yolanda")

	a := f.publish(t, jake, "Flags")
	_, err := f.articles.Favorite(ctx, a.Slug, x)
	require.NoError(t, err)
	_, err = f.profiles.Follow(ctx, x, "jake")
	require.NoError(t, err)

	asX, err := f.articles.Get(ctx, a.Slug, x)
	require.NoError(t, err)
	assert.True(t, asX.Favorited)
	assert.True(t, asX.Author.Following)
	assert.Equal(t, int64(1), asX.FavoritesCount)

	asY, err := f.articles.Get(ctx, a.Slug, y)
	require.NoError(t, err)
	assert.False(t, asY.Favorited)
	assert.False(t, asY.Author.Following)
	assert.Equal(t, int64(1), asY.FavoritesCount)

	anon, err := f.articles.Get(ctx, a.Slug, nil)
	require.NoError(t, err)
	assert.False(t, anon.Favorited)
	assert.False(t, anon.Author.Following)
}

func TestArticleService_Get_NotFound(t *testing.T) {
	f := newArticleFixture(t)

	_, err := f.articles.Get(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArticleService_FavoriteIdempotent(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	jake, _ := register(t, f.auth, "jake")
	anna, _ := register(t, f.auth, "anna")
	a := f.publish(t, jake, "Favorites")

	for i := 0; i < 2; i++ {
		got, err := f.articles.Favorite(ctx, a.Slug, anna)
		require.NoError(t, err)
		assert.True(t, got.Favorited)
		assert.Equal(t, int64(1), got.FavoritesCount)
	}

	for i := 0; i < 2; i++ {
		got, err := f.articles.Unfavorite(ctx, a.Slug, anna)
		require.NoError(t, err)
		assert.False(t, got.Favorited)
		assert.Zero(t, got.FavoritesCount)
	}

	_, err := f.articles.Favorite(ctx, "missing", anna)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArticleService_Update_SlugFollowsTitle(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	jake, _ := register(t, f.auth, "jake")
	a := f.publish(t, jake, "Original title")

	body := "a new body"
	bodyOnly, err := f.articles.Update(ctx, a.Slug, jake, domain.ArticlePatch{Body: &body})
	require.NoError(t, err)
	assert.Equal(t, a.Slug, bodyOnly.Slug, "body change must keep the slug")
	assert.Equal(t, body, bodyOnly.Body)
	assert.Equal(t, a.Title, bodyOnly.Title)

	title := "Brand new title"
	retitled, err := f.articles.Update(ctx, a.Slug, jake, domain.ArticlePatch{Title: &title})
	require.NoError(t, err)
	want := strconv.FormatInt(a.CreatedAt.Unix(), 10) + "-brand-new-title"
	assert.Equal(t, want, retitled.Slug)
	assert.Equal(t, body, retitled.Body)

	_, err = f.articles.Get(ctx, a.Slug, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.articles.Get(ctx, want, nil)
	assert.NoError(t, err)
}

func TestArticleService_Update_Validation(t *testing.T) {
	f := newArticleFixture(t)
	jake, _ := register(t, f.auth, "jake")
	a := f.publish(t, jake, "Keep me")

	blank := ""
	_, err := f.articles.Update(context.Background(), a.Slug, jake, domain.ArticlePatch{Title: &blank, Body: &blank})
	fields := validationFields(t, err)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "body")
	assert.NotContains(t, fields, "description")
}

func TestArticleService_AuthorizationOrder(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	jake, _ := register(t, f.auth, "jake")
	anna, _ := register(t, f.auth, "anna")
	a := f.publish(t, jake, "Guarded")
	title := "Hijacked"

	tests := []struct {
		name   string
		slug   string
		viewer *domain.User
		want   error
	}{
		{"missing slug without viewer", "missing", nil, domain.ErrNotFound},
		{"missing slug with viewer", "missing", anna, domain.ErrNotFound},
		{"existing slug without viewer", a.Slug, nil, domain.ErrUnauthorized},
		{"existing slug owned by someone else", a.Slug, anna, domain.ErrForbidden},
	}

	for _, tc := range tests {
		t.Run("delete "+tc.name, func(t *testing.T) {
			assert.ErrorIs(t, f.articles.Delete(ctx, tc.slug, tc.viewer), tc.want)
		})
		t.Run("update "+tc.name, func(t *testing.T) {
			_, err := f.articles.Update(ctx, tc.slug, tc.viewer, domain.ArticlePatch{Title: &title})
			assert.ErrorIs(t, err, tc.want)
		})
	}

	require.NoError(t, f.articles.Delete(ctx, a.Slug, jake))
	_, err := f.articles.Get(ctx, a.Slug, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArticleService_ListPagination(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		author, _ := register(t, f.auth, fmt.Sprintf("author%02d", i))
		f.publish(t, author, fmt.Sprintf("Article %02d", i))
	}

	got, err := f.articles.List(ctx, page(10, 20), nil)
	require.NoError(t, err)
	assert.Len(t, got.Articles, 5)
	assert.Equal(t, 5, got.Count)

	first, err := f.articles.List(ctx, page(domain.DefaultPageLimit, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPageLimit, first.Count)
	assert.Equal(t, "Article 24", first.Articles[0].Title)
}

func TestArticleService_ListPageBounds(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter domain.ArticleFilter
		field  string
	}{
		{"zero limit", page(0, 0), "limit"},
		{"over max", page(domain.MaxPageLimit+1, 0), "limit"},
		{"negative offset", page(10, -1), "offset"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.articles.List(ctx, tc.filter, nil)
			assert.Contains(t, validationFields(t, err), tc.field)
		})
	}

	_, err := f.articles.List(ctx, page(domain.MaxPageLimit, 0), nil)
	assert.NoError(t, err)
}

func TestArticleService_ListFlagsAndFilters(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	jake, _ := register(t, f.auth, "jake")
	anna, _ := register(t, f.auth, "anna")
	bob, _ := register(t, f.auth, "bob")

	dragons := f.publish(t, jake, "Dragons", "dragons")
	f.publish(t, anna, "Cats", "cats")

	_, err := f.articles.Favorite(ctx, dragons.Slug, bob)
	require.NoError(t, err)
	_, err = f.profiles.Follow(ctx, bob, "jake")
	require.NoError(t, err)

	all, err := f.articles.List(ctx, page(20, 0), bob)
	require.NoError(t, err)
	require.Equal(t, 2, all.Count)
	for _, a := range all.Articles {
		switch a.Author.Username {
		case "jake":
			assert.True(t, a.Author.Following)
			assert.True(t, a.Favorited)
			assert.Equal(t, int64(1), a.FavoritesCount)
			assert.Equal(t, []string{"dragons"}, a.TagList)
		case "anna":
			assert.False(t, a.Author.Following)
			assert.False(t, a.Favorited)
			assert.Zero(t, a.FavoritesCount)
		}
	}

	byTag, err := f.articles.List(ctx, domain.ArticleFilter{Tag: "cats", Limit: 20}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, byTag.Count)
	assert.Equal(t, "anna", byTag.Articles[0].Author.Username)

	byFavorite, err := f.articles.List(ctx, domain.ArticleFilter{FavoritedBy: "bob", Limit: 20}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, byFavorite.Count)
	assert.Equal(t, dragons.Slug, byFavorite.Articles[0].Slug)

	// FollowedBy is reserved for the feed.
	ignored, err := f.articles.List(ctx, domain.ArticleFilter{FollowedBy: bob.ID, Limit: 20}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, ignored.Count)

	empty, err := f.articles.List(ctx, domain.ArticleFilter{Author: "nobody", Limit: 20}, nil)
	require.NoError(t, err)
	assert.NotNil(t, empty.Articles)
	assert.Zero(t, empty.Count)
}

func TestArticleService_Feed(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	jake, _ := register(t, f.auth, "jake")
	anna, _ := register(t, f.auth, "anna")
	bob, _ := register(t, f.auth, "bob")

	f.publish(t, jake, "Followed one")
	f.publish(t, jake, "Followed two")
	f.publish(t, anna, "Not followed")

	feed, err := f.articles.Feed(ctx, bob, 20, 0)
	require.NoError(t, err)
	assert.Zero(t, feed.Count)

	_, err = f.profiles.Follow(ctx, bob, "jake")
	require.NoError(t, err)

	feed, err = f.articles.Feed(ctx, bob, 20, 0)
	require.NoError(t, err)
	require.Equal(t, 2, feed.Count)
	for _, a := range feed.Articles {
		assert.Equal(t, "jake", a.Author.Username)
		assert.True(t, a.Author.Following)
	}

	_, err = f.articles.Feed(ctx, nil, 20, 0)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestArticleService_Tags(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	jake, _ := register(t, f.auth, "jake")

	tags, err := f.articles.Tags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)

	f.publish(t, jake, "One", "zeta", "alpha")
	f.publish(t, jake, "Two", "alpha", "mid")

	tags, err = f.articles.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, tags)
}
