package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Recipes lists every recipe.
func (c *Client) Recipes(ctx context.Context) ([]Recipe, error) {
	return c.recipeList(ctx, newCall(http.MethodGet, "/api/recipes"))
}

// SearchRecipes filters by title, author, and tags (comma-joined).  No match (204) is an
// empty slice.
func (c *Client) SearchRecipes(ctx context.Context, q RecipeQuery) ([]Recipe, error) {
	cl := newCall(http.MethodGet, "/api/recipes/search")
	cl.query = url.Values{}
	if s := strings.TrimSpace(q.Title); s != "" {
		cl.query.Set("title", s)
	}
	if s := strings.TrimSpace(q.Username); s != "" {
		cl.query.Set("username", s)
	}
	var tags []string
	for _, t := range q.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) > 0 {
		cl.query.Set("tags", strings.Join(tags, ","))
	}
	return c.recipeList(ctx, cl)
}

// Recipe returns one recipe.
func (c *Client) Recipe(ctx context.Context, id int64) (Recipe, error) {
	var out Recipe
	err := c.do(ctx, newCall(http.MethodGet, "/api/recipes/recipe/{id}", id), &out)
	return out, err
}

// MyRecipes lists the caller's recipes.
func (c *Client) MyRecipes(ctx context.Context) ([]Recipe, error) {
	return c.recipeList(ctx, newCall(http.MethodGet, "/api/recipes/user"))
}

// UserRecipes lists another user's recipes.
func (c *Client) UserRecipes(ctx context.Context, userID int64) ([]Recipe, error) {
	return c.recipeList(ctx, newCall(http.MethodGet, "/api/recipes/user/{id}", userID))
}

// CreateRecipe adds a recipe owned by the caller.
func (c *Client) CreateRecipe(ctx context.Context, in RecipeInput) error {
	in.ID = 0
	return c.sendRecipe(ctx, http.MethodPost, in)
}

// UpdateRecipe replaces the recipe identified by in.ID.
func (c *Client) UpdateRecipe(ctx context.Context, in RecipeInput) error {
	return c.sendRecipe(ctx, http.MethodPut, in)
}

// DeleteRecipe removes one of the caller's recipes.
func (c *Client) DeleteRecipe(ctx context.Context, id int64) error {
	return c.do(ctx, newCall(http.MethodDelete, "/api/recipes/recipe/{id}", id), nil)
}

// AddFavourite marks a recipe as a favourite.
func (c *Client) AddFavourite(ctx context.Context, id int64) error {
	return c.do(ctx, newCall(http.MethodPost, "/api/recipes/{id}/favourite", id), nil)
}

// RemoveFavourite unmarks a favourite.
func (c *Client) RemoveFavourite(ctx context.Context, id int64) error {
	return c.do(ctx, newCall(http.MethodDelete, "/api/recipes/{id}/favourite", id), nil)
}

// Tags lists selectable tags.
func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	out := []Tag{}
	err := c.do(ctx, newCall(http.MethodGet, "/api/tags"), &out)
	return out, err
}

func (c *Client) recipeList(ctx context.Context, cl call) ([]Recipe, error) {
	out := []Recipe{}
	if err := c.do(ctx, cl, &out); err != nil {
		return nil, err
	}
	if out == nil { // JSON null
		out = []Recipe{}
	}
	return out, nil
}

func (c *Client) sendRecipe(ctx context.Context, method string, in RecipeInput) error {
	if in.Ingredients == nil {
		in.Ingredients = []Ingredient{}
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	cl, err := newCall(method, "/api/recipes").withJSON(in)
	if err != nil {
		return err
	}
	return c.do(ctx, cl, nil)
}
