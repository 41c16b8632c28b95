package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Cookbooks lists every cookbook.
func (c *Client) Cookbooks(ctx context.Context) ([]Cookbook, error) {
	return c.cookbookList(ctx, newCall(http.MethodGet, "/api/cookbooks"))
}

// SearchCookbooks filters by title and owner.
func (c *Client) SearchCookbooks(ctx context.Context, q CookbookQuery) ([]Cookbook, error) {
	cl := newCall(http.MethodGet, "/api/cookbooks/search")
	cl.query = url.Values{}
	if s := strings.TrimSpace(q.Title); s != "" {
		cl.query.Set("title", s)
	}
	if s := strings.TrimSpace(q.Username); s != "" {
		cl.query.Set("username", s)
	}
	return c.cookbookList(ctx, cl)
}

// Cookbook returns one cookbook with its recipes and collaborators.
func (c *Client) Cookbook(ctx context.Context, id int64) (Cookbook, error) {
	var out Cookbook
	err := c.do(ctx, newCall(http.MethodGet, "/api/cookbooks/{id}", id), &out)
	return out, err
}

// MyCookbooks lists cookbooks the caller owns or collaborates on.
func (c *Client) MyCookbooks(ctx context.Context) ([]Cookbook, error) {
	return c.cookbookList(ctx, newCall(http.MethodGet, "/api/cookbooks/user"))
}

// UserCookbooks lists another user's cookbooks.
func (c *Client) UserCookbooks(ctx context.Context, userID int64) ([]Cookbook, error) {
	return c.cookbookList(ctx, newCall(http.MethodGet, "/api/cookbooks/user/{id}", userID))
}

// CreateCookbook adds a cookbook owned by the caller.
func (c *Client) CreateCookbook(ctx context.Context, in CookbookInput) (Cookbook, error) {
	var out Cookbook
	cl, err := newCall(http.MethodPost, "/api/cookbooks").withJSON(in)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, cl, &out)
	return out, err
}

// UpdateCookbook changes title and description.
func (c *Client) UpdateCookbook(ctx context.Context, id int64, in CookbookInput) (Cookbook, error) {
	var out Cookbook
	cl, err := newCall(http.MethodPut, "/api/cookbooks/{id}", id).withJSON(in)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, cl, &out)
	return out, err
}

// DeleteCookbook removes a cookbook.
func (c *Client) DeleteCookbook(ctx context.Context, id int64) error {
	return c.do(ctx, newCall(http.MethodDelete, "/api/cookbooks/{id}", id), nil)
}

// AddCookbookRecipe files a recipe into a cookbook.
func (c *Client) AddCookbookRecipe(ctx context.Context, id, recipeID int64) error {
	return c.do(ctx, newCall(http.MethodPost, "/api/cookbooks/{id}/recipes/{recipeId}", id, recipeID), nil)
}

// RemoveCookbookRecipe takes a recipe out of a cookbook.
func (c *Client) RemoveCookbookRecipe(ctx context.Context, id, recipeID int64) error {
	return c.do(ctx, newCall(http.MethodDelete, "/api/cookbooks/{id}/recipes/{recipeId}", id, recipeID), nil)
}

// AddCollaborator grants username edit rights.
func (c *Client) AddCollaborator(ctx context.Context, id int64, username string) error {
	return c.do(ctx, collaboratorCall(http.MethodPost, id, username), nil)
}

// RemoveCollaborator revokes username's edit rights.
func (c *Client) RemoveCollaborator(ctx context.Context, id int64, username string) error {
	return c.do(ctx, collaboratorCall(http.MethodDelete, id, username), nil)
}

func collaboratorCall(method string, id int64, username string) call {
	cl := newCall(method, "/api/cookbooks/{id}/collaborators", id)
	cl.query = url.Values{"username": {strings.TrimSpace(username)}}
	return cl
}

func (c *Client) cookbookList(ctx context.Context, cl call) ([]Cookbook, error) {
	out := []Cookbook{}
	if err := c.do(ctx, cl, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Cookbook{}
	}
	return out, nil
}
