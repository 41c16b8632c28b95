package api

import (
	"context"
	"net/http"
)

// AdminUsers lists every account.  Requires an admin token.
func (c *Client) AdminUsers(ctx context.Context) ([]AdminUser, error) {
	out := []AdminUser{}
	err := c.do(ctx, newCall(http.MethodGet, "/api/admin/users"), &out)
	return out, err
}

// AdminDeleteUser removes an account.
func (c *Client) AdminDeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, newCall(http.MethodDelete, "/api/admin/users/{id}", id), nil)
}

// AdminRecipes lists every recipe with its author.
func (c *Client) AdminRecipes(ctx context.Context) ([]AdminRecipe, error) {
	out := []AdminRecipe{}
	err := c.do(ctx, newCall(http.MethodGet, "/api/admin/recipes"), &out)
	return out, err
}

// AdminDeleteRecipe removes any recipe.
func (c *Client) AdminDeleteRecipe(ctx context.Context, id int64) error {
	return c.do(ctx, newCall(http.MethodDelete, "/api/admin/recipes/{id}", id), nil)
}
