package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// Register creates an account.  Duplicate usernames come back as 409.
func (c *Client) Register(ctx context.Context, cr Credentials) error {
	cl, err := newCall(http.MethodPost, "/api/users/register").withJSON(cr)
	if err != nil {
		return err
	}
	return c.do(ctx, cl, nil)
}

// Login exchanges credentials for a user token.
func (c *Client) Login(ctx context.Context, cr Credentials) (LoginResponse, error) {
	return c.login(ctx, "/api/users/login", cr)
}

// AdminLogin exchanges credentials for an admin token.
func (c *Client) AdminLogin(ctx context.Context, cr Credentials) (LoginResponse, error) {
	return c.login(ctx, "/api/admin/login", cr)
}

func (c *Client) login(ctx context.Context, route string, cr Credentials) (LoginResponse, error) {
	var out LoginResponse
	cl, err := newCall(http.MethodPost, route).withJSON(cr)
	if err != nil {
		return out, err
	}
	if err := c.do(ctx, cl, &out); err != nil {
		return out, err
	}
	if out.Token == "" {
		return out, fmt.Errorf("login %s: response carried no token", route)
	}
	return out, nil
}

// ValidateUser succeeds iff the bound token is accepted for the user role.
func (c *Client) ValidateUser(ctx context.Context) error {
	return c.do(ctx, newCall(http.MethodGet, "/api/users/validate"), nil)
}

// ValidateAdmin succeeds iff the bound token is accepted for the admin role.
func (c *Client) ValidateAdmin(ctx context.Context) error {
	return c.do(ctx, newCall(http.MethodGet, "/api/admin/validate"), nil)
}

// Me returns the caller's own profile.
func (c *Client) Me(ctx context.Context) (UserProfile, error) {
	var out UserProfile
	err := c.do(ctx, newCall(http.MethodGet, "/api/users/me"), &out)
	return out, err
}

// User returns a public profile.
func (c *Client) User(ctx context.Context, id int64) (UserProfile, error) {
	var out UserProfile
	err := c.do(ctx, newCall(http.MethodGet, "/api/users/{id}", id), &out)
	return out, err
}

// UpdateProfile changes the caller's username and bio.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdate) (UserProfile, error) {
	var out UserProfile
	cl, err := newCall(http.MethodPut, "/api/users/profile").withJSON(in)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, cl, &out)
	return out, err
}

// Favourites lists the caller's favourite recipes.
func (c *Client) Favourites(ctx context.Context) ([]Recipe, error) {
	out := []Recipe{}
	err := c.do(ctx, newCall(http.MethodGet, "/api/users/favourites"), &out)
	return out, err
}

// UserImage fetches a profile image as an opaque blob.
func (c *Client) UserImage(ctx context.Context, id int64) (Image, error) {
	resp, err := c.send(ctx, newCall(http.MethodGet, "/api/users/{id}/image", id))
	if err != nil {
		return Image{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Image{}, fmt.Errorf("read image: %w", err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return Image{ContentType: ct, Data: data}, nil
}

// UploadProfileImage replaces the caller's image.  The blob travels as the
// multipart field "image".
func (c *Client) UploadProfileImage(ctx context.Context, filename, contentType string, r io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("multipart part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("multipart copy: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("multipart close: %w", err)
	}

	cl := newCall(http.MethodPost, "/api/users/profile/image")
	cl.body, cl.ctype = &buf, mw.FormDataContentType()
	return c.do(ctx, cl, nil)
}
