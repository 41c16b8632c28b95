package api

import (
	"encoding/json"
	"strings"
)

// Display defaults applied once at the boundary.
const unknownAuthor = "Unknown"

// Ingredient is one recipe line.
type Ingredient struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// UnmarshalJSON accepts the three names the backend has used for the
// ingredient name.
func (i *Ingredient) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID             int64  `json:"id"`
		Name           string `json:"name"`
		IngredientName string `json:"ingredientName"`
		Ingredient     string `json:"ingredient"`
		Quantity       string `json:"quantity"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*i = Ingredient{ID: raw.ID, Name: firstNonEmpty(raw.Name, raw.IngredientName, raw.Ingredient), Quantity: raw.Quantity}
	return nil
}

// Recipe as rendered by views.
type Recipe struct {
	ID                int64        `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	Instructions      string       `json:"instructions"`
	CreatedByUsername string       `json:"createdByUsername"`
	CreatedByUserID   int64        `json:"createdByUserId"`
	Tags              []string     `json:"tags"`
	Ingredients       []Ingredient `json:"ingredients"`
	Favourite         bool         `json:"favourite"`
}

// UnmarshalJSON applies display defaults and accepts "isFavourite".  A
// missing or null description stays "".
func (r *Recipe) UnmarshalJSON(b []byte) error {
	type plain Recipe
	var raw struct {
		plain
		IsFavourite bool `json:"isFavourite"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Recipe(raw.plain)
	r.Favourite = r.Favourite || raw.IsFavourite
	if strings.TrimSpace(r.CreatedByUsername) == "" {
		r.CreatedByUsername = unknownAuthor
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Ingredients == nil {
		r.Ingredients = []Ingredient{}
	}
	return nil
}

// RecipeInput is the create/update payload.  ID is zero on create.
type RecipeInput struct {
	ID           int64        `json:"id,omitempty"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Instructions string       `json:"instructions"`
	Ingredients  []Ingredient `json:"ingredients"`
	Tags         []string     `json:"tags"`
}

// RecipeQuery filters SearchRecipes.  Empty fields are omitted.
type RecipeQuery struct {
	Title    string
	Username string
	Tags     []string
}

// Tag is a selectable recipe label.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UserBasic names a user inside other records.
type UserBasic struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// UserProfile is a public or own profile.
type UserProfile struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	Bio             string `json:"bio"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// ProfileUpdate is the PUT /api/users/profile payload.
type ProfileUpdate struct {
	Username string `json:"username"`
	Bio      string `json:"bio"`
}

// Cookbook groups recipes under an owner and collaborators.
type Cookbook struct {
	ID            int64       `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Owner         UserBasic   `json:"owner"`
	Collaborators []UserBasic `json:"collaborators"`
	Recipes       []Recipe    `json:"recipes"`
}

// UnmarshalJSON applies display defaults.
func (c *Cookbook) UnmarshalJSON(b []byte) error {
	type plain Cookbook
	var raw plain
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = Cookbook(raw)
	if strings.TrimSpace(c.Owner.Username) == "" {
		c.Owner.Username = unknownAuthor
	}
	if c.Collaborators == nil {
		c.Collaborators = []UserBasic{}
	}
	if c.Recipes == nil {
		c.Recipes = []Recipe{}
	}
	return nil
}

// CookbookInput is the create/update payload.
type CookbookInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CookbookQuery filters SearchCookbooks.
type CookbookQuery struct {
	Title    string
	Username string
}

// Credentials is the login and register payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// AdminUser is a row of the admin user list.
type AdminUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AdminRecipe is a row of the admin recipe list.
type AdminRecipe struct {
	ID                int64        `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	CreatedByUsername string       `json:"createdByUsername"`
	Ingredients       []Ingredient `json:"ingredients"`
}

// UnmarshalJSON applies display defaults.
func (a *AdminRecipe) UnmarshalJSON(b []byte) error {
	type plain AdminRecipe
	var raw plain
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*a = AdminRecipe(raw)
	if strings.TrimSpace(a.CreatedByUsername) == "" {
		a.CreatedByUsername = unknownAuthor
	}
	return nil
}

// Image is an opaque binary blob.
type Image struct {
	ContentType string
	Data        []byte
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
