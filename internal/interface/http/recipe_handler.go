package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jchen-dev/recipebox/internal/domain/auth"
	"github.com/jchen-dev/recipebox/internal/domain/recipe"
)

// RecipeHandler wires the recipe CRUD endpoints to the recipe service.
type RecipeHandler struct {
	svc    recipe.Service
	logger *slog.Logger
}

// NewRecipeHandler constructs the handler.
func NewRecipeHandler(svc recipe.Service, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{svc: svc, logger: logger.With("component", "http.recipe")}
}

// List returns all recipes.
func (h *RecipeHandler) List(c *gin.Context) {
	recipes, err := h.svc.List(c.Request.Context())
	if err != nil {
		abortWithError(c, httpErrorFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// Get returns a single recipe.
func (h *RecipeHandler) Get(c *gin.Context) {
	rec, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, httpErrorFrom(err))
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Create stores a new recipe owned by the caller.
func (h *RecipeHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var input recipe.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, codeBadRequest, "invalid request body", err))
		return
	}
	rec, err := h.svc.Create(c.Request.Context(), actor, input)
	if err != nil {
		abortWithError(c, httpErrorFrom(err))
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// Update replaces a recipe's mutable fields.
func (h *RecipeHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var input recipe.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, codeBadRequest, "invalid request body", err))
		return
	}
	rec, err := h.svc.Update(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		abortWithError(c, httpErrorFrom(err))
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Delete removes a recipe.
func (h *RecipeHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		abortWithError(c, httpErrorFrom(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func requireActor(c *gin.Context) (auth.Claims, bool) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, auth.CodeInvalidAccessToken, "missing access token", nil))
		return auth.Claims{}, false
	}
	return claims, true
}
