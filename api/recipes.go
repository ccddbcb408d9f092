package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/contract"
	"github.com/klipach/dietapp/files"
	"github.com/klipach/dietapp/markup"
	"github.com/klipach/dietapp/validation"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

func recipeResponse(r contract.Recipe) contract.RecipeResponse {
	return contract.RecipeResponse{Recipe: r, DescriptionHTML: markup.RecipeHTML(r.Description)}
}

// matchesRecipe reports whether r contains q in its name or ingredients and is served as mealType.
func matchesRecipe(r contract.Recipe, q string, mealType contract.MealType) bool {
	if mealType != "" {
		found := false
		for _, mt := range r.MealTypes {
			if mt == mealType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Name), q) {
		return true
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing.Name), q) {
			return true
		}
	}
	return false
}

func (s *Server) listRecipes(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	var mealType contract.MealType
	if mt := c.Query("mealType"); mt != "" {
		mealType = contract.ParseMealType(mt)
	}
	all, err := s.Recipes.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]contract.RecipeResponse, 0, len(all))
	for _, r := range all {
		if matchesRecipe(r, q, mealType) {
			out = append(out, recipeResponse(r))
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getRecipe(c *gin.Context) {
	r, err := s.Recipes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recipeResponse(*r))
}

func validateRecipe(req contract.RecipeRequest) error {
	checks := []error{validation.Calories(req.Calories)}
	if req.ProteinG < 0 || req.FatG < 0 || req.CarbsG < 0 {
		checks = append(checks, apperr.NewValidation("Makroskładniki nie mogą być ujemne"))
	}
	if req.PrepTimeMinutes < 0 {
		checks = append(checks, apperr.NewValidation("Czas przygotowania nie może być ujemny"))
	}
	for _, ing := range req.Ingredients {
		if ing.Quantity < 0 {
			checks = append(checks, apperr.NewValidation("Ilość składnika nie może być ujemna"))
		}
	}
	return validation.First(checks...)
}

func applyRecipeRequest(r *contract.Recipe, req contract.RecipeRequest) {
	r.Name = strings.TrimSpace(req.Name)
	r.Description = req.Description
	r.Ingredients = req.Ingredients
	r.MealTypes = r.MealTypes[:0]
	seen := map[contract.MealType]bool{}
	for _, s := range req.MealTypes {
		mt := contract.ParseMealType(s)
		if !seen[mt] {
			seen[mt] = true
			r.MealTypes = append(r.MealTypes, mt)
		}
	}
	r.Calories = req.Calories
	r.ProteinG = req.ProteinG
	r.FatG = req.FatG
	r.CarbsG = req.CarbsG
	r.PrepTimeMinutes = req.PrepTimeMinutes
}

func (s *Server) createRecipe(c *gin.Context) {
	var req contract.RecipeRequest
	if !s.bind(c, &req) {
		return
	}
	if err := validateRecipe(req); err != nil {
		s.fail(c, err)
		return
	}
	now := s.Now()
	r := &contract.Recipe{CreatedBy: identity(c).UserID, CreatedAt: now, UpdatedAt: now}
	applyRecipeRequest(r, req)
	if err := s.Recipes.Save(c.Request.Context(), r); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipeResponse(*r))
}

func (s *Server) updateRecipe(c *gin.Context) {
	var req contract.RecipeRequest
	if !s.bind(c, &req) {
		return
	}
	if err := validateRecipe(req); err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	r, err := s.Recipes.Get(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	applyRecipeRequest(r, req)
	r.UpdatedAt = s.Now()
	if err := s.Recipes.Save(ctx, r); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recipeResponse(*r))
}

func (s *Server) deleteRecipe(c *gin.Context) {
	if err := s.Recipes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// uploadRecipeImage stores the multipart "file" field and points the recipe at it.
func (s *Server) uploadRecipeImage(c *gin.Context) {
	ctx := c.Request.Context()
	r, err := s.Recipes.Get(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.Config.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, apperr.Wrap(apperr.Validation, "Brak pliku lub plik jest za duży", err))
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		s.fail(c, apperr.NewValidation("Dozwolone są tylko obrazy JPEG, PNG i WebP"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	objectPath := files.RecipeImagePath(r.ID, fh.Filename)
	if _, err := s.Objects.Put(ctx, objectPath, contentType, f); err != nil {
		s.fail(c, err)
		return
	}
	r.ImageURL = files.PublicURL(s.Config.StorageBucket, objectPath)
	r.UpdatedAt = s.Now()
	if err := s.Recipes.Save(ctx, r); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recipeResponse(*r))
}
