package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/contract"
	"github.com/klipach/dietapp/dietplan"
	"github.com/klipach/dietapp/store"
	"github.com/klipach/dietapp/validation"
)

func (s *Server) getProfile(c *gin.Context) {
	ctx := c.Request.Context()
	uid := identity(c).UserID
	u, err := s.Users.Get(ctx, uid)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Users.Touch(ctx, uid); err != nil {
		logger(c).Warn("error while touching user", errAttr(err))
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) updateProfile(c *gin.Context) {
	var req contract.ProfileUpdateRequest
	if !s.bind(c, &req) {
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	checks := []error{validation.Name(req.FirstName), validation.Name(req.LastName)}
	if req.BirthDate != "" {
		checks = append(checks, validation.Date(req.BirthDate))
	}
	if req.HeightCm != 0 {
		checks = append(checks, validation.Height(req.HeightCm))
	}
	if req.TargetWeightKg != 0 {
		checks = append(checks, validation.Weight(req.TargetWeightKg))
	}
	if req.WaterGoalMl != 0 {
		checks = append(checks, validation.WaterAmount(req.WaterGoalMl))
	}
	if err := validation.First(checks...); err != nil {
		s.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	uid := identity(c).UserID
	if err := s.Users.UpdateProfile(ctx, uid, req); err != nil {
		s.fail(c, err)
		return
	}
	u, err := s.Users.Get(ctx, uid)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) addFCMToken(c *gin.Context) {
	var req contract.FCMTokenRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.Users.AddToken(c.Request.Context(), identity(c).UserID, strings.TrimSpace(req.Token)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removeFCMToken(c *gin.Context) {
	var req contract.FCMTokenRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.Users.RemoveTokens(c.Request.Context(), identity(c).UserID, strings.TrimSpace(req.Token)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listMeasurements(c *gin.Context) {
	f := store.MeasurementFilter{From: c.Query("from"), To: c.Query("to")}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if err := validation.Date(d); err != nil {
			s.fail(c, err)
			return
		}
	}
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			s.fail(c, apperr.NewValidation("Nieprawidłowy limit"))
			return
		}
		f.Limit = n
	}
	list, err := s.Measurements.List(c.Request.Context(), identity(c).UserID, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func validateMeasurement(req contract.MeasurementRequest) error {
	return validation.First(
		validation.Date(req.Date),
		validation.Weight(req.WeightKg),
		validation.Circumference(req.WaistCm),
		validation.Circumference(req.HipsCm),
		validation.Circumference(req.ChestCm),
		validation.Circumference(req.ThighCm),
		validation.Circumference(req.ArmCm),
		validation.BodyFat(req.BodyFatPct),
	)
}

func (s *Server) measurementFromRequest(ctx context.Context, uid string, req contract.MeasurementRequest) (*contract.BodyMeasurements, error) {
	u, err := s.Users.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &contract.BodyMeasurements{
		UserID:     uid,
		Date:       strings.TrimSpace(req.Date),
		WeightKg:   req.WeightKg,
		WaistCm:    req.WaistCm,
		HipsCm:     req.HipsCm,
		ChestCm:    req.ChestCm,
		ThighCm:    req.ThighCm,
		ArmCm:      req.ArmCm,
		BodyFatPct: req.BodyFatPct,
		BMI:        contract.BMI(req.WeightKg, u.HeightCm),
		Notes:      strings.TrimSpace(req.Notes),
	}, nil
}

func (s *Server) createMeasurement(c *gin.Context) {
	var req contract.MeasurementRequest
	if !s.bind(c, &req) {
		return
	}
	if err := validateMeasurement(req); err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	m, err := s.measurementFromRequest(ctx, identity(c).UserID, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Measurements.Add(ctx, m); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (s *Server) updateMeasurement(c *gin.Context) {
	var req contract.MeasurementRequest
	if !s.bind(c, &req) {
		return
	}
	if err := validateMeasurement(req); err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	uid := identity(c).UserID
	m, err := s.measurementFromRequest(ctx, uid, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	m.ID = c.Param("id")
	if err := s.Measurements.Update(ctx, m); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) deleteMeasurement(c *gin.Context) {
	if err := s.Measurements.Delete(c.Request.Context(), identity(c).UserID, c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// waterGoal is the user's own goal or the configured default.
func (s *Server) waterGoal(ctx context.Context, uid string) (int, error) {
	u, err := s.Users.Get(ctx, uid)
	if err != nil {
		return 0, err
	}
	if u.WaterGoalMl > 0 {
		return u.WaterGoalMl, nil
	}
	return s.Config.DefaultWaterGoalMl, nil
}

func (s *Server) getWater(c *gin.Context) {
	date := c.Param("date")
	if err := validation.Date(date); err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	uid := identity(c).UserID
	goal, err := s.waterGoal(ctx, uid)
	if err != nil {
		s.fail(c, err)
		return
	}
	w, err := s.Water.Get(ctx, uid, date, goal)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// addWater accepts negative amounts to undo an entry.
func (s *Server) addWater(c *gin.Context) {
	date := c.Param("date")
	var req contract.WaterAddRequest
	if !s.bind(c, &req) {
		return
	}
	if err := validation.First(validation.Date(date), validation.WaterAmount(max(req.AmountMl, -req.AmountMl))); err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	uid := identity(c).UserID
	goal, err := s.waterGoal(ctx, uid)
	if err != nil {
		s.fail(c, err)
		return
	}
	w, err := s.Water.Add(ctx, uid, date, req.AmountMl, goal)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *Server) setWater(c *gin.Context) {
	date := c.Param("date")
	var req contract.WaterSetRequest
	if !s.bind(c, &req) {
		return
	}
	checks := []error{validation.Date(date)}
	if req.AmountMl > 0 {
		checks = append(checks, validation.WaterAmount(req.AmountMl))
	}
	if err := validation.First(checks...); err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	uid := identity(c).UserID
	goal, err := s.waterGoal(ctx, uid)
	if err != nil {
		s.fail(c, err)
		return
	}
	w := &contract.WaterIntake{UserID: uid, Date: date, AmountMl: req.AmountMl, GoalMl: goal}
	if err := s.Water.Set(ctx, w); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *Server) listMyDiets(c *gin.Context) {
	diets, err := s.Diets.ListByUser(c.Request.Context(), identity(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, diets)
}

// ownDiet loads a diet visible to the caller. Diets of other users are reported as missing to non-admins.
func (s *Server) ownDiet(c *gin.Context, id string) (*contract.Diet, error) {
	d, err := s.Diets.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	caller := identity(c)
	if d.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, store.ErrNotFound
	}
	return d, nil
}

func (s *Server) getMyDiet(c *gin.Context) {
	d, err := s.ownDiet(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) getEatenMeals(c *gin.Context) {
	date := c.Param("date")
	if err := validation.Date(date); err != nil {
		s.fail(c, err)
		return
	}
	em, err := s.EatenMeals.Get(c.Request.Context(), identity(c).UserID, date)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, em)
}

func (s *Server) setEatenMeals(c *gin.Context) {
	date := c.Param("date")
	var req contract.EatenMealsRequest
	if !s.bind(c, &req) {
		return
	}
	if err := validation.Date(date); err != nil {
		s.fail(c, err)
		return
	}
	em := &contract.EatenMeals{UserID: identity(c).UserID, Date: date}
	em.SetMeals(req.MealIDs)
	if err := s.EatenMeals.Save(c.Request.Context(), em); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, em)
}

func (s *Server) clearEatenMeals(c *gin.Context) {
	date := c.Param("date")
	if err := validation.Date(date); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.EatenMeals.Delete(c.Request.Context(), identity(c).UserID, date); err != nil && !isNotFound(err) {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) toggleEatenMeal(c *gin.Context) {
	date := c.Param("date")
	var req contract.ToggleMealRequest
	if !s.bind(c, &req) {
		return
	}
	if err := validation.Date(date); err != nil {
		s.fail(c, err)
		return
	}
	eaten, err := s.EatenMeals.Toggle(c.Request.Context(), identity(c).UserID, date, req.MealID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, contract.ToggleMealResponse{MealID: req.MealID, Eaten: eaten})
}

func (s *Server) listShoppingLists(c *gin.Context) {
	lists, err := s.ShoppingLists.ListByUser(c.Request.Context(), identity(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

// createShoppingList generates a list from the ingredients of the selected diet days.
func (s *Server) createShoppingList(c *gin.Context) {
	var req contract.ShoppingListRequest
	if !s.bind(c, &req) {
		return
	}
	if req.FromDay < 0 || req.ToDay < 0 || (req.ToDay > 0 && req.FromDay > req.ToDay) {
		s.fail(c, apperr.NewValidation("Nieprawidłowy zakres dni"))
		return
	}
	diet, err := s.ownDiet(c, req.DietID)
	if err != nil {
		s.fail(c, err)
		return
	}
	items := dietplan.ShoppingItems(diet.Days, req.FromDay, req.ToDay)
	if len(items) == 0 {
		s.fail(c, apperr.NewValidation("Brak składników w wybranym zakresie dni"))
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = shoppingListName(diet.Name, req.FromDay, req.ToDay)
	}
	list := &contract.ShoppingList{
		UserID:    identity(c).UserID,
		DietID:    diet.ID,
		Name:      name,
		FromDay:   req.FromDay,
		ToDay:     req.ToDay,
		Items:     items,
		CreatedAt: s.Now(),
	}
	if err := s.ShoppingLists.Save(c.Request.Context(), list); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func shoppingListName(dietName string, from, to int) string {
	switch {
	case from == 0 && to == 0:
		return dietName
	case to == 0:
		return fmt.Sprintf("%s (od dnia %d)", dietName, from)
	case from == 0:
		return fmt.Sprintf("%s (do dnia %d)", dietName, to)
	default:
		return fmt.Sprintf("%s (dni %d-%d)", dietName, from, to)
	}
}

func (s *Server) ownShoppingList(c *gin.Context) (*contract.ShoppingList, error) {
	l, err := s.ShoppingLists.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if l.UserID != identity(c).UserID {
		return nil, store.ErrNotFound
	}
	return l, nil
}

func (s *Server) getShoppingList(c *gin.Context) {
	l, err := s.ownShoppingList(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) checkShoppingItem(c *gin.Context) {
	var req contract.CheckItemRequest
	if !s.bind(c, &req) {
		return
	}
	if _, err := s.ownShoppingList(c); err != nil {
		s.fail(c, err)
		return
	}
	l, err := s.ShoppingLists.SetItemChecked(c.Request.Context(), c.Param("id"), c.Param("itemId"), req.Checked)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) deleteShoppingList(c *gin.Context) {
	if _, err := s.ownShoppingList(c); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.ShoppingLists.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
