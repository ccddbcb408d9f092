package contract

import "time"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ProfileUpdateRequest struct {
	FirstName      string  `json:"firstName" binding:"notblank"`
	LastName       string  `json:"lastName" binding:"notblank"`
	Gender         string  `json:"gender"`
	BirthDate      string  `json:"birthDate"`
	HeightCm       float64 `json:"heightCm"`
	TargetWeightKg float64 `json:"targetWeightKg"`
	WaterGoalMl    int     `json:"waterGoalMl"`
}

type FCMTokenRequest struct {
	Token string `json:"token" binding:"notblank"`
}

type MeasurementRequest struct {
	Date       string  `json:"date" binding:"required"`
	WeightKg   float64 `json:"weightKg"`
	WaistCm    float64 `json:"waistCm"`
	HipsCm     float64 `json:"hipsCm"`
	ChestCm    float64 `json:"chestCm"`
	ThighCm    float64 `json:"thighCm"`
	ArmCm      float64 `json:"armCm"`
	BodyFatPct float64 `json:"bodyFatPct"`
	Notes      string  `json:"notes"`
}

type WaterAddRequest struct {
	AmountMl int `json:"amountMl" binding:"required"`
}

// WaterSetRequest overwrites the day total, e.g. when correcting a mistaken entry.
type WaterSetRequest struct {
	AmountMl int `json:"amountMl" binding:"gte=0"`
}

type ToggleMealRequest struct {
	MealID string `json:"mealId" binding:"notblank"`
}

// EatenMealsRequest replaces the eaten meals of a day; clients use it to sync offline changes.
type EatenMealsRequest struct {
	MealIDs []string `json:"mealIds" binding:"dive,notblank"`
}

type ToggleMealResponse struct {
	MealID string `json:"mealId"`
	Eaten  bool   `json:"eaten"`
}

type ShoppingListRequest struct {
	DietID  string `json:"dietId" binding:"notblank"`
	Name    string `json:"name"`
	FromDay int    `json:"fromDay"`
	ToDay   int    `json:"toDay"`
}

type CheckItemRequest struct {
	Checked bool `json:"checked"`
}

type RecipeRequest struct {
	Name            string       `json:"name" binding:"notblank"`
	Description     string       `json:"description"`
	Ingredients     []Ingredient `json:"ingredients" binding:"dive"`
	MealTypes       []string     `json:"mealTypes"`
	Calories        float64      `json:"calories"`
	ProteinG        float64      `json:"proteinG"`
	FatG            float64      `json:"fatG"`
	CarbsG          float64      `json:"carbsG"`
	PrepTimeMinutes int          `json:"prepTimeMinutes"`
}

type RecipeResponse struct {
	Recipe
	DescriptionHTML string `json:"descriptionHtml"`
}

type InvitationRequest struct {
	Email     string `json:"email" binding:"required"`
	FirstName string `json:"firstName" binding:"notblank"`
	LastName  string `json:"lastName" binding:"notblank"`
	Role      string `json:"role"`
}

type InvitationResponse struct {
	PendingUser
	Link string `json:"link,omitempty"`
}

type AcceptInvitationRequest struct {
	Password         string `json:"password" binding:"required"`
	RepeatedPassword string `json:"repeatedPassword" binding:"required"`
	Gender           string `json:"gender"`
}

type RoleRequest struct {
	Role string `json:"role" binding:"notblank"`
}

type UsersResponse struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
}

type DietUploadResponse struct {
	Diet Diet     `json:"diet"`
	File DietFile `json:"file"`
}

// DashboardConfig is the admin dashboard layout persisted in local preferences.
type DashboardConfig struct {
	Widgets     []string  `json:"widgets"`
	WaterGoalMl int       `json:"waterGoalMl"`
	ShowBMI     bool      `json:"showBmi"`
	Units       string    `json:"units"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

var DefaultDashboardWidgets = []string{"users", "activeUsers", "diets", "recipes", "pendingUsers"}

func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Widgets:     append([]string(nil), DefaultDashboardWidgets...),
		WaterGoalMl: 2000,
		ShowBMI:     true,
		Units:       "metric",
	}
}
