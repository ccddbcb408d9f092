package contract

import (
	"math"
	"time"
)

const (
	UsersCollection         = "users"
	DietsCollection         = "diets"
	FilesCollection         = "files"
	EatenMealsCollection    = "eatenMeals"
	ShoppingListsCollection = "shopping_lists"
	RecipesCollection       = "recipes"
	PendingUsersCollection  = "pending_users"
	StatisticsCollection    = "statistics"

	MeasurementsSubcollection = "bodyMeasurements"
	WaterSubcollection        = "waterIntake"

	AppStatisticsDoc = "app"
)

type User struct {
	ID             string    `firestore:"id" json:"id"`
	Email          string    `firestore:"email" json:"email"`
	FirstName      string    `firestore:"firstName" json:"firstName"`
	LastName       string    `firestore:"lastName" json:"lastName"`
	Role           UserRole  `firestore:"role" json:"role"`
	Gender         Gender    `firestore:"gender" json:"gender"`
	BirthDate      string    `firestore:"birthDate" json:"birthDate,omitempty"`
	HeightCm       float64   `firestore:"heightCm" json:"heightCm"`
	TargetWeightKg float64   `firestore:"targetWeightKg" json:"targetWeightKg"`
	WaterGoalMl    int       `firestore:"waterGoalMl" json:"waterGoalMl"`
	FCMTokens      []string  `firestore:"fcmTokens" json:"-"`
	CreatedAt      time.Time `firestore:"createdAt" json:"createdAt"`
	LastActiveAt   time.Time `firestore:"lastActiveAt" json:"lastActiveAt"`
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Normalize applies fallback parsing to enum fields read from loosely typed documents.
func (u *User) Normalize() {
	u.Role = ParseUserRole(string(u.Role))
	u.Gender = ParseGender(string(u.Gender))
}

type Ingredient struct {
	Name     string  `firestore:"name" json:"name" binding:"notblank"`
	Quantity float64 `firestore:"quantity" json:"quantity"`
	Unit     string  `firestore:"unit" json:"unit"`
}

type DayMeal struct {
	ID          string       `firestore:"id" json:"id"`
	MealType    MealType     `firestore:"mealType" json:"mealType"`
	Name        string       `firestore:"name" json:"name"`
	RecipeID    string       `firestore:"recipeId" json:"recipeId,omitempty"`
	Ingredients []Ingredient `firestore:"ingredients" json:"ingredients"`
	Calories    float64      `firestore:"calories" json:"calories"`
	ProteinG    float64      `firestore:"proteinG" json:"proteinG"`
	FatG        float64      `firestore:"fatG" json:"fatG"`
	CarbsG      float64      `firestore:"carbsG" json:"carbsG"`
}

type DietDay struct {
	DayNumber int       `firestore:"dayNumber" json:"dayNumber"`
	Date      string    `firestore:"date" json:"date,omitempty"`
	Meals     []DayMeal `firestore:"meals" json:"meals"`
}

func (d DietDay) Calories() float64 {
	var total float64
	for _, m := range d.Meals {
		total += m.Calories
	}
	return total
}

type Diet struct {
	ID        string    `firestore:"id" json:"id"`
	UserID    string    `firestore:"userId" json:"userId"`
	Name      string    `firestore:"name" json:"name"`
	FileID    string    `firestore:"fileId" json:"fileId,omitempty"`
	StartDate string    `firestore:"startDate" json:"startDate,omitempty"`
	Days      []DietDay `firestore:"days" json:"days"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

type DietFile struct {
	ID          string    `firestore:"id" json:"id"`
	UserID      string    `firestore:"userId" json:"userId"`
	DietID      string    `firestore:"dietId" json:"dietId"`
	FileName    string    `firestore:"fileName" json:"fileName"`
	StoragePath string    `firestore:"storagePath" json:"storagePath"`
	ContentType string    `firestore:"contentType" json:"contentType"`
	Size        int64     `firestore:"size" json:"size"`
	UploadedBy  string    `firestore:"uploadedBy" json:"uploadedBy"`
	UploadedAt  time.Time `firestore:"uploadedAt" json:"uploadedAt"`
}

type EatenMeals struct {
	UserID    string    `firestore:"userId" json:"userId"`
	Date      string    `firestore:"date" json:"date"`
	MealIDs   []string  `firestore:"mealIds" json:"mealIds"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`
}

func (e *EatenMeals) Has(mealID string) bool {
	for _, id := range e.MealIDs {
		if id == mealID {
			return true
		}
	}
	return false
}

// SetMeals replaces the eaten meals, dropping duplicates and keeping the first occurrence order.
func (e *EatenMeals) SetMeals(mealIDs []string) {
	e.MealIDs = make([]string, 0, len(mealIDs))
	for _, id := range mealIDs {
		if !e.Has(id) {
			e.MealIDs = append(e.MealIDs, id)
		}
	}
}

// Toggle flips the eaten flag of mealID and reports the new state.
func (e *EatenMeals) Toggle(mealID string) bool {
	for i, id := range e.MealIDs {
		if id == mealID {
			e.MealIDs = append(e.MealIDs[:i], e.MealIDs[i+1:]...)
			return false
		}
	}
	e.MealIDs = append(e.MealIDs, mealID)
	return true
}

func EatenMealsID(userID, date string) string {
	return userID + "_" + date
}

type Recipe struct {
	ID              string       `firestore:"id" json:"id"`
	Name            string       `firestore:"name" json:"name"`
	Description     string       `firestore:"description" json:"description"`
	Ingredients     []Ingredient `firestore:"ingredients" json:"ingredients"`
	MealTypes       []MealType   `firestore:"mealTypes" json:"mealTypes"`
	Calories        float64      `firestore:"calories" json:"calories"`
	ProteinG        float64      `firestore:"proteinG" json:"proteinG"`
	FatG            float64      `firestore:"fatG" json:"fatG"`
	CarbsG          float64      `firestore:"carbsG" json:"carbsG"`
	PrepTimeMinutes int          `firestore:"prepTimeMinutes" json:"prepTimeMinutes"`
	ImageURL        string       `firestore:"imageUrl" json:"imageUrl,omitempty"`
	CreatedBy       string       `firestore:"createdBy" json:"createdBy"`
	CreatedAt       time.Time    `firestore:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time    `firestore:"updatedAt" json:"updatedAt"`
}

type ShoppingItem struct {
	ID       string  `firestore:"id" json:"id"`
	Name     string  `firestore:"name" json:"name" binding:"notblank"`
	Quantity float64 `firestore:"quantity" json:"quantity"`
	Unit     string  `firestore:"unit" json:"unit"`
	Checked  bool    `firestore:"checked" json:"checked"`
}

type ShoppingList struct {
	ID        string         `firestore:"id" json:"id"`
	UserID    string         `firestore:"userId" json:"userId"`
	DietID    string         `firestore:"dietId" json:"dietId"`
	Name      string         `firestore:"name" json:"name"`
	FromDay   int            `firestore:"fromDay" json:"fromDay"`
	ToDay     int            `firestore:"toDay" json:"toDay"`
	Items     []ShoppingItem `firestore:"items" json:"items"`
	CreatedAt time.Time      `firestore:"createdAt" json:"createdAt"`
}

type BodyMeasurements struct {
	ID         string    `firestore:"id" json:"id"`
	UserID     string    `firestore:"userId" json:"userId"`
	Date       string    `firestore:"date" json:"date"`
	WeightKg   float64   `firestore:"weightKg" json:"weightKg"`
	WaistCm    float64   `firestore:"waistCm" json:"waistCm"`
	HipsCm     float64   `firestore:"hipsCm" json:"hipsCm"`
	ChestCm    float64   `firestore:"chestCm" json:"chestCm"`
	ThighCm    float64   `firestore:"thighCm" json:"thighCm"`
	ArmCm      float64   `firestore:"armCm" json:"armCm"`
	BodyFatPct float64   `firestore:"bodyFatPct" json:"bodyFatPct"`
	BMI        float64   `firestore:"bmi" json:"bmi"`
	Notes      string    `firestore:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time `firestore:"createdAt" json:"createdAt"`
}

// BMI is weight / height² rounded to one decimal, or 0 when either value is missing.
func BMI(weightKg, heightCm float64) float64 {
	if weightKg <= 0 || heightCm <= 0 {
		return 0
	}
	h := heightCm / 100
	return math.Round(weightKg/(h*h)*10) / 10
}

type WaterIntake struct {
	UserID    string    `firestore:"userId" json:"userId"`
	Date      string    `firestore:"date" json:"date"`
	AmountMl  int       `firestore:"amountMl" json:"amountMl"`
	GoalMl    int       `firestore:"goalMl" json:"goalMl"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`
}

type AppStatistics struct {
	TotalUsers         int            `firestore:"totalUsers" json:"totalUsers"`
	ActiveUsers        int            `firestore:"activeUsers" json:"activeUsers"`
	AdminUsers         int            `firestore:"adminUsers" json:"adminUsers"`
	UsersByGender      map[string]int `firestore:"usersByGender" json:"usersByGender"`
	TotalDiets         int            `firestore:"totalDiets" json:"totalDiets"`
	TotalRecipes       int            `firestore:"totalRecipes" json:"totalRecipes"`
	PendingUsers       int            `firestore:"pendingUsers" json:"pendingUsers"`
	TotalShoppingLists int            `firestore:"totalShoppingLists" json:"totalShoppingLists"`
	GeneratedAt        time.Time      `firestore:"generatedAt" json:"generatedAt"`
}

type PendingUser struct {
	ID        string    `firestore:"id" json:"id"`
	Email     string    `firestore:"email" json:"email"`
	FirstName string    `firestore:"firstName" json:"firstName"`
	LastName  string    `firestore:"lastName" json:"lastName"`
	Role      UserRole  `firestore:"role" json:"role"`
	Token     string    `firestore:"token" json:"-"`
	InvitedBy string    `firestore:"invitedBy" json:"invitedBy"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	ExpiresAt time.Time `firestore:"expiresAt" json:"expiresAt"`
}

func (p *PendingUser) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
