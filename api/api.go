// Package api is the REST backend used by the mobile apps and the web admin panel.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/auth"
	"github.com/klipach/dietapp/config"
	"github.com/klipach/dietapp/contract"
	"github.com/klipach/dietapp/eventbus"
	"github.com/klipach/dietapp/files"
	"github.com/klipach/dietapp/log"
	"github.com/klipach/dietapp/stats"
	"github.com/klipach/dietapp/store"
)

// The interfaces below are implemented by the store repositories.

type UserStore interface {
	Get(ctx context.Context, id string) (*contract.User, error)
	Save(ctx context.Context, u *contract.User) error
	UpdateProfile(ctx context.Context, id string, req contract.ProfileUpdateRequest) error
	SetRole(ctx context.Context, id string, role contract.UserRole) error
	Touch(ctx context.Context, id string) error
	List(ctx context.Context) ([]contract.User, error)
	AddToken(ctx context.Context, id, token string) error
	RemoveTokens(ctx context.Context, id string, tokens ...string) error
}

type DietStore interface {
	Save(ctx context.Context, d *contract.Diet) error
	Get(ctx context.Context, id string) (*contract.Diet, error)
	ListByUser(ctx context.Context, userID string) ([]contract.Diet, error)
	Delete(ctx context.Context, id string) error
}

type DietFileStore interface {
	Save(ctx context.Context, f *contract.DietFile) error
	Get(ctx context.Context, id string) (*contract.DietFile, error)
	ListByUser(ctx context.Context, userID string) ([]contract.DietFile, error)
	Delete(ctx context.Context, id string) error
}

type EatenMealsStore interface {
	Get(ctx context.Context, userID, date string) (*contract.EatenMeals, error)
	Save(ctx context.Context, em *contract.EatenMeals) error
	Toggle(ctx context.Context, userID, date, mealID string) (bool, error)
	Delete(ctx context.Context, userID, date string) error
}

type ShoppingListStore interface {
	Save(ctx context.Context, l *contract.ShoppingList) error
	Get(ctx context.Context, id string) (*contract.ShoppingList, error)
	ListByUser(ctx context.Context, userID string) ([]contract.ShoppingList, error)
	SetItemChecked(ctx context.Context, listID, itemID string, checked bool) (*contract.ShoppingList, error)
	Delete(ctx context.Context, id string) error
}

type MeasurementStore interface {
	Add(ctx context.Context, m *contract.BodyMeasurements) error
	Update(ctx context.Context, m *contract.BodyMeasurements) error
	Get(ctx context.Context, userID, id string) (*contract.BodyMeasurements, error)
	List(ctx context.Context, userID string, f store.MeasurementFilter) ([]contract.BodyMeasurements, error)
	Delete(ctx context.Context, userID, id string) error
}

type WaterStore interface {
	Get(ctx context.Context, userID, date string, goalMl int) (*contract.WaterIntake, error)
	Add(ctx context.Context, userID, date string, deltaMl, goalMl int) (*contract.WaterIntake, error)
	Set(ctx context.Context, w *contract.WaterIntake) error
}

type RecipeStore interface {
	Save(ctx context.Context, r *contract.Recipe) error
	Get(ctx context.Context, id string) (*contract.Recipe, error)
	List(ctx context.Context) ([]contract.Recipe, error)
	Delete(ctx context.Context, id string) error
}

type InvitationStore interface {
	Save(ctx context.Context, p *contract.PendingUser) error
	GetByToken(ctx context.Context, token string) (*contract.PendingUser, error)
	FindByEmail(ctx context.Context, email string) (*contract.PendingUser, error)
	List(ctx context.Context) ([]contract.PendingUser, error)
	Delete(ctx context.Context, id string) error
}

type StatisticsStore interface {
	Get(ctx context.Context) (*contract.AppStatistics, error)
	Save(ctx context.Context, s *contract.AppStatistics) error
}

// Purger removes every document owned by a user. Implemented by *store.Store.
type Purger interface {
	PurgeUser(ctx context.Context, userID string) (int, error)
}

// Accounts is the part of *auth.Client used to manage Firebase Auth users.
type Accounts interface {
	CreateUser(ctx context.Context, user *firebaseauth.UserToCreate) (*firebaseauth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
	SetCustomUserClaims(ctx context.Context, uid string, customClaims map[string]interface{}) error
}

type Authenticator interface {
	Authenticate(req *http.Request) (*auth.Identity, error)
}

type Deps struct {
	Config        *config.Config
	Auth          Authenticator
	Accounts      Accounts
	Users         UserStore
	Diets         DietStore
	DietFiles     DietFileStore
	EatenMeals    EatenMealsStore
	ShoppingLists ShoppingListStore
	Measurements  MeasurementStore
	Water         WaterStore
	Recipes       RecipeStore
	Invitations   InvitationStore
	Statistics    StatisticsStore
	StatsSource   stats.Source
	Purger        Purger
	Objects       files.Store
	Bus           *eventbus.Bus
	Now           func() time.Time
}

type Server struct {
	Deps
}

func NewServer(d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Bus == nil {
		d.Bus = eventbus.New()
	}
	return &Server{Deps: d}
}

const identityKey = "identity"

var errForbidden = errors.New("forbidden")

func identity(c *gin.Context) *auth.Identity {
	id, _ := c.Get(identityKey)
	i, _ := id.(*auth.Identity)
	return i
}

func logger(c *gin.Context) *slog.Logger {
	return log.LoggerFromContext(c.Request.Context())
}

// fail writes the error response for err. Messages of validation and auth errors are shown to users.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, files.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, contract.ErrorResponse{Error: "not_found", Message: "Nie znaleziono"})
		return
	case errors.Is(err, errForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, contract.ErrorResponse{Error: "forbidden", Message: "Brak uprawnień"})
		return
	}
	alert := apperr.AlertFor(err, s.Config.AlertDuration)
	status := alert.Kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger(c).Error("error while handling request", errAttr(err))
	} else {
		logger(c).Warn("request rejected", slog.String("kind", alert.Kind.String()), errAttr(err))
	}
	c.AbortWithStatusJSON(status, contract.ErrorResponse{Error: alert.Kind.String(), Message: alert.Text})
}

func (s *Server) publish(c *gin.Context, e eventbus.Event) {
	if id := identity(c); id != nil && e.ActorID == "" {
		e.ActorID = id.UserID
	}
	s.Bus.Publish(c.Request.Context(), e)
}

// Router builds the gin engine with every route of the API.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.cors(), s.requestLogger())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	public := api.Group("/invitations")
	{
		public.GET("/token/:token", s.getInvitation)
		public.POST("/token/:token/accept", s.acceptInvitation)
	}

	authed := api.Group("", s.authenticate())

	me := authed.Group("/me")
	{
		me.GET("", s.getProfile)
		me.PUT("", s.updateProfile)
		me.POST("/fcm-token", s.addFCMToken)
		me.DELETE("/fcm-token", s.removeFCMToken)

		me.GET("/measurements", s.listMeasurements)
		me.POST("/measurements", s.createMeasurement)
		me.PUT("/measurements/:id", s.updateMeasurement)
		me.DELETE("/measurements/:id", s.deleteMeasurement)

		me.GET("/water/:date", s.getWater)
		me.POST("/water/:date", s.addWater)
		me.PUT("/water/:date", s.setWater)

		me.GET("/diets", s.listMyDiets)
		me.GET("/diets/:id", s.getMyDiet)
		me.GET("/eaten-meals/:date", s.getEatenMeals)
		me.PUT("/eaten-meals/:date", s.setEatenMeals)
		me.DELETE("/eaten-meals/:date", s.clearEatenMeals)
		me.POST("/eaten-meals/:date/toggle", s.toggleEatenMeal)

		me.GET("/shopping-lists", s.listShoppingLists)
		me.POST("/shopping-lists", s.createShoppingList)
		me.GET("/shopping-lists/:id", s.getShoppingList)
		me.PUT("/shopping-lists/:id/items/:itemId", s.checkShoppingItem)
		me.DELETE("/shopping-lists/:id", s.deleteShoppingList)
	}

	recipes := authed.Group("/recipes")
	{
		recipes.GET("", s.listRecipes)
		recipes.GET("/:id", s.getRecipe)
		recipes.POST("", s.requireAdmin(), s.createRecipe)
		recipes.PUT("/:id", s.requireAdmin(), s.updateRecipe)
		recipes.DELETE("/:id", s.requireAdmin(), s.deleteRecipe)
		recipes.POST("/:id/image", s.requireAdmin(), s.uploadRecipeImage)
	}

	invitations := authed.Group("/invitations", s.requireAdmin())
	{
		invitations.GET("", s.listInvitations)
		invitations.POST("", s.createInvitation)
		invitations.DELETE("/:id", s.revokeInvitation)
	}

	admin := authed.Group("/admin", s.requireAdmin())
	{
		admin.GET("/users", s.listUsers)
		admin.GET("/users/:id", s.getUser)
		admin.PUT("/users/:id/role", s.setRole)
		admin.DELETE("/users/:id", s.deleteUser)
		admin.GET("/users/:id/diets", s.listUserDiets)
		admin.POST("/users/:id/diets", s.uploadDiet)
		admin.DELETE("/diets/:id", s.deleteDiet)
		admin.GET("/statistics", s.getStatistics)
		admin.POST("/statistics/refresh", s.refreshStatistics)
	}
	return r
}

func errAttr(err error) slog.Attr {
	return slog.String(log.ErrorMsgLogField, err.Error())
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
