package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/auth"
	"github.com/klipach/dietapp/contract"
	"github.com/klipach/dietapp/eventbus"
	"github.com/klipach/dietapp/files"
)

// UserFilter selects users on the admin panel. Empty fields match everything.
type UserFilter struct {
	Query  string
	Role   string
	Gender string
}

func (f UserFilter) match(u contract.User) bool {
	if f.Role != "" && u.Role != contract.ParseUserRole(f.Role) {
		return false
	}
	if f.Gender != "" && u.Gender != contract.ParseGender(f.Gender) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(u.FullName()), q) || strings.Contains(strings.ToLower(u.Email), q)
}

func FilterUsers(users []contract.User, f UserFilter) []contract.User {
	out := make([]contract.User, 0, len(users))
	for _, u := range users {
		if f.match(u) {
			out = append(out, u)
		}
	}
	return out
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.Users.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	filtered := FilterUsers(users, UserFilter{Query: c.Query("q"), Role: c.Query("role"), Gender: c.Query("gender")})
	c.JSON(http.StatusOK, contract.UsersResponse{Users: filtered, Total: len(filtered)})
}

func (s *Server) getUser(c *gin.Context) {
	u, err := s.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// setRole updates the users document and the role claim read by auth on the next token refresh.
func (s *Server) setRole(c *gin.Context) {
	var req contract.RoleRequest
	if !s.bind(c, &req) {
		return
	}
	uid := c.Param("id")
	role := contract.ParseUserRole(req.Role)
	if uid == identity(c).UserID && role != contract.RoleAdmin {
		s.fail(c, apperr.NewValidation("Nie możesz odebrać sobie uprawnień administratora"))
		return
	}
	ctx := c.Request.Context()
	if err := s.Users.SetRole(ctx, uid, role); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Accounts.SetCustomUserClaims(ctx, uid, auth.RoleClaims(role)); err != nil {
		s.fail(c, err)
		return
	}
	s.publish(c, eventbus.Event{Kind: eventbus.RoleChanged, UserID: uid, Data: map[string]string{"role": string(role)}})
	u, err := s.Users.Get(ctx, uid)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// deleteUser removes uploaded files, every document owned by the user and the Auth account.
func (s *Server) deleteUser(c *gin.Context) {
	uid := c.Param("id")
	if uid == identity(c).UserID {
		s.fail(c, apperr.NewValidation("Nie możesz usunąć własnego konta"))
		return
	}
	ctx := c.Request.Context()
	if _, err := s.Users.Get(ctx, uid); err != nil {
		s.fail(c, err)
		return
	}
	dietFiles, err := s.DietFiles.ListByUser(ctx, uid)
	if err != nil {
		s.fail(c, err)
		return
	}
	for _, f := range dietFiles {
		if err := s.Objects.Delete(ctx, f.StoragePath); err != nil && !errors.Is(err, files.ErrNotFound) {
			s.fail(c, err)
			return
		}
	}
	removed, err := s.Purger.PurgeUser(ctx, uid)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Accounts.DeleteUser(ctx, uid); err != nil && !firebaseauth.IsUserNotFound(err) {
		s.fail(c, err)
		return
	}
	logger(c).Info("user deleted", slog.String("deletedUserID", uid), slog.Int("documents", removed))
	s.publish(c, eventbus.Event{Kind: eventbus.UserDeleted, UserID: uid})
	c.Status(http.StatusNoContent)
}

func (s *Server) listUserDiets(c *gin.Context) {
	diets, err := s.Diets.ListByUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, diets)
}

// uploadDiet takes a multipart "file" with an .xlsx plan and optional "name" and "startDate" fields.
func (s *Server) uploadDiet(c *gin.Context) {
	ctx := c.Request.Context()
	uid := c.Param("id")
	if _, err := s.Users.Get(ctx, uid); err != nil {
		s.fail(c, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.Config.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, apperr.Wrap(apperr.Validation, "Brak pliku lub plik jest za duży", err))
		return
	}
	if !strings.EqualFold(path.Ext(fh.Filename), ".xlsx") {
		s.fail(c, apperr.NewValidation("Plan diety musi być plikiem .xlsx"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.ImportDiet(ctx, DietImport{
		UserID:      uid,
		UploadedBy:  identity(c).UserID,
		Name:        c.PostForm("name"),
		StartDate:   c.PostForm("startDate"),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) deleteDiet(c *gin.Context) {
	ctx := c.Request.Context()
	d, err := s.Diets.Get(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if d.FileID != "" {
		f, err := s.DietFiles.Get(ctx, d.FileID)
		switch {
		case err == nil:
			if err := s.Objects.Delete(ctx, f.StoragePath); err != nil && !errors.Is(err, files.ErrNotFound) {
				s.fail(c, err)
				return
			}
			if err := s.DietFiles.Delete(ctx, f.ID); err != nil {
				s.fail(c, err)
				return
			}
		case !isNotFound(err):
			s.fail(c, err)
			return
		}
	}
	if err := s.Diets.Delete(ctx, d.ID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// getStatistics returns the stored statistics, computing them on first use.
func (s *Server) getStatistics(c *gin.Context) {
	st, err := s.Statistics.Get(c.Request.Context())
	if isNotFound(err) {
		s.refreshStatistics(c)
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) refreshStatistics(c *gin.Context) {
	st, err := s.RefreshStatistics(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
