package api

import (
	"log/slog"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/auth"
	"github.com/klipach/dietapp/contract"
	"github.com/klipach/dietapp/eventbus"
	"github.com/klipach/dietapp/validation"
)

const (
	msgInvitationExpired = "Zaproszenie wygasło"
	msgInvitationExists  = "Zaproszenie dla tego adresu e-mail już istnieje"
	msgAccountExists     = "Konto z tym adresem e-mail już istnieje"
)

func (s *Server) invitationLink(token string) string {
	return strings.TrimRight(s.Config.InvitationBaseURL, "/") + "/" + token
}

func (s *Server) invitationResponse(p contract.PendingUser) contract.InvitationResponse {
	return contract.InvitationResponse{PendingUser: p, Link: s.invitationLink(p.Token)}
}

func (s *Server) createInvitation(c *gin.Context) {
	var req contract.InvitationRequest
	if !s.bind(c, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.First(
		validation.Email(req.Email),
		validation.Name(req.FirstName),
		validation.Name(req.LastName),
	); err != nil {
		s.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	existing, err := s.Invitations.FindByEmail(ctx, req.Email)
	switch {
	case err == nil && !existing.Expired(s.Now()):
		s.fail(c, apperr.NewValidation(msgInvitationExists))
		return
	case err == nil:
		// an expired invitation is replaced
		if err := s.Invitations.Delete(ctx, existing.ID); err != nil {
			s.fail(c, err)
			return
		}
	case !isNotFound(err):
		s.fail(c, err)
		return
	}

	now := s.Now()
	p := &contract.PendingUser{
		Email:     req.Email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      contract.ParseUserRole(req.Role),
		Token:     uuid.NewString(),
		InvitedBy: identity(c).UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.Config.InvitationTTL),
	}
	if err := s.Invitations.Save(ctx, p); err != nil {
		s.fail(c, err)
		return
	}
	s.publish(c, eventbus.Event{Kind: eventbus.InvitationCreated, Target: p.Email, Data: map[string]string{"role": string(p.Role)}})
	c.JSON(http.StatusCreated, s.invitationResponse(*p))
}

func (s *Server) listInvitations(c *gin.Context) {
	pending, err := s.Invitations.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]contract.InvitationResponse, 0, len(pending))
	for _, p := range pending {
		out = append(out, s.invitationResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) revokeInvitation(c *gin.Context) {
	id := c.Param("id")
	if err := s.Invitations.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	s.publish(c, eventbus.Event{Kind: eventbus.InvitationRevoked, Target: id})
	c.Status(http.StatusNoContent)
}

// activeInvitation loads the invitation behind token; expired invitations are a validation error.
func (s *Server) activeInvitation(c *gin.Context) (*contract.PendingUser, error) {
	p, err := s.Invitations.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		return nil, err
	}
	if p.Expired(s.Now()) {
		return nil, apperr.NewValidation(msgInvitationExpired)
	}
	return p, nil
}

func (s *Server) getInvitation(c *gin.Context) {
	p, err := s.activeInvitation(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, contract.InvitationResponse{PendingUser: *p})
}

// acceptInvitation creates the Auth account and the user document, then drops the invitation.
func (s *Server) acceptInvitation(c *gin.Context) {
	var req contract.AcceptInvitationRequest
	if !s.bind(c, &req) {
		return
	}
	if err := validation.First(
		validation.Password(req.Password),
		validation.PasswordsMatch(req.Password, req.RepeatedPassword),
	); err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.activeInvitation(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	u := &contract.User{
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      p.Role,
		Gender:    contract.ParseGender(req.Gender),
		CreatedAt: s.Now(),
	}
	rec, err := s.Accounts.CreateUser(ctx, (&firebaseauth.UserToCreate{}).
		Email(p.Email).
		EmailVerified(true).
		Password(req.Password).
		DisplayName(u.FullName()))
	if err != nil {
		if firebaseauth.IsEmailAlreadyExists(err) {
			err = apperr.Wrap(apperr.Auth, msgAccountExists, err)
		}
		s.fail(c, err)
		return
	}
	u.ID = rec.UID
	if err := s.Accounts.SetCustomUserClaims(ctx, u.ID, auth.RoleClaims(u.Role)); err != nil {
		s.dropAccount(c, u.ID)
		s.fail(c, err)
		return
	}
	if err := s.Users.Save(ctx, u); err != nil {
		s.dropAccount(c, u.ID)
		s.fail(c, err)
		return
	}
	if err := s.Invitations.Delete(ctx, p.ID); err != nil && !isNotFound(err) {
		logger(c).Error("error while deleting accepted invitation", errAttr(err))
	}
	s.publish(c, eventbus.Event{Kind: eventbus.InvitationAccepted, ActorID: u.ID, UserID: u.ID, Target: u.Email})
	c.JSON(http.StatusCreated, u)
}

// dropAccount removes an Auth account created by a failed acceptance so the invitation can be retried.
func (s *Server) dropAccount(c *gin.Context, uid string) {
	if err := s.Accounts.DeleteUser(c.Request.Context(), uid); err != nil {
		logger(c).Error("error while removing half created account", slog.String("uid", uid), errAttr(err))
	}
}
