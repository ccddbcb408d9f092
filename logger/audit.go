// Package logger writes the admin audit trail to Cloud Logging.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/logging"
	"github.com/klipach/dietapp/eventbus"
	"github.com/klipach/dietapp/log"
)

const AuditLogName = "admin-audit"

// Entry is one admin action.
type Entry struct {
	Action  string            `json:"action"`
	ActorID string            `json:"actorId"`
	UserID  string            `json:"userId,omitempty"`
	Target  string            `json:"target,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
	Time    time.Time         `json:"time"`
}

type Auditor interface {
	Audit(ctx context.Context, e Entry)
	Close() error
}

// auditedKinds are the events emitted by admin actions.
var auditedKinds = map[eventbus.Kind]bool{
	eventbus.DietUploaded:       true,
	eventbus.UserDeleted:        true,
	eventbus.RoleChanged:        true,
	eventbus.InvitationCreated:  true,
	eventbus.InvitationRevoked:  true,
	eventbus.InvitationAccepted: true,
}

// Subscribe forwards admin events published on bus to a.
func Subscribe(bus *eventbus.Bus, a Auditor) (unsubscribe func()) {
	return bus.Subscribe(func(ctx context.Context, e eventbus.Event) {
		if !auditedKinds[e.Kind] {
			return
		}
		a.Audit(ctx, Entry{
			Action:  string(e.Kind),
			ActorID: e.ActorID,
			UserID:  e.UserID,
			Target:  e.Target,
			Data:    e.Data,
			Time:    time.Now().UTC(),
		})
	})
}

type CloudAuditor struct {
	client *logging.Client
	logger *logging.Logger
}

func NewCloudAuditor(ctx context.Context, projectID string) (*CloudAuditor, error) {
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create logging client: %w", err)
	}
	return &CloudAuditor{client: client, logger: client.Logger(AuditLogName)}, nil
}

func (a *CloudAuditor) Audit(ctx context.Context, e Entry) {
	a.logger.Log(logging.Entry{
		Timestamp: e.Time,
		Severity:  logging.Notice,
		Trace:     log.TraceFromContext(ctx),
		Labels:    map[string]string{"action": e.Action},
		Payload:   e,
	})
}

func (a *CloudAuditor) Close() error {
	return a.client.Close()
}

// SlogAuditor writes audit entries to the structured request log. It is used when the
// Cloud Logging client can't be created, e.g. locally.
type SlogAuditor struct{}

func (SlogAuditor) Audit(ctx context.Context, e Entry) {
	log.LoggerFromContext(ctx).Info("admin action",
		slog.String("action", e.Action),
		slog.String("actorID", e.ActorID),
		slog.String(log.UserIDLogField, e.UserID),
		slog.String("target", e.Target),
	)
}

func (SlogAuditor) Close() error { return nil }

// New returns a Cloud Logging auditor, falling back to SlogAuditor.
func New(ctx context.Context, projectID string) Auditor {
	if projectID == "" {
		return SlogAuditor{}
	}
	a, err := NewCloudAuditor(ctx, projectID)
	if err != nil {
		log.LoggerFromContext(ctx).Warn("audit log unavailable, using request log", slog.String(log.ErrorMsgLogField, err.Error()))
		return SlogAuditor{}
	}
	return a
}
