package push

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
	"github.com/klipach/dietapp/eventbus"
	"github.com/klipach/dietapp/log"
)

const dietUploadedTitle = "Nowa dieta"

// TokenStore is the FCM token repository; tokens are kept on the user document.
type TokenStore interface {
	AddToken(ctx context.Context, userID, token string) error
	RemoveTokens(ctx context.Context, userID string, tokens ...string) error
	Tokens(ctx context.Context, userID string) ([]string, error)
}

type Sender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type Notifier struct {
	tokens  TokenStore
	sender  Sender
	isStale func(error) bool
}

func NewNotifier(tokens TokenStore, sender Sender) *Notifier {
	return &Notifier{tokens: tokens, sender: sender, isStale: messaging.IsUnregistered}
}

type Result struct {
	Sent    int
	Failed  int
	Removed int
}

// NotifyUser sends a notification to every device of the user and prunes tokens FCM no longer knows.
func (n *Notifier) NotifyUser(ctx context.Context, userID, title, body string, data map[string]string) (Result, error) {
	logger := log.LoggerFromContext(ctx).With(slog.String(log.UserIDLogField, userID))

	tokens, err := n.tokens.Tokens(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("load tokens: %w", err)
	}
	if len(tokens) == 0 {
		logger.Debug("no fcm tokens, notification skipped")
		return Result{}, nil
	}

	resp, err := n.sender.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("send multicast: %w", err)
	}

	res := Result{Sent: resp.SuccessCount, Failed: resp.FailureCount}
	var stale []string
	for i, r := range resp.Responses {
		if r.Success || i >= len(tokens) {
			continue
		}
		if n.isStale(r.Error) {
			stale = append(stale, tokens[i])
			continue
		}
		logger.Warn("fcm delivery failed", slog.String(log.ErrorMsgLogField, r.Error.Error()))
	}
	if len(stale) > 0 {
		if err := n.tokens.RemoveTokens(ctx, userID, stale...); err != nil {
			logger.Error("error while removing stale tokens", slog.String(log.ErrorMsgLogField, err.Error()))
		} else {
			res.Removed = len(stale)
		}
	}
	logger.Info("notification sent", slog.Int("sent", res.Sent), slog.Int("failed", res.Failed), slog.Int("removed", res.Removed))
	return res, nil
}

// Subscribe notifies users when a new diet was assigned to them.
func Subscribe(bus *eventbus.Bus, n *Notifier) (unsubscribe func()) {
	return bus.Subscribe(func(ctx context.Context, e eventbus.Event) {
		if e.Kind != eventbus.DietUploaded || e.UserID == "" {
			return
		}
		body := "Dietetyk przygotował dla Ciebie nową dietę"
		if name := e.Data["dietName"]; name != "" {
			body += ": " + name
		}
		data := map[string]string{"type": "diet", "dietId": e.Data["dietId"]}
		if _, err := n.NotifyUser(ctx, e.UserID, dietUploadedTitle, body, data); err != nil {
			log.LoggerFromContext(ctx).Error("error while sending diet notification",
				slog.String(log.UserIDLogField, e.UserID),
				slog.String(log.ErrorMsgLogField, err.Error()),
			)
		}
	})
}
