package dietapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/klipach/dietapp/api"
	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/contract"
	"github.com/klipach/dietapp/files"
	"github.com/klipach/dietapp/log"
)

// StorageObjectData is the payload of google.cloud.storage.object.v1.finalized events.
type StorageObjectData struct {
	Bucket      string            `json:"bucket"`
	Name        string            `json:"name"`
	ContentType string            `json:"contentType"`
	Size        string            `json:"size"`
	Metadata    map[string]string `json:"metadata"`
}

// MessagePublishedData is the payload of google.cloud.pubsub.topic.v1.messagePublished events.
type MessagePublishedData struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// object metadata set by the admin panel on upload
const (
	metaUploadedBy = "uploadedBy"
	metaDietName   = "dietName"
	metaStartDate  = "startDate"
)

type dietImporter interface {
	ImportDiet(ctx context.Context, in api.DietImport) (*contract.DietUploadResponse, error)
}

type statisticsRefresher interface {
	RefreshStatistics(ctx context.Context) (*contract.AppStatistics, error)
}

// importUploadedDiet imports objects written under prefix/{userId}/. Files that can't be parsed are logged
// and acknowledged, retrying would not fix them.
func importUploadedDiet(ctx context.Context, prefix string, objects files.Store, imp dietImporter, e event.Event) error {
	var obj StorageObjectData
	if err := e.DataAs(&obj); err != nil {
		return fmt.Errorf("event.DataAs: %w", err)
	}
	logger := log.LoggerFromContext(ctx).With(slog.String("eventID", e.ID()), slog.String("object", obj.Name))
	ctx = log.WithLogger(ctx, logger)

	userID, fileName, ok := files.UserIDFromUploadPath(prefix, obj.Name)
	if !ok {
		logger.Debug("object outside of the upload prefix, skipped")
		return nil
	}
	if !strings.EqualFold(path.Ext(fileName), ".xlsx") {
		logger.Warn("uploaded diet is not an .xlsx file, skipped")
		return nil
	}

	rc, err := objects.Open(ctx, obj.Name)
	if err != nil {
		return fmt.Errorf("open %s: %w", obj.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read %s: %w", obj.Name, err)
	}

	res, err := imp.ImportDiet(ctx, api.DietImport{
		UserID:      userID,
		UploadedBy:  obj.Metadata[metaUploadedBy],
		Name:        obj.Metadata[metaDietName],
		StartDate:   obj.Metadata[metaStartDate],
		FileName:    fileName,
		ContentType: obj.ContentType,
		Data:        data,
		StoragePath: obj.Name,
	})
	if apperr.KindOf(err) == apperr.Validation {
		logger.Warn("uploaded diet rejected", slog.String(log.ErrorMsgLogField, err.Error()))
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("uploaded diet imported", slog.String("dietID", res.Diet.ID))
	return nil
}

func refreshStatistics(ctx context.Context, r statisticsRefresher, e event.Event) error {
	var msg MessagePublishedData
	if err := e.DataAs(&msg); err != nil {
		return fmt.Errorf("event.DataAs: %w", err)
	}
	logger := log.LoggerFromContext(ctx).With(slog.String("messageID", msg.Message.MessageID))
	st, err := r.RefreshStatistics(ctx)
	if err != nil {
		logger.Error("error while refreshing statistics", slog.String(log.ErrorMsgLogField, err.Error()))
		return err
	}
	logger.Info("statistics refreshed", slog.Int("users", st.TotalUsers), slog.Int("activeUsers", st.ActiveUsers))
	return nil
}
