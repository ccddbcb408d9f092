package api

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/klipach/dietapp/contract"
	"github.com/klipach/dietapp/dietplan"
	"github.com/klipach/dietapp/eventbus"
	"github.com/klipach/dietapp/files"
	"github.com/klipach/dietapp/log"
	"github.com/klipach/dietapp/stats"
	"github.com/klipach/dietapp/validation"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DietImport is a diet plan spreadsheet assigned to a user.
type DietImport struct {
	UserID     string
	UploadedBy string
	Name       string
	StartDate  string
	FileName   string
	// ContentType defaults to the .xlsx type.
	ContentType string
	Data        []byte
	// StoragePath is set when the file is already in storage, e.g. for uploads made by the admin panel
	// directly to the bucket.
	StoragePath string
}

// ImportDiet parses the spreadsheet, stores it and saves the diet and file documents.
// Subscribers are notified with a DietUploaded event.
func (s *Server) ImportDiet(ctx context.Context, in DietImport) (*contract.DietUploadResponse, error) {
	days, err := dietplan.Parse(bytes.NewReader(in.Data))
	if err != nil {
		return nil, err
	}
	if in.StartDate != "" {
		start, err := validation.ParseDate(in.StartDate)
		if err != nil {
			return nil, err
		}
		dietplan.AssignDates(days, start)
	}
	if in.ContentType == "" || in.ContentType == "application/octet-stream" {
		in.ContentType = xlsxContentType
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.TrimSuffix(path.Base(in.FileName), path.Ext(in.FileName))
	}

	fileID := uuid.NewString()
	storagePath := in.StoragePath
	if storagePath == "" {
		storagePath = files.DietPlanPath(in.UserID, fileID, in.FileName)
		if _, err := s.Objects.Put(ctx, storagePath, in.ContentType, bytes.NewReader(in.Data)); err != nil {
			return nil, fmt.Errorf("store diet file: %w", err)
		}
	}

	now := s.Now()
	diet := contract.Diet{
		UserID:    in.UserID,
		Name:      name,
		FileID:    fileID,
		StartDate: strings.TrimSpace(in.StartDate),
		Days:      days,
		CreatedAt: now,
	}
	if err := s.Diets.Save(ctx, &diet); err != nil {
		return nil, err
	}
	file := contract.DietFile{
		ID:          fileID,
		UserID:      in.UserID,
		DietID:      diet.ID,
		FileName:    files.SafeName(in.FileName),
		StoragePath: storagePath,
		ContentType: in.ContentType,
		Size:        int64(len(in.Data)),
		UploadedBy:  in.UploadedBy,
		UploadedAt:  now,
	}
	if err := s.DietFiles.Save(ctx, &file); err != nil {
		return nil, err
	}

	log.LoggerFromContext(ctx).Info("diet imported",
		slog.String("dietID", diet.ID),
		slog.String(log.UserIDLogField, in.UserID),
		slog.Int("days", len(days)),
	)
	s.Bus.Publish(ctx, eventbus.Event{
		Kind:    eventbus.DietUploaded,
		ActorID: in.UploadedBy,
		UserID:  in.UserID,
		Target:  diet.ID,
		Data:    map[string]string{"dietId": diet.ID, "dietName": diet.Name},
	})
	return &contract.DietUploadResponse{Diet: diet, File: file}, nil
}

// RefreshStatistics recomputes and stores the application statistics.
func (s *Server) RefreshStatistics(ctx context.Context) (*contract.AppStatistics, error) {
	st, err := stats.Compute(ctx, s.StatsSource, s.Now(), s.Config.ActiveUserWindow)
	if err != nil {
		return nil, err
	}
	if err := s.Statistics.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
