package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/export"
)

const (
	timetableCachePrefix  = "timetable:"
	timetableCachePattern = timetableCachePrefix + "*"
)

// TimetableFormat enumerates export formats.
type TimetableFormat string

const (
	TimetableFormatPDF  TimetableFormat = "pdf"
	TimetableFormatXLSX TimetableFormat = "xlsx"
	TimetableFormatCSV  TimetableFormat = "csv"
)

var timetableHeaders = []string{"Day", "Time slot", "Subject", "Type", "Room", "Teachers", "Groups", "Weeks"}

type timetableReader interface {
	ListTimetable(ctx context.Context, owner models.TimetableOwner, ownerID string) ([]models.TimetableRow, error)
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// TimetableExport is a rendered timetable file.
type TimetableExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// TimetableService serves flattened timetables of groups, teachers and rooms.
type TimetableService struct {
	repo      timetableReader
	cache     timetableCache
	ttl       time.Duration
	renderers map[TimetableFormat]datasetRenderer
	logger    *zap.Logger
}

// NewTimetableService builds the service with the PDF, XLSX and CSV renderers.
func NewTimetableService(repo timetableReader, cache timetableCache, ttl time.Duration, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		renderers: map[TimetableFormat]datasetRenderer{
			TimetableFormatPDF:  export.NewPDFExporter(1.2, 1.3, 2.6, 1, 0.8, 2, 2, 0.7),
			TimetableFormatXLSX: export.NewXLSXExporter(),
			TimetableFormatCSV:  export.NewCSVExporter(),
		},
		logger: logger,
	}
}

// Rows returns the owner's assignments ordered by day and slot. The boolean
// reports whether the rows came from cache.
func (s *TimetableService) Rows(ctx context.Context, owner models.TimetableOwner, ownerID string) ([]models.TimetableRow, bool, error) {
	ownerID = strings.TrimSpace(ownerID)
	if !owner.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "timetable owner must be group, teacher or room")
	}
	if ownerID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "timetable owner id is required")
	}

	key := timetableCacheKey(owner, ownerID)
	if s.cache != nil {
		var cached []models.TimetableRow
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return cached, true, nil
		}
	}

	rows, err := s.repo.ListTimetable(ctx, owner, ownerID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if rows == nil {
		rows = []models.TimetableRow{}
	}
	for i := range rows {
		rows[i].TimeSlot = rows[i].SlotLabel()
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, rows, s.ttl); err != nil {
			s.logger.Debug("timetable cache write skipped", zap.String("key", key), zap.Error(err))
		}
	}
	return rows, false, nil
}

// Export renders the owner's timetable in the requested format.
func (s *TimetableService) Export(ctx context.Context, owner models.TimetableOwner, ownerID string, format TimetableFormat) (*TimetableExport, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be pdf, xlsx or csv")
	}
	rows, _, err := s.Rows(ctx, owner, ownerID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title:   fmt.Sprintf("Timetable (%s %s)", owner, ownerID),
		Headers: timetableHeaders,
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, []string{
			row.Day,
			row.TimeSlot,
			row.Subject,
			row.SubjectType,
			row.RoomLabel(),
			row.TeachersLabel(),
			row.GroupsLabel(),
			row.WeekParity.Label(),
		})
	}

	body, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	s.logger.Info("timetable exported",
		zap.String("owner", string(owner)),
		zap.String("owner_id", ownerID),
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)))
	return &TimetableExport{
		Filename:    fmt.Sprintf("timetable-%s-%s.%s", owner, ownerID, format),
		ContentType: timetableContentType(format),
		Body:        body,
	}, nil
}

func timetableCacheKey(owner models.TimetableOwner, ownerID string) string {
	return timetableCachePrefix + string(owner) + ":" + ownerID
}

func timetableContentType(format TimetableFormat) string {
	switch format {
	case TimetableFormatPDF:
		return "application/pdf"
	case TimetableFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}
