package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"vigil/internal/entity"
	"vigil/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultPageSize  = 50
	maxPageSize      = 200
	exportRowCap     = 10000
	ownActivityLimit = 20
)

var csvHeader = []string{
	"createdAt", "eventType", "userEmail", "ipAddress", "userAgent",
	"geoLocation", "alertCount", "alertTypes", "metadata",
}

type EventPage struct {
	Rows       []entity.AuditEvent
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// QueryService serves the read side of the audit log: filtered listing,
// CSV materialization and self-scoped activity views.
type QueryService struct {
	events repository.AuditEventRepository
}

func NewQueryService(events repository.AuditEventRepository) *QueryService {
	return &QueryService{events: events}
}

func (s *QueryService) ListEvents(ctx context.Context, filters repository.EventFilters, page, pageSize int) (*EventPage, error) {
	if page < 1 {
		page = 1
	}
	pageSize = clampPageSize(pageSize)

	rows, total, err := s.events.List(ctx, filters, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &EventPage{
		Rows:       rows,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// EmptyPage builds the response for a filter that can match nothing,
// echoing the same clamped pagination parameters ListEvents would.
func EmptyPage(page, pageSize int) *EventPage {
	if page < 1 {
		page = 1
	}
	return &EventPage{
		Rows:     []entity.AuditEvent{},
		Page:     page,
		PageSize: clampPageSize(pageSize),
	}
}

// ExportCSV streams the filtered events newest-first, capped at the
// 10,000 most recent matching rows regardless of the true match count.
func (s *QueryService) ExportCSV(ctx context.Context, filters repository.EventFilters, w io.Writer) error {
	rows, _, err := s.events.List(ctx, filters, exportRowCap, 0)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for i := range rows {
		if err := writer.Write(csvRecord(&rows[i])); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSVHeader emits only the column header, so an export whose
// filters can match nothing still yields a parseable file.
func (s *QueryService) WriteCSVHeader(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func (s *QueryService) ListOwnActivities(ctx context.Context, userID uuid.UUID) ([]entity.AuditEvent, error) {
	return s.events.ListRecentByUser(ctx, userID, ownActivityLimit)
}

func csvRecord(event *entity.AuditEvent) []string {
	email := ""
	if event.User != nil {
		email = event.User.Email
	}
	types := make([]string, 0, len(event.Alerts))
	for _, alert := range event.Alerts {
		types = append(types, string(alert.Type))
	}
	return []string{
		event.CreatedAt.UTC().Format(time.RFC3339),
		string(event.EventType),
		email,
		derefOrEmpty(event.IPAddress),
		derefOrEmpty(event.UserAgent),
		derefOrEmpty(event.GeoLocation),
		strconv.Itoa(len(event.Alerts)),
		strings.Join(types, ";"),
		string(event.Metadata),
	}
}

func clampPageSize(pageSize int) int {
	if pageSize == 0 {
		return defaultPageSize
	}
	if pageSize < 1 {
		return 1
	}
	if pageSize > maxPageSize {
		return maxPageSize
	}
	return pageSize
}

func derefOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
