package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vigil/api/middleware"
	"vigil/internal/dto"
	"vigil/internal/entity"
	"vigil/internal/repository"
	"vigil/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SecurityHandler serves the admin security dashboard and the
// self-service activity endpoints.
type SecurityHandler struct {
	Alerts   *service.AlertService
	Query    *service.QueryService
	Summary  *service.SummaryService
	Validate *validator.Validate
}

func NewSecurityHandler(
	alerts *service.AlertService,
	query *service.QueryService,
	summary *service.SummaryService,
	validate *validator.Validate,
) *SecurityHandler {
	return &SecurityHandler{
		Alerts:   alerts,
		Query:    query,
		Summary:  summary,
		Validate: validate,
	}
}

func (h *SecurityHandler) ListAlerts(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return writeServiceError(c, err)
	}
	alerts, err := h.Alerts.List(
		c.Request().Context(),
		c.QueryParam("status"),
		c.QueryParam("severity"),
		c.QueryParam("type"),
	)
	if err != nil {
		return writeServiceError(c, err)
	}
	return respondData(c, http.StatusOK, dto.AlertResponsesFromEntities(alerts))
}

func (h *SecurityHandler) TransitionAlert(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return writeServiceError(c, err)
	}
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, errors.New("invalid alert id"))
	}
	var req dto.AlertTransitionRequest
	if err := decodeJSON(c, &req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	alert, err := h.Alerts.Transition(c.Request().Context(), alertID, req.Status)
	if err != nil {
		return writeServiceError(c, err)
	}
	return respondData(c, http.StatusOK, dto.AlertResponseFromEntity(alert))
}

func (h *SecurityHandler) ListAuditLogs(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return writeServiceError(c, err)
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	filters, empty, err := parseEventFilters(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if empty {
		result := service.EmptyPage(page, limit)
		return respondData(c, http.StatusOK, dto.AuditEventPageResponse{
			Rows:     []dto.AuditEventResponse{},
			Page:     result.Page,
			PageSize: result.PageSize,
		})
	}

	result, err := h.Query.ListEvents(c.Request().Context(), filters, page, limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	return respondData(c, http.StatusOK, dto.AuditEventPageResponse{
		Rows:       dto.AuditEventResponsesFromEntities(result.Rows),
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	})
}

func (h *SecurityHandler) ExportAuditLogs(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return writeServiceError(c, err)
	}
	filters, empty, err := parseEventFilters(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}

	filename := fmt.Sprintf("audit-logs-%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Response().WriteHeader(http.StatusOK)
	if empty {
		return h.Query.WriteCSVHeader(c.Response())
	}
	return h.Query.ExportCSV(c.Request().Context(), filters, c.Response())
}

func (h *SecurityHandler) AuditLogSummary(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return writeServiceError(c, err)
	}
	window := c.QueryParam("window")
	if window == "" {
		window = service.SummaryWindow24h
	}
	summary, err := h.Summary.Summarize(c.Request().Context(), window)
	if err != nil {
		return writeServiceError(c, err)
	}
	return respondData(c, http.StatusOK, summary)
}

func (h *SecurityHandler) MyActivities(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	events, err := h.Query.ListOwnActivities(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return respondData(c, http.StatusOK, dto.AuditEventResponsesFromEntities(events))
}

func (h *SecurityHandler) ReportIncident(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	var req dto.ReportIncidentRequest
	if err := decodeJSON(c, &req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}

	var activityID *uuid.UUID
	if req.ActivityID != nil && *req.ActivityID != "" {
		parsed, err := uuid.Parse(*req.ActivityID)
		if err != nil {
			return respondError(c, http.StatusBadRequest, errors.New("invalid activity id"))
		}
		activityID = &parsed
	}

	alert, err := h.Alerts.Report(c.Request().Context(), userID, activityID, req.Note)
	if err != nil {
		return writeServiceError(c, err)
	}
	return respondData(c, http.StatusCreated, dto.AlertResponseFromEntity(alert))
}

func (h *SecurityHandler) MySummary(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	summary, err := h.Summary.SelfSummary(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return respondData(c, http.StatusOK, summary)
}

func (h *SecurityHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}

// requireAdmin re-checks the role claim inside the handler so admin
// operations fail fast even if a route is wired without the role
// middleware.
func requireAdmin(c echo.Context) error {
	role, ok := middleware.RoleFromContext(c)
	if !ok || role != string(entity.UserRoleAdmin) {
		return service.ErrForbidden
	}
	return nil
}

// parseEventFilters builds the listing filters from the query string.
// Enum-valued filters are permissive: an unknown eventType or severity
// short-circuits to an empty result set instead of an error.
func parseEventFilters(c echo.Context) (repository.EventFilters, bool, error) {
	var filters repository.EventFilters

	if raw := c.QueryParam("eventType"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			eventType, ok := entity.ParseAuditEventType(part)
			if !ok {
				return filters, true, nil
			}
			filters.EventTypes = append(filters.EventTypes, eventType)
		}
	}
	if raw := c.QueryParam("severity"); raw != "" {
		severity, ok := entity.ParseAlertSeverity(raw)
		if !ok {
			return filters, true, nil
		}
		filters.Severity = severity
	}
	if raw := c.QueryParam("userId"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return filters, false, errors.New("invalid userId")
		}
		filters.UserID = &userID
	}
	filters.IPAddress = c.QueryParam("ipAddress")
	filters.Search = c.QueryParam("q")

	if raw := c.QueryParam("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, false, errors.New("invalid from timestamp")
		}
		filters.From = &from
	}
	if raw := c.QueryParam("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, false, errors.New("invalid to timestamp")
		}
		filters.To = &to
	}
	return filters, false, nil
}
