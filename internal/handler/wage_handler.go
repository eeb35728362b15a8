package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/locvowork/wage_calculator/internal/logger"
	"github.com/locvowork/wage_calculator/internal/report"
	"github.com/locvowork/wage_calculator/internal/service"
	"github.com/locvowork/wage_calculator/internal/service/serviceutils"
	"github.com/locvowork/wage_calculator/internal/wage"
)

type WageHandler struct {
	svc *service.WageService
}

func NewWageHandler(svc *service.WageService) *WageHandler {
	return &WageHandler{svc: svc}
}

func (h *WageHandler) HealthHandler(c echo.Context) error {
	return serviceutils.ResponseSuccess(c, http.StatusOK, "OK", nil)
}

func (h *WageHandler) RolesHandler(c echo.Context) error {
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Roles retrieved successfully", h.svc.Roles())
}

func (h *WageHandler) RatesHandler(c echo.Context) error {
	role, _ := domain.ParseRole(c.Param("role"))

	rates, err := h.svc.Rates(role)
	if err != nil {
		return respondError(c, "Failed to get rates", err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "Rates retrieved successfully", NewRatesResponse(role, rates))
}

func (h *WageHandler) CalculateHandler(c echo.Context) error {
	var req CalculateRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}

	ctx := c.Request().Context()
	sessionID := c.Request().Header.Get(HeaderSessionID)

	var (
		calc *service.Calculation
		err  error
	)
	if req.IsForm() {
		calc, err = h.svc.CalculateForm(ctx, req.Form(), sessionID)
	} else {
		calc, err = h.svc.Calculate(ctx, req.Query(), sessionID)
	}
	if err != nil {
		return respondError(c, "Failed to calculate wage", err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "Wage calculated successfully", NewWageResultResponse(calc))
}

func (h *WageHandler) EarningsByAgeHandler(c echo.Context) error {
	var req EarningsByAgeRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}

	role, _ := domain.ParseRole(req.Role)
	series, err := h.svc.EarningsByAge(c.Request().Context(), role, req.Shifts)
	if err != nil {
		return respondError(c, "Failed to calculate earnings by age", err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "Earnings calculated successfully", NewEarningsByAgeResponse(role, series))
}

func (h *WageHandler) ParseDurationsHandler(c echo.Context) error {
	var req ParseDurationsRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "Durations parsed successfully", h.svc.ParseDurations(req.Text))
}

func (h *WageHandler) HistoryHandler(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	var role domain.Role
	if raw := c.QueryParam("role"); raw != "" {
		parsed, ok := domain.ParseRole(raw)
		if !ok {
			return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid role filter", service.ErrUnknownRole)
		}
		role = parsed
	}

	records, err := h.svc.History(c.Request().Context(), role, limit)
	if err != nil {
		return respondError(c, "Failed to get calculation history", err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "Calculation history retrieved successfully", NewHistoryResponse(records))
}

// ==================== Export ====================

func (h *WageHandler) ExportXLSXHandler(c echo.Context) error {
	return h.export(c, report.FormatXLSX)
}

func (h *WageHandler) ExportCSVHandler(c echo.Context) error {
	return h.export(c, report.FormatCSV)
}

func (h *WageHandler) export(c echo.Context, format string) error {
	var req CalculateRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}

	q := req.Query()
	if req.IsForm() {
		resolved, err := h.svc.ResolveForm(req.Form())
		if err != nil {
			return respondError(c, "Failed to export report", err)
		}
		q = resolved
	}

	file, err := h.svc.Export(c.Request().Context(), q, format)
	if err != nil {
		return respondError(c, "Failed to export report", err)
	}

	// Set headers for file download
	c.Response().Header().Set(echo.HeaderContentType, file.ContentType)
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+file.Name+`"`)
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(file.Data)))
	c.Response().WriteHeader(http.StatusOK)

	_, err = c.Response().Write(file.Data)
	return err
}

// respondError maps service errors to HTTP statuses.
func respondError(c echo.Context, message string, err error) error {
	if verrs, ok := wage.AsValidationErrors(err); ok {
		return serviceutils.ResponseErrorWithData(c, http.StatusUnprocessableEntity, message, err, ValidationErrorResponse{Errors: verrs})
	}

	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, service.ErrUnknownRole):
		return serviceutils.ResponseError(c, http.StatusNotFound, message, err)
	case errors.Is(err, service.ErrInvalidSessionID), errors.Is(err, service.ErrUnsupportedFormat):
		return serviceutils.ResponseError(c, http.StatusBadRequest, message, err)
	}

	logger.ErrorLog(c.Request().Context(), "%s: %v", message, err)
	return serviceutils.ResponseError(c, http.StatusInternalServerError, message, err)
}
