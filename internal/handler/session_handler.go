package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/locvowork/wage_calculator/internal/service"
	"github.com/locvowork/wage_calculator/internal/service/serviceutils"
)

type SessionHandler struct {
	svc *service.WageService
}

func NewSessionHandler(svc *service.WageService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) CreateHandler(c echo.Context) error {
	var req SessionRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}

	id := service.NewSessionID()
	snap, err := h.svc.SaveSession(c.Request().Context(), id, req.Snapshot())
	if err != nil {
		return respondError(c, "Failed to create session", err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusCreated, "Session created successfully", SessionResponse{SessionID: id, Snapshot: snap})
}

func (h *SessionHandler) GetHandler(c echo.Context) error {
	id := c.Param("id")

	snap, err := h.svc.LoadSession(c.Request().Context(), id)
	if err != nil {
		return respondError(c, "Failed to get session", err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "Session retrieved successfully", SessionResponse{SessionID: id, Snapshot: snap})
}

func (h *SessionHandler) SaveHandler(c echo.Context) error {
	id := c.Param("id")

	var req SessionRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}

	snap, err := h.svc.SaveSession(c.Request().Context(), id, req.Snapshot())
	if err != nil {
		return respondError(c, "Failed to save session", err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "Session saved successfully", SessionResponse{SessionID: id, Snapshot: snap})
}

func (h *SessionHandler) PreferencesHandler(c echo.Context) error {
	var req DarkModeRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	if req.DarkMode == nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "dark_mode is required", nil)
	}

	if err := h.svc.SetDarkMode(c.Request().Context(), c.Param("id"), *req.DarkMode); err != nil {
		return respondError(c, "Failed to update preferences", err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "Preferences updated successfully", nil)
}

func (h *SessionHandler) DeleteHandler(c echo.Context) error {
	if err := h.svc.DeleteSession(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, "Failed to delete session", err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "Session deleted successfully", nil)
}

func (h *SessionHandler) ListHandler(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	filter := domain.SessionFilter{
		Prefix: c.QueryParam("prefix"),
		Limit:  limit,
		Offset: offset,
	}

	ids, err := h.svc.ListSessions(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, "Failed to list sessions", err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "Sessions listed successfully", ids)
}
