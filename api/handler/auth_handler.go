package handler

import (
	"errors"
	"net/http"

	"vigil/api/middleware"
	"vigil/internal/dto"
	"vigil/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	Service  *service.AuthService
	Validate *validator.Validate
}

func NewAuthHandler(svc *service.AuthService, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{Service: svc, Validate: validate}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := decodeJSON(c, &req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	input := service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if err := h.Service.Register(c.Request().Context(), input); err != nil {
		return writeServiceError(c, err)
	}
	return respondMessage(c, http.StatusCreated, "registered")
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	input := service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
		IPAddress:  clientIP(c),
		UserAgent:  userAgent(c),
	}
	result, err := h.Service.Login(c.Request().Context(), input)
	if err != nil {
		return writeServiceError(c, err)
	}
	return respondData(c, http.StatusOK, mapLoginResponse(result))
}

func (h *AuthHandler) LoginWithMFA(c echo.Context) error {
	var req dto.LoginMFARequest
	if err := decodeJSON(c, &req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	input := service.LoginMFAInput{
		MFAToken:   req.MFAToken,
		Code:       req.Code,
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
		IPAddress:  clientIP(c),
		UserAgent:  userAgent(c),
	}
	result, err := h.Service.LoginWithMFA(c.Request().Context(), input)
	if err != nil {
		return writeServiceError(c, err)
	}
	return respondData(c, http.StatusOK, mapLoginResponse(result))
}

func (h *AuthHandler) Logout(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	sessionID, ok := middleware.SessionIDFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	if err := h.Service.Logout(c.Request().Context(), sessionID, &userID, clientIP(c)); err != nil {
		return writeServiceError(c, err)
	}
	return respondMessage(c, http.StatusOK, "logged out")
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	var req dto.ChangePasswordRequest
	if err := decodeJSON(c, &req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.ChangePassword(c.Request().Context(), userID, req.CurrentPassword, req.NewPassword, clientIP(c)); err != nil {
		return writeServiceError(c, err)
	}
	return respondMessage(c, http.StatusOK, "password changed")
}

func (h *AuthHandler) EnableMFA(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	qr, err := h.Service.EnableMFA(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return respondData(c, http.StatusOK, dto.MFAEnableResponse{QRCode: qr})
}

func (h *AuthHandler) VerifyMFA(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	var req dto.MFAVerifyRequest
	if err := decodeJSON(c, &req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.VerifyMFA(c.Request().Context(), userID, req.Code); err != nil {
		return writeServiceError(c, err)
	}
	return respondMessage(c, http.StatusOK, "mfa enabled")
}

func (h *AuthHandler) DisableMFA(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	if err := h.Service.DisableMFA(c.Request().Context(), userID); err != nil {
		return writeServiceError(c, err)
	}
	return respondMessage(c, http.StatusOK, "mfa disabled")
}

func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	user, err := h.Service.GetCurrentUser(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	if user == nil {
		return respondError(c, http.StatusNotFound, errors.New("user not found"))
	}
	return respondData(c, http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *AuthHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}

func mapLoginResponse(result *service.LoginResult) *dto.LoginResponse {
	if result == nil {
		return &dto.LoginResponse{}
	}
	return &dto.LoginResponse{
		AccessToken:       result.AccessToken,
		ExpiresIn:         result.ExpiresIn,
		MFARequired:       result.MFARequired,
		MFAToken:          result.MFAToken,
		MFATokenExpiresIn: result.MFATokenExpiresIn,
	}
}
