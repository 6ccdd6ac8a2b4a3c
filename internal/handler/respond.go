package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
	"github.com/yourusername/carmarket-api/internal/service"
)

// respondError переводит ошибки сервисного слоя в HTTP-ответы с
// устойчивым error_type
func respondError(c *gin.Context, err error) {
	var cooldown *service.CooldownError
	if errors.As(err, &cooldown) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":        cooldown.Error(),
			"error_type":   "otp_resend_cooldown",
			"wait_minutes": cooldown.WaitMinutes(),
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidPhone):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid WhatsApp phone number", "error_type": "invalid_phone"})
	case errors.Is(err, service.ErrInvalidOTP):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification code", "error_type": "invalid_otp"})
	case errors.Is(err, service.ErrOTPExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Verification code has expired", "error_type": "otp_expired"})
	case errors.Is(err, service.ErrOTPAttemptsExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many failed attempts, request a new code", "error_type": "otp_attempts_exceeded"})
	case errors.Is(err, service.ErrPhoneAlreadyVerified):
		c.JSON(http.StatusConflict, gin.H{"error": "Phone is already verified", "error_type": "phone_already_verified"})
	case errors.Is(err, service.ErrPhoneTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Phone number is already registered", "error_type": "phone_taken"})
	case errors.Is(err, service.ErrResetTokenInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reset token is invalid or expired", "error_type": "reset_token_invalid"})
	case errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is not activated", "error_type": "account_inactive"})
	case errors.Is(err, service.ErrApplicationExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Application has expired, apply again", "error_type": "application_expired"})
	case errors.Is(err, service.ErrNotListingOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the listing owner can do this", "error_type": "not_listing_owner"})
	case errors.Is(err, service.ErrNotDealer):
		c.JSON(http.StatusForbidden, gin.H{"error": "Dealer account required", "error_type": "not_dealer"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden", "error_type": "forbidden"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_type": "conflict"})
	case errors.Is(err, apperrors.ErrExpiredToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token has expired", "error_type": "token_expired"})
	case errors.Is(err, apperrors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests", "error_type": "rate_limited"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_error"})
	}
}

// currentUserID возвращает ID пользователя из контекста Gin
func currentUserID(c *gin.Context) uint {
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// currentRole возвращает роль пользователя из контекста Gin
func currentRole(c *gin.Context) string {
	if v, exists := c.Get("role"); exists {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

// clientInfo собирает сведения об устройстве для refresh-сессии
func clientInfo(c *gin.Context, deviceID string) service.ClientInfo {
	return service.ClientInfo{
		DeviceID:  deviceID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// sendOTPPayload формирует тело ответа на отправку кода. В dummy-режиме
// код возвращается прямо в ответе.
func sendOTPPayload(result *service.SendResult) gin.H {
	payload := gin.H{
		"success":    true,
		"message":    result.Delivery.Message,
		"expires_at": result.ExpiresAt,
	}
	if result.Delivery.UsedDummy {
		payload["dummy_otp"] = result.Delivery.DummyOTP
	}
	return payload
}
