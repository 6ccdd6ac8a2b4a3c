package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/carmarket-api/internal/domain/repository"
	"github.com/yourusername/carmarket-api/internal/middleware"
	"github.com/yourusername/carmarket-api/internal/service"
)

// AuthHandler обрабатывает запросы, связанные с аутентификацией
type AuthHandler struct {
	authService  *service.AuthService
	userRepo     repository.UserRepository
	cookieMaxAge int
	cookieSecure bool
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(authService *service.AuthService, userRepo repository.UserRepository, accessTokenTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		userRepo:     userRepo,
		cookieMaxAge: int(accessTokenTTL.Seconds()),
		cookieSecure: cookieSecure,
	}
}

// Структуры запросов

// RegisterRequest представляет запрос на регистрацию
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=50"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	Phone     string `json:"phone" binding:"required"`
	FirstName string `json:"first_name" binding:"omitempty,max=100"`
	LastName  string `json:"last_name" binding:"omitempty,max=100"`
	City      string `json:"city" binding:"omitempty,max=100"`
}

// PhoneRequest — запрос с одним номером телефона
type PhoneRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// VerifyOTPRequest — номер и код подтверждения
type VerifyOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required,len=6"`
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id" binding:"omitempty"`
}

// ForgotPasswordRequest — сброс пароля по телефону или email
type ForgotPasswordRequest struct {
	Phone string `json:"phone" binding:"omitempty"`
	Email string `json:"email" binding:"omitempty,email"`
}

// ResetPasswordRequest — установка нового пароля по reset-токену
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required,len=64"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// ChangePhoneRequest — запрос на смену номера
type ChangePhoneRequest struct {
	NewPhone string `json:"new_phone" binding:"required"`
}

// VerifyPhoneRequest — подтверждение нового номера
type VerifyPhoneRequest struct {
	NewPhone string `json:"new_phone" binding:"required"`
	Code     string `json:"code" binding:"required,len=6"`
}

// RefreshRequest представляет запрос на обновление токенов
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	DeviceID     string `json:"device_id" binding:"omitempty"`
}

// LogoutRequest представляет запрос на выход
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"omitempty"`
}

// setAccessCookie кладет access-токен в HttpOnly куку
func (h *AuthHandler) setAccessCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, token, h.cookieMaxAge, "/", "", h.cookieSecure, true)
}

func (h *AuthHandler) clearAccessCookie(c *gin.Context) {
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", h.cookieSecure, true)
}

// Register создает неактивный аккаунт и отправляет OTP на телефон
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	user, result, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		City:      req.City,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("[AuthHandler] Пользователь ID=%d зарегистрирован, код отправлен", user.ID)

	payload := sendOTPPayload(result)
	payload["user_id"] = user.ID
	c.JSON(http.StatusCreated, payload)
}

// VerifyOTP подтверждает телефон и активирует аккаунт
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	user, err := h.authService.VerifyRegistration(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Phone verified, account activated", "user": user})
}

// ResendOTP повторно отправляет код регистрации (не чаще раза в 30 секунд)
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req PhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	result, err := h.authService.ResendRegistrationOTP(c.Request.Context(), req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sendOTPPayload(result))
}

// Login выполняет вход по email и паролю
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	user, pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, clientInfo(c, req.DeviceID))
	if err != nil {
		respondError(c, err)
		return
	}

	h.setAccessCookie(c, pair.AccessToken)
	c.JSON(http.StatusOK, gin.H{
		"user":          user,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// SendLoginOTP отправляет код для беспарольного входа
func (h *AuthHandler) SendLoginOTP(c *gin.Context) {
	var req PhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	result, err := h.authService.RequestLoginOTP(c.Request.Context(), req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sendOTPPayload(result))
}

// VerifyLoginOTP завершает вход по коду
func (h *AuthHandler) VerifyLoginOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	user, pair, err := h.authService.VerifyLoginOTP(c.Request.Context(), req.Phone, req.Code, clientInfo(c, ""))
	if err != nil {
		respondError(c, err)
		return
	}

	h.setAccessCookie(c, pair.AccessToken)
	c.JSON(http.StatusOK, gin.H{
		"user":          user,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// ForgotPassword запускает сброс пароля. По телефону — отправляет OTP;
// по email — отправляет письмо и всегда отвечает успехом.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	switch {
	case req.Phone != "":
		result, err := h.authService.ForgotPasswordByPhone(c.Request.Context(), req.Phone)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sendOTPPayload(result))

	case req.Email != "":
		// Ответ не раскрывает, существует ли аккаунт
		_ = h.authService.ForgotPasswordByEmail(c.Request.Context(), req.Email)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "If the account exists, a reset link has been sent"})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone or email is required", "error_type": "validation_error"})
	}
}

// VerifyResetOTP обменивает код на одноразовый reset-токен
func (h *AuthHandler) VerifyResetOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	token, err := h.authService.VerifyPasswordResetOTP(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "reset_token": token})
}

// ResetPassword устанавливает новый пароль по reset-токену
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password has been reset, please log in again"})
}

// ChangePhone отправляет код на новый номер (требует аутентификации)
func (h *AuthHandler) ChangePhone(c *gin.Context) {
	var req ChangePhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	result, err := h.authService.RequestPhoneChange(c.Request.Context(), currentUserID(c), req.NewPhone)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sendOTPPayload(result))
}

// VerifyPhone подтверждает смену номера
func (h *AuthHandler) VerifyPhone(c *gin.Context) {
	var req VerifyPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	user, err := h.authService.ConfirmPhoneChange(c.Request.Context(), currentUserID(c), req.NewPhone, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// Refresh ротирует refresh-токен
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	pair, err := h.authService.RefreshTokens(c.Request.Context(), req.RefreshToken, clientInfo(c, req.DeviceID))
	if err != nil {
		respondError(c, err)
		return
	}

	h.setAccessCookie(c, pair.AccessToken)
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// Logout отзывает refresh-сессию и чистит куку
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	// Тело опционально
	_ = c.ShouldBindJSON(&req)

	if req.RefreshToken != "" {
		if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
			log.Printf("[AuthHandler] Ошибка отзыва сессии: %v", err)
		}
	}

	h.clearAccessCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

// LogoutAll отзывает все сессии пользователя
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	if err := h.authService.LogoutAll(c.Request.Context(), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	h.clearAccessCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "All sessions revoked"})
}

// Me возвращает профиль текущего пользователя
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.userRepo.GetByID(currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
