package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	"github.com/yourusername/carmarket-api/internal/domain/repository"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
	"github.com/yourusername/carmarket-api/internal/pkg/phone"
	"github.com/yourusername/carmarket-api/pkg/auth"
)

var resetTokenRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// TokenPair содержит access- и refresh-токены, выданные при входе
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ClientInfo описывает устройство, с которого выполняется вход
type ClientInfo struct {
	DeviceID  string
	IPAddress string
	UserAgent string
}

// AuthService предоставляет методы для аутентификации и управления аккаунтом
type AuthService struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	verification *VerificationService
	jwtService   *auth.JWTService
	emailService EmailService
}

// NewAuthService создает новый сервис аутентификации
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	verification *VerificationService,
	jwtService *auth.JWTService,
	emailService EmailService,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		verification: verification,
		jwtService:   jwtService,
		emailService: emailService,
	}
}

// RegisterInput — данные формы регистрации
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	Phone     string
	FirstName string
	LastName  string
	City      string
}

// Register создает неактивного пользователя и отправляет OTP на его номер.
// Аккаунт активируется только после подтверждения кода.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*entity.User, *SendResult, error) {
	canonical := phone.FormatWhatsApp(input.Phone)
	if !phone.ValidateWhatsApp(canonical) {
		return nil, nil, ErrInvalidPhone
	}

	if existing, err := s.userRepo.GetByPhone(canonical); err == nil && existing != nil {
		if existing.Active {
			return nil, nil, ErrPhoneTaken
		}
		// Незавершенная регистрация: продолжаем проверку того же аккаунта
		result, err := s.verification.Send(ctx, NewUserOTPAccessor(s.userRepo, existing.ID), canonical)
		if err != nil {
			return nil, nil, err
		}
		return existing, result, nil
	}

	if existing, err := s.userRepo.GetByEmail(input.Email); err == nil && existing != nil {
		return nil, nil, fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
	}
	if existing, err := s.userRepo.GetByUsername(input.Username); err == nil && existing != nil {
		return nil, nil, fmt.Errorf("%w: username already taken", apperrors.ErrConflict)
	}

	user := &entity.User{
		Username:  input.Username,
		Email:     input.Email,
		Password:  input.Password, // хешируется в BeforeSave
		Phone:     canonical,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		City:      input.City,
		Active:    false,
		Role:      entity.RoleUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, nil, err
	}

	result, err := s.verification.Send(ctx, NewUserOTPAccessor(s.userRepo, user.ID), canonical)
	if err != nil {
		return nil, nil, err
	}

	log.Printf("[AuthService] Зарегистрирован пользователь %s (ID=%d), ожидает подтверждения телефона", user.Username, user.ID)
	return user, result, nil
}

// VerifyRegistration подтверждает номер и активирует аккаунт
func (s *AuthService) VerifyRegistration(ctx context.Context, rawPhone, code string) (*entity.User, error) {
	user, err := s.findByPhone(rawPhone)
	if err != nil {
		return nil, err
	}
	if user.Active {
		return nil, ErrPhoneAlreadyVerified
	}

	now := time.Now()
	extra := map[string]interface{}{
		"active":            true,
		"phone_verified_at": now,
	}
	if err := s.verification.Verify(ctx, NewUserOTPAccessor(s.userRepo, user.ID), code, extra, nil); err != nil {
		return nil, err
	}

	return s.userRepo.GetByID(user.ID)
}

// ResendRegistrationOTP повторно отправляет код, не раньше чем через 30 секунд
func (s *AuthService) ResendRegistrationOTP(ctx context.Context, rawPhone string) (*SendResult, error) {
	user, err := s.findByPhone(rawPhone)
	if err != nil {
		return nil, err
	}
	if user.Active {
		return nil, ErrPhoneAlreadyVerified
	}
	return s.verification.Resend(ctx, NewUserOTPAccessor(s.userRepo, user.ID), user.Phone)
}

// Login выполняет вход по email и паролю
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (*entity.User, *TokenPair, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}
	if !user.CheckPassword(password) {
		return nil, nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}
	if !user.Active {
		return nil, nil, ErrAccountInactive
	}

	pair, err := s.issueTokens(user, client)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// RequestLoginOTP отправляет код для беспарольного входа
func (s *AuthService) RequestLoginOTP(ctx context.Context, rawPhone string) (*SendResult, error) {
	user, err := s.findByPhone(rawPhone)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrAccountInactive
	}
	return s.verification.Send(ctx, NewUserOTPAccessor(s.userRepo, user.ID), user.Phone)
}

// VerifyLoginOTP завершает вход по коду из WhatsApp
func (s *AuthService) VerifyLoginOTP(ctx context.Context, rawPhone, code string, client ClientInfo) (*entity.User, *TokenPair, error) {
	user, err := s.findByPhone(rawPhone)
	if err != nil {
		return nil, nil, err
	}
	if !user.Active {
		return nil, nil, ErrAccountInactive
	}

	if err := s.verification.Verify(ctx, NewUserOTPAccessor(s.userRepo, user.ID), code, nil, nil); err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokens(user, client)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// ForgotPasswordByPhone запускает сброс пароля: отправляет OTP владельцу номера
func (s *AuthService) ForgotPasswordByPhone(ctx context.Context, rawPhone string) (*SendResult, error) {
	user, err := s.findByPhone(rawPhone)
	if err != nil {
		return nil, err
	}
	return s.verification.Send(ctx, NewUserOTPAccessor(s.userRepo, user.ID), user.Phone)
}

// VerifyPasswordResetOTP обменивает подтвержденный код на одноразовый
// reset-токен второй ступени (64 hex-символа, живет 1 час)
func (s *AuthService) VerifyPasswordResetOTP(ctx context.Context, rawPhone, code string) (string, error) {
	user, err := s.findByPhone(rawPhone)
	if err != nil {
		return "", err
	}

	token, expiry, err := GenerateResetToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	// Токен записывается тем же UPDATE, что и сброс OTP-полей
	extra := map[string]interface{}{
		"reset_token":        token,
		"reset_token_expiry": expiry,
	}
	if err := s.verification.Verify(ctx, NewUserOTPAccessor(s.userRepo, user.ID), code, extra, nil); err != nil {
		return "", err
	}

	return token, nil
}

// ForgotPasswordByEmail отправляет ссылку для сброса пароля на email.
// Всегда возвращает успех, чтобы не раскрывать существование аккаунта.
func (s *AuthService) ForgotPasswordByEmail(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		log.Printf("[AuthService] Запрос сброса пароля для неизвестного email")
		return nil
	}

	token, expiry, err := GenerateResetToken()
	if err != nil {
		log.Printf("[AuthService] Ошибка генерации reset-токена: %v", err)
		return nil
	}
	if err := s.userRepo.SetResetToken(user.ID, token, expiry); err != nil {
		log.Printf("[AuthService] Ошибка сохранения reset-токена для user_id=%d: %v", user.ID, err)
		return nil
	}
	if err := s.emailService.SendPasswordReset(ctx, user.Email, token); err != nil {
		log.Printf("[AuthService] Ошибка отправки письма сброса пароля для user_id=%d: %v", user.ID, err)
	}
	return nil
}

// ResetPassword устанавливает новый пароль по reset-токену.
// Токен одноразовый: обнуляется при первом использовании, все сессии
// пользователя отзываются.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if !resetTokenRe.MatchString(token) {
		return ErrResetTokenInvalid
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", apperrors.ErrValidation)
	}

	user, err := s.userRepo.GetByResetToken(token)
	if err != nil {
		return ErrResetTokenInvalid
	}
	if user.ResetTokenExpiry == nil || time.Now().After(*user.ResetTokenExpiry) {
		// Просроченный токен тоже обнуляем
		_ = s.userRepo.ClearResetToken(user.ID)
		return ErrResetTokenInvalid
	}

	if err := s.userRepo.UpdatePassword(user.ID, newPassword); err != nil {
		return err
	}
	if err := s.userRepo.ClearResetToken(user.ID); err != nil {
		return err
	}

	// Старые access-токены и refresh-сессии перестают действовать
	s.jwtService.InvalidateTokensForUser(user.ID)
	if err := s.sessionRepo.RevokeAllForUser(user.ID, "password_reset"); err != nil {
		log.Printf("[AuthService] Ошибка отзыва сессий user_id=%d: %v", user.ID, err)
	}

	log.Printf("[AuthService] Пароль пользователя %d сброшен", user.ID)
	return nil
}

// RequestPhoneChange отправляет код на НОВЫЙ номер пользователя
func (s *AuthService) RequestPhoneChange(ctx context.Context, userID uint, newPhone string) (*SendResult, error) {
	canonical := phone.FormatWhatsApp(newPhone)
	if !phone.ValidateWhatsApp(canonical) {
		return nil, ErrInvalidPhone
	}
	if existing, err := s.userRepo.GetByPhone(canonical); err == nil && existing != nil && existing.ID != userID {
		return nil, ErrPhoneTaken
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrAccountInactive
	}

	return s.verification.Send(ctx, NewUserOTPAccessor(s.userRepo, userID), canonical)
}

// ConfirmPhoneChange подтверждает код и переключает аккаунт на новый номер
func (s *AuthService) ConfirmPhoneChange(ctx context.Context, userID uint, newPhone, code string) (*entity.User, error) {
	canonical := phone.FormatWhatsApp(newPhone)
	if !phone.ValidateWhatsApp(canonical) {
		return nil, ErrInvalidPhone
	}
	// Повторная проверка: номер могли занять между запросом и подтверждением
	if existing, err := s.userRepo.GetByPhone(canonical); err == nil && existing != nil && existing.ID != userID {
		return nil, ErrPhoneTaken
	}

	now := time.Now()
	extra := map[string]interface{}{
		"phone":             canonical,
		"phone_verified_at": now,
	}
	if err := s.verification.Verify(ctx, NewUserOTPAccessor(s.userRepo, userID), code, extra, nil); err != nil {
		return nil, err
	}

	return s.userRepo.GetByID(userID)
}

// RefreshTokens ротирует refresh-токен: старая сессия отзывается,
// взамен создается новая
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string, client ClientInfo) (*TokenPair, error) {
	session, err := s.sessionRepo.GetByTokenHash(auth.HashRefreshToken(refreshToken))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", apperrors.ErrUnauthorized)
	}
	if !session.IsValid() {
		return nil, fmt.Errorf("%w: session expired or revoked", apperrors.ErrUnauthorized)
	}

	user, err := s.userRepo.GetByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user not found", apperrors.ErrUnauthorized)
	}
	if !user.Active {
		return nil, ErrAccountInactive
	}

	if err := s.sessionRepo.Revoke(session.ID, "rotated"); err != nil {
		return nil, err
	}
	return s.issueTokens(user, client)
}

// Logout отзывает refresh-сессию
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.sessionRepo.GetByTokenHash(auth.HashRefreshToken(refreshToken))
	if err != nil {
		// Неизвестный токен считаем уже разлогиненным
		return nil
	}
	return s.sessionRepo.Revoke(session.ID, "logout")
}

// LogoutAll отзывает все сессии пользователя
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) error {
	s.jwtService.InvalidateTokensForUser(userID)
	return s.sessionRepo.RevokeAllForUser(userID, "logout_all")
}

// findByPhone нормализует номер и возвращает пользователя
func (s *AuthService) findByPhone(rawPhone string) (*entity.User, error) {
	canonical := phone.FormatWhatsApp(rawPhone)
	if !phone.ValidateWhatsApp(canonical) {
		return nil, ErrInvalidPhone
	}
	user, err := s.userRepo.GetByPhone(canonical)
	if err != nil {
		return nil, apperrors.ErrNotFound
	}
	return user, nil
}

// issueTokens выдает пару токенов и сохраняет refresh-сессию (только хеш)
func (s *AuthService) issueTokens(user *entity.User, client ClientInfo) (*TokenPair, error) {
	accessToken, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	refreshToken, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.jwtService.RefreshTokenTTL())
	session := entity.NewSession(user.ID, auth.HashRefreshToken(refreshToken),
		client.DeviceID, client.IPAddress, client.UserAgent, expiresAt)
	if _, err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}
