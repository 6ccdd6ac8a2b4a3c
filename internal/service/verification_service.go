package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/yourusername/carmarket-api/internal/domain/repository"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
)

var otpCodeRe = regexp.MustCompile(`^\d{6}$`)

// OTPState is a snapshot of the in-flight verification for one identity.
type OTPState struct {
	Phone     string
	Code      *string
	ExpiresAt *time.Time
	Attempts  int
}

// OTPAccessor binds the verification workflow to the record that holds the
// code: a user row or a dealer application row. One workflow serves every
// flow; only the accessor and the completion side effect differ.
type OTPAccessor interface {
	// State returns the current OTP snapshot.
	State() (*OTPState, error)
	// Claim stores a new code+expiry iff the previous code's expiry is not
	// after threshold. Returns false when a live code blocks the claim.
	Claim(code string, expiresAt, threshold time.Time) (bool, error)
	// IncrementAttempts atomically bumps the failed-attempt counter.
	IncrementAttempts() error
	// Clear resets code/expiry/attempts; extra fields are applied by the
	// same update (verified flags etc).
	Clear(extra map[string]interface{}) error
}

// CooldownError reports how long the caller has to wait before a new code
// can be requested.
type CooldownError struct {
	Wait time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("please wait %d minute(s) before requesting a new code", waitMinutes(e.Wait))
}

// Is позволяет сопоставлять CooldownError с сентинелом через errors.Is
func (e *CooldownError) Is(target error) bool {
	return target == ErrOTPResendCooldown || target == apperrors.ErrRateLimited
}

// WaitMinutes возвращает остаток ожидания в целых минутах (вверх)
func (e *CooldownError) WaitMinutes() int {
	return waitMinutes(e.Wait)
}

func waitMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	m := int(d / time.Minute)
	if d%time.Minute > 0 {
		m++
	}
	return m
}

// SendResult is returned by Send/Resend.
type SendResult struct {
	ExpiresAt time.Time
	Delivery  *DeliveryResult
}

// VerificationService runs the send -> verify -> consume state machine for
// every OTP flow in the system (registration, login, password reset, phone
// change, dealer application).
type VerificationService struct {
	sender  WhatsAppSender
	appName string
}

// NewVerificationService создает workflow поверх отправителя WhatsApp
func NewVerificationService(sender WhatsAppSender, appName string) (*VerificationService, error) {
	if sender == nil {
		return nil, fmt.Errorf("whatsapp sender is required")
	}
	if appName == "" {
		appName = "CarMarket"
	}
	return &VerificationService{sender: sender, appName: appName}, nil
}

// Send issues a new code for the identity behind acc and delivers it.
// The code is persisted first; delivery failure degrades to dummy mode and
// never rolls the stored code back.
func (s *VerificationService) Send(ctx context.Context, acc OTPAccessor, phone string) (*SendResult, error) {
	return s.send(ctx, acc, phone, OTPTTL)
}

// Resend replaces a live code after a shorter 30s wait.
func (s *VerificationService) Resend(ctx context.Context, acc OTPAccessor, phone string) (*SendResult, error) {
	return s.send(ctx, acc, phone, ResendCooldown)
}

func (s *VerificationService) send(ctx context.Context, acc OTPAccessor, phone string, minWait time.Duration) (*SendResult, error) {
	code, err := GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(OTPTTL)
	// Код, выданный раньше чем minWait назад, можно заменить:
	// expires_at <= now + (TTL - minWait)
	threshold := now.Add(OTPTTL - minWait)

	claimed, err := acc.Claim(code, expiresAt, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to claim otp slot: %w", err)
	}
	if !claimed {
		// Живой код еще действует: вычисляем, сколько осталось ждать
		state, stateErr := acc.State()
		wait := minWait
		if stateErr == nil && state.ExpiresAt != nil {
			issuedAt := state.ExpiresAt.Add(-OTPTTL)
			wait = time.Until(issuedAt.Add(minWait))
		}
		return nil, &CooldownError{Wait: wait}
	}

	delivery, err := s.sender.SendOTP(ctx, phone, code, s.appName)
	if err != nil {
		// Код уже сохранен; деградируем в dummy-режим вместо отката
		log.Printf("[VerificationService] Ошибка доставки OTP на %s: %v. Возвращаем код в ответе.", phone, err)
		delivery = &DeliveryResult{
			Success:   true,
			Message:   "delivery failed, code returned in response",
			UsedDummy: true,
			DummyOTP:  code,
		}
	}

	return &SendResult{ExpiresAt: expiresAt, Delivery: delivery}, nil
}

// Verify checks the submitted code against the persisted state and, on
// success, clears the OTP fields (applying extra updates atomically) and
// runs the flow-specific completion callback.
//
// State transitions:
//   - expired code      -> ErrOTPExpired, attempts are not incremented
//   - attempts >= 3     -> ErrOTPAttemptsExceeded until a new code is issued
//   - mismatch          -> attempts+1, ErrInvalidOTP (or exceeded)
//   - match             -> clear state, apply extra, run complete
func (s *VerificationService) Verify(ctx context.Context, acc OTPAccessor, code string, extra map[string]interface{}, complete func() error) error {
	if !otpCodeRe.MatchString(code) {
		return fmt.Errorf("%w: code must be 6 digits", apperrors.ErrValidation)
	}

	state, err := acc.State()
	if err != nil {
		return err
	}
	if state.Code == nil {
		// Нет активной проверки — машина в состоянии NO_PENDING_OTP
		return ErrInvalidOTP
	}
	if IsOTPExpired(state.ExpiresAt) {
		return ErrOTPExpired
	}
	if ShouldBlockOTPAttempts(state.Attempts) {
		return ErrOTPAttemptsExceeded
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(*state.Code)) != 1 {
		if err := acc.IncrementAttempts(); err != nil {
			log.Printf("[VerificationService] Не удалось увеличить счетчик попыток: %v", err)
		}
		if ShouldBlockOTPAttempts(state.Attempts + 1) {
			return ErrOTPAttemptsExceeded
		}
		return ErrInvalidOTP
	}

	if err := acc.Clear(extra); err != nil {
		return fmt.Errorf("failed to clear otp state: %w", err)
	}
	if complete != nil {
		return complete()
	}
	return nil
}

// ============================================================================
// Аксессоры для конкретных носителей OTP-состояния
// ============================================================================

type userOTPAccessor struct {
	repo   repository.UserRepository
	userID uint
}

// NewUserOTPAccessor binds the workflow to a user row.
func NewUserOTPAccessor(repo repository.UserRepository, userID uint) OTPAccessor {
	return &userOTPAccessor{repo: repo, userID: userID}
}

func (a *userOTPAccessor) State() (*OTPState, error) {
	user, err := a.repo.GetByID(a.userID)
	if err != nil {
		return nil, err
	}
	return &OTPState{
		Phone:     user.Phone,
		Code:      user.OTPCode,
		ExpiresAt: user.OTPExpiresAt,
		Attempts:  user.OTPAttemptCount(),
	}, nil
}

func (a *userOTPAccessor) Claim(code string, expiresAt, threshold time.Time) (bool, error) {
	return a.repo.ClaimOTP(a.userID, code, expiresAt, threshold)
}

func (a *userOTPAccessor) IncrementAttempts() error {
	return a.repo.IncrementOTPAttempts(a.userID)
}

func (a *userOTPAccessor) Clear(extra map[string]interface{}) error {
	return a.repo.ClearOTP(a.userID, extra)
}

type applicationOTPAccessor struct {
	repo  repository.DealerApplicationRepository
	appID uint
}

// NewApplicationOTPAccessor binds the workflow to a dealer application row.
func NewApplicationOTPAccessor(repo repository.DealerApplicationRepository, appID uint) OTPAccessor {
	return &applicationOTPAccessor{repo: repo, appID: appID}
}

func (a *applicationOTPAccessor) State() (*OTPState, error) {
	app, err := a.repo.GetByID(a.appID)
	if err != nil {
		return nil, err
	}
	return &OTPState{
		Phone:     app.Phone,
		Code:      app.OTPCode,
		ExpiresAt: app.OTPExpiresAt,
		Attempts:  app.OTPAttemptCount(),
	}, nil
}

func (a *applicationOTPAccessor) Claim(code string, expiresAt, threshold time.Time) (bool, error) {
	return a.repo.ClaimOTP(a.appID, code, expiresAt, threshold)
}

func (a *applicationOTPAccessor) IncrementAttempts() error {
	return a.repo.IncrementOTPAttempts(a.appID)
}

func (a *applicationOTPAccessor) Clear(extra map[string]interface{}) error {
	return a.repo.ClearOTP(a.appID, extra)
}
