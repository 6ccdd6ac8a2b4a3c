package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
)

// MockOTPAccessor - мок носителя OTP-состояния
type MockOTPAccessor struct {
	mock.Mock
}

func (m *MockOTPAccessor) State() (*OTPState, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OTPState), args.Error(1)
}

func (m *MockOTPAccessor) Claim(code string, expiresAt, threshold time.Time) (bool, error) {
	args := m.Called(code, expiresAt, threshold)
	return args.Bool(0), args.Error(1)
}

func (m *MockOTPAccessor) IncrementAttempts() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockOTPAccessor) Clear(extra map[string]interface{}) error {
	args := m.Called(extra)
	return args.Error(0)
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestVerificationService_Send_Success(t *testing.T) {
	acc := new(MockOTPAccessor)
	acc.On("Claim", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
		Return(true, nil)

	svc, err := NewVerificationService(NewDummyWhatsAppSender(), "CarMarket")
	require.NoError(t, err)

	result, err := svc.Send(context.Background(), acc, "+628123456789")

	require.NoError(t, err)
	assert.True(t, result.Delivery.UsedDummy)
	assert.Len(t, result.Delivery.DummyOTP, OTPLength)
	assert.WithinDuration(t, time.Now().Add(OTPTTL), result.ExpiresAt, 2*time.Second)
	acc.AssertExpectations(t)
}

func TestVerificationService_Send_Cooldown(t *testing.T) {
	acc := new(MockOTPAccessor)
	acc.On("Claim", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
		Return(false, nil)
	acc.On("State").Return(&OTPState{
		Phone:     "+628123456789",
		Code:      strPtr("123456"),
		ExpiresAt: timePtr(time.Now().Add(4 * time.Minute)),
	}, nil)

	svc, err := NewVerificationService(NewDummyWhatsAppSender(), "CarMarket")
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), acc, "+628123456789")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOTPResendCooldown))
	assert.True(t, errors.Is(err, apperrors.ErrRateLimited))

	var cooldown *CooldownError
	require.True(t, errors.As(err, &cooldown))
	assert.Greater(t, cooldown.WaitMinutes(), 0)
}

func TestVerificationService_Resend_UsesShorterThreshold(t *testing.T) {
	acc := new(MockOTPAccessor)
	var capturedThreshold time.Time
	acc.On("Claim", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			capturedThreshold = args.Get(2).(time.Time)
		}).
		Return(true, nil)

	svc, err := NewVerificationService(NewDummyWhatsAppSender(), "CarMarket")
	require.NoError(t, err)

	_, err = svc.Resend(context.Background(), acc, "+628123456789")
	require.NoError(t, err)

	// Порог для повторной отправки: now + TTL - 30s
	expected := time.Now().Add(OTPTTL - ResendCooldown)
	assert.WithinDuration(t, expected, capturedThreshold, 2*time.Second)
}

func TestVerificationService_Verify_Success(t *testing.T) {
	acc := new(MockOTPAccessor)
	acc.On("State").Return(&OTPState{
		Phone:     "+628123456789",
		Code:      strPtr("123456"),
		ExpiresAt: timePtr(time.Now().Add(3 * time.Minute)),
		Attempts:  1,
	}, nil)
	extra := map[string]interface{}{"active": true}
	acc.On("Clear", extra).Return(nil)

	svc, err := NewVerificationService(NewDummyWhatsAppSender(), "CarMarket")
	require.NoError(t, err)

	completed := false
	err = svc.Verify(context.Background(), acc, "123456", extra, func() error {
		completed = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, completed)
	acc.AssertExpectations(t)
}

func TestVerificationService_Verify_MalformedCode(t *testing.T) {
	acc := new(MockOTPAccessor)
	svc, err := NewVerificationService(NewDummyWhatsAppSender(), "CarMarket")
	require.NoError(t, err)

	for _, code := range []string{"", "12345", "1234567", "12a456"} {
		err = svc.Verify(context.Background(), acc, code, nil, nil)
		assert.True(t, errors.Is(err, apperrors.ErrValidation), "code %q", code)
	}
	// Состояние не читается вообще при невалидном формате кода
	acc.AssertNotCalled(t, "State")
}

func TestVerificationService_Verify_NoPendingOTP(t *testing.T) {
	acc := new(MockOTPAccessor)
	acc.On("State").Return(&OTPState{Phone: "+628123456789"}, nil)

	svc, err := NewVerificationService(NewDummyWhatsAppSender(), "CarMarket")
	require.NoError(t, err)

	err = svc.Verify(context.Background(), acc, "123456", nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidOTP))
}

func TestVerificationService_Verify_Expired(t *testing.T) {
	acc := new(MockOTPAccessor)
	acc.On("State").Return(&OTPState{
		Phone:     "+628123456789",
		Code:      strPtr("123456"),
		ExpiresAt: timePtr(time.Now().Add(-time.Minute)),
	}, nil)

	svc, err := NewVerificationService(NewDummyWhatsAppSender(), "CarMarket")
	require.NoError(t, err)

	err = svc.Verify(context.Background(), acc, "123456", nil, nil)
	assert.True(t, errors.Is(err, ErrOTPExpired))
	// Просроченный код не увеличивает счетчик попыток
	acc.AssertNotCalled(t, "IncrementAttempts")
}

func TestVerificationService_Verify_WrongCodeIncrementsAttempts(t *testing.T) {
	acc := new(MockOTPAccessor)
	acc.On("State").Return(&OTPState{
		Phone:     "+628123456789",
		Code:      strPtr("123456"),
		ExpiresAt: timePtr(time.Now().Add(3 * time.Minute)),
		Attempts:  0,
	}, nil)
	acc.On("IncrementAttempts").Return(nil)

	svc, err := NewVerificationService(NewDummyWhatsAppSender(), "CarMarket")
	require.NoError(t, err)

	err = svc.Verify(context.Background(), acc, "654321", nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidOTP))
	acc.AssertCalled(t, "IncrementAttempts")
}

func TestVerificationService_Verify_ThirdWrongAttemptBlocks(t *testing.T) {
	acc := new(MockOTPAccessor)
	acc.On("State").Return(&OTPState{
		Phone:     "+628123456789",
		Code:      strPtr("123456"),
		ExpiresAt: timePtr(time.Now().Add(3 * time.Minute)),
		Attempts:  2,
	}, nil)
	acc.On("IncrementAttempts").Return(nil)

	svc, err := NewVerificationService(NewDummyWhatsAppSender(), "CarMarket")
	require.NoError(t, err)

	err = svc.Verify(context.Background(), acc, "654321", nil, nil)
	assert.True(t, errors.Is(err, ErrOTPAttemptsExceeded))
}

func TestVerificationService_Verify_BlockedEvenWithCorrectCode(t *testing.T) {
	acc := new(MockOTPAccessor)
	acc.On("State").Return(&OTPState{
		Phone:     "+628123456789",
		Code:      strPtr("123456"),
		ExpiresAt: timePtr(time.Now().Add(3 * time.Minute)),
		Attempts:  3,
	}, nil)

	svc, err := NewVerificationService(NewDummyWhatsAppSender(), "CarMarket")
	require.NoError(t, err)

	// Правильный код после исчерпания попыток все равно отклоняется
	err = svc.Verify(context.Background(), acc, "123456", nil, nil)
	assert.True(t, errors.Is(err, ErrOTPAttemptsExceeded))
	acc.AssertNotCalled(t, "Clear")
}
