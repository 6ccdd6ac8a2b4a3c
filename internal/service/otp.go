package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// Параметры OTP и reset-токенов
const (
	OTPLength       = 6
	OTPTTL          = 5 * time.Minute
	ResendCooldown  = 30 * time.Second
	MaxOTPAttempts  = 3
	ResetTokenBytes = 32
	ResetTokenTTL   = 1 * time.Hour
)

// GenerateOTP returns a cryptographically random 6-digit code.
// The value is drawn uniformly from [0, 10^6), so there is no modulo bias.
func GenerateOTP() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// OTPExpiry returns the expiry timestamp for a freshly issued code.
func OTPExpiry() time.Time {
	return time.Now().Add(OTPTTL)
}

// GenerateResetToken returns a high-entropy hex token (64 chars) and its expiry.
func GenerateResetToken() (string, time.Time, error) {
	b := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, err
	}
	return hex.EncodeToString(b), time.Now().Add(ResetTokenTTL), nil
}

// IsOTPExpired reports whether the stored expiry has passed.
// A nil expiry means no code is in flight, which counts as expired.
func IsOTPExpired(expiresAt *time.Time) bool {
	if expiresAt == nil {
		return true
	}
	return time.Now().After(*expiresAt)
}

// ShouldBlockOTPAttempts reports whether further verify attempts must be
// rejected for the current code. The counter resets when a new code is issued.
func ShouldBlockOTPAttempts(attempts int) bool {
	return attempts >= MaxOTPAttempts
}
