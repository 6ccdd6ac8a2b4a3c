package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	digits := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		assert.True(t, digits.MatchString(code), "got %q", code)
	}
}

func TestGenerateResetToken(t *testing.T) {
	token, expiry, err := GenerateResetToken()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{64}$`, token)
	assert.WithinDuration(t, time.Now().Add(ResetTokenTTL), expiry, 2*time.Second)

	// Токены уникальны между вызовами
	other, _, err := GenerateResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestIsOTPExpired(t *testing.T) {
	assert.True(t, IsOTPExpired(nil))

	past := time.Now().Add(-time.Second)
	assert.True(t, IsOTPExpired(&past))

	future := time.Now().Add(time.Minute)
	assert.False(t, IsOTPExpired(&future))
}

func TestShouldBlockOTPAttempts(t *testing.T) {
	assert.False(t, ShouldBlockOTPAttempts(0))
	assert.False(t, ShouldBlockOTPAttempts(2))
	assert.True(t, ShouldBlockOTPAttempts(3))
	assert.True(t, ShouldBlockOTPAttempts(5))
}
