package service

import "errors"

// Flow specific errors used by handlers for stable error_type mapping.
var (
	ErrInvalidPhone         = errors.New("invalid_phone")
	ErrInvalidOTP           = errors.New("invalid_otp")
	ErrOTPExpired           = errors.New("otp_expired")
	ErrOTPAttemptsExceeded  = errors.New("otp_attempts_exceeded")
	ErrOTPResendCooldown    = errors.New("otp_resend_cooldown")
	ErrPhoneAlreadyVerified = errors.New("phone_already_verified")
	ErrPhoneTaken           = errors.New("phone_taken")
	ErrResetTokenInvalid    = errors.New("reset_token_invalid")
	ErrAccountInactive      = errors.New("account_inactive")
	ErrApplicationExpired   = errors.New("application_expired")
	ErrNotListingOwner      = errors.New("not_listing_owner")
	ErrNotDealer            = errors.New("not_dealer")
)
