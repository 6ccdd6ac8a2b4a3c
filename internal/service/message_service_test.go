package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
	"github.com/yourusername/carmarket-api/internal/websocket"
)

// MockMessageRepo - мок репозитория переписки
type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) GetOrCreateConversation(listingID, buyerID, sellerID uint) (*entity.Conversation, error) {
	args := m.Called(listingID, buyerID, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Conversation), args.Error(1)
}

func (m *MockMessageRepo) GetConversationByID(id uint) (*entity.Conversation, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Conversation), args.Error(1)
}

func (m *MockMessageRepo) ListConversationsForUser(userID uint, limit, offset int) ([]entity.Conversation, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Conversation), args.Error(1)
}

func (m *MockMessageRepo) CreateMessage(msg *entity.ChatMessage) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockMessageRepo) ListMessages(conversationID uint, limit, offset int) ([]entity.ChatMessage, error) {
	args := m.Called(conversationID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ChatMessage), args.Error(1)
}

func (m *MockMessageRepo) MarkRead(conversationID, readerID uint) error {
	args := m.Called(conversationID, readerID)
	return args.Error(0)
}

// recordingNotifier запоминает отправленные события
type recordingNotifier struct {
	userIDs []uint
	events  []websocket.Event
}

func (n *recordingNotifier) SendToUser(userID uint, event websocket.Event) {
	n.userIDs = append(n.userIDs, userID)
	n.events = append(n.events, event)
}

func TestMessageService_StartConversation(t *testing.T) {
	messageRepo := new(MockMessageRepo)
	listingRepo := new(MockListingRepo)

	listingRepo.On("GetByID", uint(1)).Return(&entity.Listing{
		ID: 1, SellerID: 5, Status: entity.ListingStatusPublished,
	}, nil)
	messageRepo.On("GetOrCreateConversation", uint(1), uint(8), uint(5)).
		Return(&entity.Conversation{ID: 3, ListingID: 1, BuyerID: 8, SellerID: 5}, nil)

	svc := NewMessageService(messageRepo, listingRepo, nil)

	conv, err := svc.StartConversation(1, 8)

	require.NoError(t, err)
	assert.Equal(t, uint(5), conv.SellerID)
}

func TestMessageService_StartConversation_OwnListing(t *testing.T) {
	messageRepo := new(MockMessageRepo)
	listingRepo := new(MockListingRepo)

	listingRepo.On("GetByID", uint(1)).Return(&entity.Listing{
		ID: 1, SellerID: 5, Status: entity.ListingStatusPublished,
	}, nil)

	svc := NewMessageService(messageRepo, listingRepo, nil)

	_, err := svc.StartConversation(1, 5)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestMessageService_Send_NotifiesRecipient(t *testing.T) {
	messageRepo := new(MockMessageRepo)
	notifier := &recordingNotifier{}

	messageRepo.On("GetConversationByID", uint(3)).
		Return(&entity.Conversation{ID: 3, BuyerID: 8, SellerID: 5}, nil)
	messageRepo.On("CreateMessage", mock.AnythingOfType("*entity.ChatMessage")).Return(nil)

	svc := NewMessageService(messageRepo, new(MockListingRepo), notifier)

	msg, err := svc.Send(3, 8, "Masih tersedia?")

	require.NoError(t, err)
	assert.Equal(t, "Masih tersedia?", msg.Body)
	// Уведомление уходит продавцу, не отправителю
	require.Len(t, notifier.userIDs, 1)
	assert.Equal(t, uint(5), notifier.userIDs[0])
	assert.Equal(t, "message:new", notifier.events[0].Type)
}

func TestMessageService_Send_Outsider(t *testing.T) {
	messageRepo := new(MockMessageRepo)

	messageRepo.On("GetConversationByID", uint(3)).
		Return(&entity.Conversation{ID: 3, BuyerID: 8, SellerID: 5}, nil)

	svc := NewMessageService(messageRepo, new(MockListingRepo), nil)

	_, err := svc.Send(3, 99, "halo")
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	messageRepo.AssertNotCalled(t, "CreateMessage")
}

func TestMessageService_Send_EmptyBody(t *testing.T) {
	svc := NewMessageService(new(MockMessageRepo), new(MockListingRepo), nil)

	_, err := svc.Send(3, 8, "   ")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestMessageService_ListMessages_MarksRead(t *testing.T) {
	messageRepo := new(MockMessageRepo)

	messageRepo.On("GetConversationByID", uint(3)).
		Return(&entity.Conversation{ID: 3, BuyerID: 8, SellerID: 5}, nil)
	messageRepo.On("ListMessages", uint(3), 50, 0).Return([]entity.ChatMessage{{ID: 1}}, nil)
	messageRepo.On("MarkRead", uint(3), uint(5)).Return(nil)

	svc := NewMessageService(messageRepo, new(MockListingRepo), nil)

	messages, err := svc.ListMessages(3, 5, 0, 0)

	require.NoError(t, err)
	assert.Len(t, messages, 1)
	messageRepo.AssertExpectations(t)
}
