package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"channel-service/internal/models"
	"channel-service/internal/repositories"
	"channel-service/internal/threads"
)

var (
	_ repositories.ChannelRepository = (*ChannelRepositoryMock)(nil)
	_ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
	_ repositories.UserRepository    = (*UserRepositoryMock)(nil)
	_ threads.ReplyCounter           = (*ReplyCounterMock)(nil)
)

type ChannelRepositoryMock struct {
	mock.Mock
}

func (m *ChannelRepositoryMock) CreateChannel(ctx context.Context, name, description string, createdBy int) (models.Channel, error) {
	args := m.Called(ctx, name, description, createdBy)
	return args.Get(0).(models.Channel), args.Error(1)
}

func (m *ChannelRepositoryMock) ListChannels(ctx context.Context) ([]models.Channel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Channel), args.Error(1)
}

func (m *ChannelRepositoryMock) GetChannel(ctx context.Context, channelID int) (models.Channel, error) {
	args := m.Called(ctx, channelID)
	return args.Get(0).(models.Channel), args.Error(1)
}

func (m *ChannelRepositoryMock) ChannelExists(ctx context.Context, channelID int) (bool, error) {
	args := m.Called(ctx, channelID)
	return args.Bool(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) AppendMessage(ctx context.Context, msg repositories.NewMessage) (models.Message, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) PageRootMessages(ctx context.Context, channelID, page, pageSize int) ([]models.Message, bool, error) {
	args := m.Called(ctx, channelID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]models.Message), args.Bool(1), args.Error(2)
}

func (m *MessageRepositoryMock) ListThread(ctx context.Context, parentMessageID int) ([]models.Message, error) {
	args := m.Called(ctx, parentMessageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) EditMessage(ctx context.Context, messageID, requestingUserID int, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, requestingUserID, content)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) SoftDeleteMessage(ctx context.Context, messageID, requestingUserID int) (models.Message, error) {
	args := m.Called(ctx, messageID, requestingUserID)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) ToggleReaction(ctx context.Context, messageID, userID int, emoji string) (models.Message, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) ReplyCountsByParent(ctx context.Context) (map[int]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]int), args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) ResolveUsernames(ctx context.Context, usernames []string) (map[string]int64, error) {
	args := m.Called(ctx, usernames)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *UserRepositoryMock) BulkUsernames(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]string), args.Error(1)
}

type ReplyCounterMock struct {
	mock.Mock
}

func (m *ReplyCounterMock) Increment(ctx context.Context, parentMessageID int) error {
	args := m.Called(ctx, parentMessageID)
	return args.Error(0)
}

func (m *ReplyCounterMock) Count(ctx context.Context, parentMessageID int) (int, error) {
	args := m.Called(ctx, parentMessageID)
	return args.Int(0), args.Error(1)
}

func (m *ReplyCounterMock) CountMany(ctx context.Context, parentMessageIDs []int) (map[int]int, error) {
	args := m.Called(ctx, parentMessageIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]int), args.Error(1)
}

func (m *ReplyCounterMock) Reset(ctx context.Context, counts map[int]int) error {
	args := m.Called(ctx, counts)
	return args.Error(0)
}
