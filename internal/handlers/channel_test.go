package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"channel-service/internal/mocks"
	"channel-service/internal/models"
	"channel-service/internal/repositories"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser is a test stand-in for the auth middleware.
func asUser(userID int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("username", "tester")
		c.Next()
	}
}

func performRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newChannelRouter(channelRepo *mocks.ChannelRepositoryMock, messageRepo *mocks.MessageRepositoryMock, userRepo *mocks.UserRepositoryMock, replies *mocks.ReplyCounterMock) *gin.Engine {
	h := NewChannelHandler(channelRepo, messageRepo, userRepo, replies, nil)
	router := gin.New()
	router.GET("/channels", asUser(42), h.ListChannels)
	router.POST("/channels", asUser(42), h.CreateChannel)
	router.GET("/channels/:channel_id/messages", asUser(42), h.ListChannelMessages)
	return router
}

func TestListChannels(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	channelRepo.On("ListChannels", mock.Anything).Return([]models.Channel{
		{ID: 1, Name: "general", CreatedBy: 1},
		{ID: 2, Name: "random", CreatedBy: 2},
	}, nil)

	router := newChannelRouter(channelRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), new(mocks.ReplyCounterMock))
	w := performRequest(router, http.MethodGet, "/channels", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Channels []models.Channel `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Channels, 2)
	assert.Equal(t, "general", resp.Channels[0].Name)
	channelRepo.AssertExpectations(t)
}

func TestCreateChannel(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	channelRepo.On("CreateChannel", mock.Anything, "general", "main room", 42).
		Return(models.Channel{ID: 1, Name: "general", Description: "main room", CreatedBy: 42, CreatedAt: time.Now()}, nil)

	router := newChannelRouter(channelRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), new(mocks.ReplyCounterMock))
	w := performRequest(router, http.MethodPost, "/channels", `{"name":"general","description":"main room"}`)

	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Channel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, 42, created.CreatedBy)
	channelRepo.AssertExpectations(t)
}

func TestCreateChannelDuplicateName(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)
	channelRepo.On("CreateChannel", mock.Anything, "general", "", 42).
		Return(models.Channel{}, repositories.ErrChannelNameTaken)

	router := newChannelRouter(channelRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), new(mocks.ReplyCounterMock))
	w := performRequest(router, http.MethodPost, "/channels", `{"name":"general"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateChannelMissingName(t *testing.T) {
	channelRepo := new(mocks.ChannelRepositoryMock)

	router := newChannelRouter(channelRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), new(mocks.ReplyCounterMock))
	w := performRequest(router, http.MethodPost, "/channels", `{"description":"no name"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	channelRepo.AssertNotCalled(t, "CreateChannel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListChannelMessages(t *testing.T) {
	msgs := []models.Message{
		{ID: 20, ChannelID: 1, UserID: 2, Content: "newest"},
		{ID: 10, ChannelID: 1, UserID: 3, Content: "older",
			Reactions: models.ReactionList{{UserID: 2, Emoji: "👍"}, {UserID: 3, Emoji: "👍"}}},
	}

	messageRepo := new(mocks.MessageRepositoryMock)
	messageRepo.On("PageRootMessages", mock.Anything, 1, 1, 50).Return(msgs, true, nil)

	userRepo := new(mocks.UserRepositoryMock)
	userRepo.On("BulkUsernames", mock.Anything, []int64{2, 3}).
		Return(map[int64]string{2: "alice", 3: "bob"}, nil)

	replies := new(mocks.ReplyCounterMock)
	replies.On("CountMany", mock.Anything, []int{20, 10}).
		Return(map[int]int{20: 0, 10: 4}, nil)

	router := newChannelRouter(new(mocks.ChannelRepositoryMock), messageRepo, userRepo, replies)
	w := performRequest(router, http.MethodGet, "/channels/1/messages", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []struct {
			ID              int    `json:"id"`
			Username        string `json:"username"`
			ReplyCount      int    `json:"reply_count"`
			ReactionSummary []struct {
				Emoji string `json:"emoji"`
				Count int    `json:"count"`
			} `json:"reaction_summary"`
		} `json:"messages"`
		HasMore bool `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.HasMore)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "alice", resp.Messages[0].Username)
	assert.Equal(t, 4, resp.Messages[1].ReplyCount)
	require.Len(t, resp.Messages[1].ReactionSummary, 1)
	assert.Equal(t, "👍", resp.Messages[1].ReactionSummary[0].Emoji)
	assert.Equal(t, 2, resp.Messages[1].ReactionSummary[0].Count)
}

func TestListChannelMessagesUnknownChannel(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	messageRepo.On("PageRootMessages", mock.Anything, 99, 1, 50).
		Return(nil, false, repositories.ErrChannelNotFound)

	router := newChannelRouter(new(mocks.ChannelRepositoryMock), messageRepo, new(mocks.UserRepositoryMock), new(mocks.ReplyCounterMock))
	w := performRequest(router, http.MethodGet, "/channels/99/messages", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListChannelMessagesClampsPageParams(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	messageRepo.On("PageRootMessages", mock.Anything, 1, 1, 100).
		Return([]models.Message{}, false, nil)

	userRepo := new(mocks.UserRepositoryMock)
	userRepo.On("BulkUsernames", mock.Anything, []int64{}).Return(map[int64]string{}, nil)

	router := newChannelRouter(new(mocks.ChannelRepositoryMock), messageRepo, userRepo, new(mocks.ReplyCounterMock))
	w := performRequest(router, http.MethodGet, "/channels/1/messages?page=0&limit=1000", "")

	assert.Equal(t, http.StatusOK, w.Code)
	messageRepo.AssertExpectations(t)
}
