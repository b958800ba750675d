package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/cherr"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"
	"ai-chat-be/pkg/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeChatService struct {
	sendStream *service.ChatStream
	sendErr    error

	history    *dto.GetHistoryResponse
	historyErr error

	lastUserId uuid.UUID
	lastLimit  int
	lastAfter  *uuid.UUID
	lastBefore *uuid.UUID
}

func (f *fakeChatService) SendMessage(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest) (*service.ChatStream, error) {
	f.lastUserId = userId
	return f.sendStream, f.sendErr
}

func (f *fakeChatService) GetHistory(ctx context.Context, userId uuid.UUID, limit int, startingAfter, endingBefore *uuid.UUID) (*dto.GetHistoryResponse, error) {
	f.lastUserId = userId
	f.lastLimit = limit
	f.lastAfter = startingAfter
	f.lastBefore = endingBefore
	return f.history, f.historyErr
}

func (f *fakeChatService) GetMessages(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) ([]dto.GetMessagesResponse, error) {
	return nil, nil
}

func (f *fakeChatService) GetStreamIds(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.GetStreamIdsResponse, error) {
	return &dto.GetStreamIdsResponse{StreamIds: []uuid.UUID{}}, nil
}

func (f *fakeChatService) DeleteChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) error {
	return nil
}

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }
func (noopLogger) GetLogs(level string, limit, offset int) ([]logger.LogEntry, error) {
	return nil, nil
}
func (noopLogger) GetLogById(id string) (*logger.LogEntry, error) { return nil, nil }

func newTestApp(svc service.IChatService) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: serverutils.ErrorHandlerMiddleware(noopLogger{}),
	})
	api := app.Group("/api")
	NewChatController(svc).RegisterRoutes(api)
	return app
}

func bearerToken(t *testing.T, userId uuid.UUID) string {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId.String(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	assert.NoError(t, err)
	return "Bearer " + signed
}

func decodeError(t *testing.T, body io.Reader) serverutils.ErrorResponse {
	t.Helper()
	var er serverutils.ErrorResponse
	assert.NoError(t, json.NewDecoder(body).Decode(&er))
	return er
}

func sendBody(t *testing.T) []byte {
	body, err := json.Marshal(dto.SendMessageRequest{
		Id: uuid.New(),
		Message: dto.InboundMessage{
			Role:  "user",
			Parts: []dto.MessagePartDTO{{Type: "text", Text: "Hi"}},
		},
	})
	assert.NoError(t, err)
	return body
}

func TestSendMessageRequiresToken(t *testing.T) {
	app := newTestApp(&fakeChatService{})

	req := httptest.NewRequest("POST", "/api/chat/v1", bytes.NewReader(sendBody(t)))
	req.Header.Set("Content-Type", "application/json")

	res, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 401, res.StatusCode)
	assert.Equal(t, "unauthorized:chat", decodeError(t, res.Body).Code)
}

func TestSendMessageRejectsMalformedBody(t *testing.T) {
	app := newTestApp(&fakeChatService{})

	req := httptest.NewRequest("POST", "/api/chat/v1", bytes.NewReader([]byte(`{"id":`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t, uuid.New()))

	res, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 400, res.StatusCode)
	assert.Equal(t, "bad_request:api", decodeError(t, res.Body).Code)
}

func TestSendMessageRejectsEmptyParts(t *testing.T) {
	app := newTestApp(&fakeChatService{})

	body, _ := json.Marshal(dto.SendMessageRequest{
		Id:      uuid.New(),
		Message: dto.InboundMessage{Role: "user", Parts: []dto.MessagePartDTO{}},
	})
	req := httptest.NewRequest("POST", "/api/chat/v1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t, uuid.New()))

	res, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 400, res.StatusCode)
}

func TestSendMessageRateLimitSurfaces429(t *testing.T) {
	app := newTestApp(&fakeChatService{
		sendErr: cherr.New(cherr.RateLimitChat, "You have exceeded your maximum number of messages for the day! Please try again later."),
	})

	req := httptest.NewRequest("POST", "/api/chat/v1", bytes.NewReader(sendBody(t)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t, uuid.New()))

	res, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 429, res.StatusCode)
	assert.Equal(t, "rate_limit:chat", decodeError(t, res.Body).Code)
}

func TestSendMessageStreamsSSE(t *testing.T) {
	events := make(chan stream.UIEvent, 3)
	events <- stream.UIEvent{Type: stream.EventTextDelta, Delta: "Hello"}
	events <- stream.UIEvent{Type: stream.EventUsage}
	events <- stream.UIEvent{Type: stream.EventDone}
	close(events)

	streamId := uuid.New()
	app := newTestApp(&fakeChatService{
		sendStream: &service.ChatStream{StreamId: streamId, Events: events},
	})

	req := httptest.NewRequest("POST", "/api/chat/v1", bytes.NewReader(sendBody(t)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t, uuid.New()))

	res, err := app.Test(req, 2000)
	assert.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))
	assert.Equal(t, streamId.String(), res.Header.Get("X-Stream-Id"))

	body, err := io.ReadAll(res.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), `data: {"type":"text-delta","delta":"Hello"}`)
	assert.Contains(t, string(body), `data: {"type":"done"}`)
}

func TestGetHistoryParsesCursors(t *testing.T) {
	svc := &fakeChatService{history: &dto.GetHistoryResponse{Chats: []dto.ChatSummaryResponse{}}}
	app := newTestApp(svc)
	userId := uuid.New()
	cursor := uuid.New()

	req := httptest.NewRequest("GET", "/api/chat/v1/history?limit=5&starting_after="+cursor.String(), nil)
	req.Header.Set("Authorization", bearerToken(t, userId))

	res, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, userId, svc.lastUserId)
	assert.Equal(t, 5, svc.lastLimit)
	if assert.NotNil(t, svc.lastAfter) {
		assert.Equal(t, cursor, *svc.lastAfter)
	}
	assert.Nil(t, svc.lastBefore)
}

func TestGetHistoryRejectsGarbageCursor(t *testing.T) {
	app := newTestApp(&fakeChatService{})

	req := httptest.NewRequest("GET", "/api/chat/v1/history?ending_before=not-a-uuid", nil)
	req.Header.Set("Authorization", bearerToken(t, uuid.New()))

	res, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 400, res.StatusCode)
	assert.Equal(t, "bad_request:api", decodeError(t, res.Body).Code)
}

func TestDeleteChatRejectsBadId(t *testing.T) {
	app := newTestApp(&fakeChatService{})

	req := httptest.NewRequest("DELETE", "/api/chat/v1/not-a-uuid", nil)
	req.Header.Set("Authorization", bearerToken(t, uuid.New()))

	res, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 400, res.StatusCode)
}
