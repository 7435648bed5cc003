package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loomworks/careerlens/internal/domain"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockCompletionAPI is a mock for the chat completion API
type MockCompletionAPI struct {
	mock.Mock
}

func (m *MockCompletionAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func newTestClient(api CompletionAPI) *Client {
	return &Client{
		api:        api,
		timeout:    time.Second,
		maxRetries: 2,
		retryDelay: time.Millisecond,
	}
}

func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestClient_Complete_Success(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := newTestClient(mockAPI)

	mockAPI.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "gpt-4o" && len(req.Messages) == 1 && req.Messages[0].Content == "summarize this"
	})).Return(chatResponse("  a summary  "), nil)

	text, err := client.Complete(context.Background(), "summarize this", Options{Model: "gpt-4o", Temperature: 0.7})

	assert.NoError(t, err)
	assert.Equal(t, "a summary", text)
	mockAPI.AssertExpectations(t)
}

func TestClient_Complete_DefaultsApplied(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := newTestClient(mockAPI)

	mockAPI.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == DefaultModel && req.Temperature == DefaultTemperature
	})).Return(chatResponse("ok"), nil)

	_, err := client.Complete(context.Background(), "prompt", Options{})

	assert.NoError(t, err)
	mockAPI.AssertExpectations(t)
}

func TestClient_Complete_EmptyMessageBody(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := newTestClient(mockAPI)

	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(chatResponse("   "), nil).Once()

	text, err := client.Complete(context.Background(), "prompt", Options{})

	assert.Empty(t, text)
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	// A malformed response is a deterministic defect: no retry.
	mockAPI.AssertNumberOfCalls(t, "CreateChatCompletion", 1)
}

func TestClient_Complete_NoChoices(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := newTestClient(mockAPI)

	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, nil).Once()

	_, err := client.Complete(context.Background(), "prompt", Options{})

	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestClient_Complete_RateLimited(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := newTestClient(mockAPI)

	apiErr := &openai.APIError{HTTPStatusCode: 429, Message: "rate limit exceeded"}
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, apiErr).Once()

	_, err := client.Complete(context.Background(), "prompt", Options{})

	assert.ErrorIs(t, err, domain.ErrRateLimited)
	mockAPI.AssertNumberOfCalls(t, "CreateChatCompletion", 1)
}

func TestClient_Complete_ServerErrorRetriesThenFails(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := newTestClient(mockAPI)

	apiErr := &openai.APIError{HTTPStatusCode: 503, Message: "upstream overloaded"}
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, apiErr)

	_, err := client.Complete(context.Background(), "prompt", Options{})

	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	mockAPI.AssertNumberOfCalls(t, "CreateChatCompletion", 3)
}

func TestClient_Complete_TransientThenSuccess(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := newTestClient(mockAPI)

	netErr := errors.New("connection reset by peer")
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, netErr).Once()
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(chatResponse("recovered"), nil).Once()

	text, err := client.Complete(context.Background(), "prompt", Options{})

	assert.NoError(t, err)
	assert.Equal(t, "recovered", text)
	mockAPI.AssertNumberOfCalls(t, "CreateChatCompletion", 2)
}

func TestClient_Complete_CancelledContext(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := newTestClient(mockAPI)

	ctx, cancel := context.WithCancel(context.Background())
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { cancel() }).
		Return(openai.ChatCompletionResponse{}, context.Canceled)

	_, err := client.Complete(ctx, "prompt", Options{})

	assert.ErrorIs(t, err, context.Canceled)
	mockAPI.AssertNumberOfCalls(t, "CreateChatCompletion", 1)
}

func TestClient_Complete_BadRequestNotRetried(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := newTestClient(mockAPI)

	apiErr := &openai.APIError{HTTPStatusCode: 400, Message: "invalid model"}
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, apiErr).Once()

	_, err := client.Complete(context.Background(), "prompt", Options{})

	var de *domain.DomainError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, domain.ErrCodeUpstream, de.Code)
	mockAPI.AssertNumberOfCalls(t, "CreateChatCompletion", 1)
}

func TestNewClientFromEnv_NoAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	client, err := NewClientFromEnv()

	assert.Nil(t, client)
	assert.Equal(t, ErrNoAPIKey, err)
}

func TestNewClientWithConfig_Defaults(t *testing.T) {
	client := NewClientWithConfig(Config{APIKey: "test-key"})

	assert.NotNil(t, client)
	assert.Equal(t, DefaultTimeout, client.timeout)
	assert.Equal(t, DefaultMaxRetries, client.maxRetries)
	assert.Equal(t, DefaultRetryDelay, client.retryDelay)
}
