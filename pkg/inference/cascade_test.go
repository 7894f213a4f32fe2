package inference

import (
	"context"
	"errors"
	"testing"
)

func TestNewCascadeRequiresModels(t *testing.T) {
	if _, err := NewCascade(NewMock(), nil); !errors.Is(err, ErrNoModel) {
		t.Errorf("Expected ErrNoModel, got %v", err)
	}
	if _, err := NewCascade(NewMock(), []string{"", ""}); !errors.Is(err, ErrNoModel) {
		t.Errorf("Expected ErrNoModel for blank names, got %v", err)
	}
	if _, err := NewCascade(nil, []string{"m1"}); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Expected ErrProviderUnavailable, got %v", err)
	}
}

func TestCascadeFirstModelSucceeds(t *testing.T) {
	mock := NewMock()
	c, err := NewCascade(mock, []string{"m1", "m2"})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Model != "m1" {
		t.Errorf("Expected model m1, got %s", resp.Model)
	}
	if got := mock.Models(); len(got) != 1 {
		t.Errorf("Expected one call, got %v", got)
	}
}

func TestCascadeFallsBackToNextModel(t *testing.T) {
	mock := NewMock()
	mock.ChatFunc = func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		if req.Model == "m1" {
			return nil, &APIError{StatusCode: 503, Message: "overloaded", Provider: "mock"}
		}
		return &ChatResponse{Message: NewAssistantMessage("from " + req.Model), Model: req.Model}, nil
	}

	c, _ := NewCascade(mock, []string{"m1", "m2", "m3"})
	resp, err := c.Chat(context.Background(), &ChatRequest{})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Message.Content != "from m2" {
		t.Errorf("Expected from m2, got %q", resp.Message.Content)
	}

	got := mock.Models()
	if len(got) != 2 || got[0] != "m1" || got[1] != "m2" {
		t.Errorf("Expected models [m1 m2], got %v", got)
	}
}

func TestCascadeAllModelsFail(t *testing.T) {
	mock := WithError(&APIError{StatusCode: 500, Message: "down", Provider: "mock"})
	c, _ := NewCascade(mock, []string{"m1", "m2"})

	_, err := c.Chat(context.Background(), &ChatRequest{})

	var cerr *CascadeError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected CascadeError, got %T", err)
	}
	if len(cerr.Errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(cerr.Errors))
	}
	if cerr.Fatal() {
		t.Error("Server errors must not make the cascade fatal")
	}
}

func TestCascadeFatalOnlyWhenEveryModelFatal(t *testing.T) {
	mock := NewMock()
	mock.ChatFunc = func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		if req.Model == "m1" {
			return nil, &APIError{StatusCode: 404, Message: "no such model"}
		}
		return nil, &APIError{StatusCode: 429, Message: "slow down"}
	}
	c, _ := NewCascade(mock, []string{"m1", "m2"})
	_, err := c.Chat(context.Background(), &ChatRequest{})

	var cerr *CascadeError
	if !errors.As(err, &cerr) || cerr.Fatal() {
		t.Errorf("Expected non-fatal cascade error, got %v", err)
	}

	allBad := WithError(WrapError("mock", &APIError{StatusCode: 401, Message: "bad key"}))
	c, _ = NewCascade(allBad, []string{"m1", "m2"})
	_, err = c.Chat(context.Background(), &ChatRequest{})
	if !errors.As(err, &cerr) || !cerr.Fatal() {
		t.Errorf("Expected fatal cascade error, got %v", err)
	}
}

func TestCascadeStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mock := NewMock()
	mock.ChatFunc = func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		cancel()
		return nil, ctx.Err()
	}

	c, _ := NewCascade(mock, []string{"m1", "m2", "m3"})
	_, err := c.Chat(ctx, &ChatRequest{})
	if err == nil {
		t.Fatal("Expected error")
	}
	if n := mock.CallCount("Chat"); n != 1 {
		t.Errorf("Expected 1 call after cancel, got %d", n)
	}
}

func TestCascadeDoesNotMutateRequest(t *testing.T) {
	c, _ := NewCascade(NewMock(), []string{"m1"})
	req := &ChatRequest{Model: "caller"}
	if _, err := c.Chat(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if req.Model != "caller" {
		t.Errorf("Request model mutated to %q", req.Model)
	}
}
