package translate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/user/newshound/internal/types"
	"github.com/user/newshound/pkg/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockProvider satisfies llm.Provider with a canned function.
type mockProvider struct {
	completeFunc func(ctx context.Context, messages []llm.Message) (*llm.Response, error)
}

func (m *mockProvider) Complete(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	return m.completeFunc(ctx, messages)
}

func TestTranslate_RewritesInPlace(t *testing.T) {
	provider := &mockProvider{
		completeFunc: func(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
			return &llm.Response{Content: "```json\n{\"title\":\"RBI announces new rules\",\"content\":\"The central bank said today.\"}\n```"}, nil
		},
	}
	tr := NewLLMTranslator(provider, time.Second, testLogger())

	a := &types.Article{
		ID:       types.NewArticleID(),
		Title:    "आरबीआई ने नए नियमों की घोषणा की",
		Content:  "केंद्रीय बैंक ने आज कहा।",
		Language: "hi",
	}
	if err := tr.Translate(context.Background(), a); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if a.Title != "RBI announces new rules" {
		t.Errorf("Title = %q", a.Title)
	}
	if a.Content != "The central bank said today." {
		t.Errorf("Content = %q", a.Content)
	}
	if !a.WasTranslated {
		t.Error("WasTranslated must be set")
	}
	if a.Language != "hi" {
		t.Errorf("Language = %q, original language tag must survive", a.Language)
	}
}

func TestTranslate_EnglishPassesThrough(t *testing.T) {
	provider := &mockProvider{
		completeFunc: func(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
			t.Error("provider must not be called for English articles")
			return nil, nil
		},
	}
	tr := NewLLMTranslator(provider, time.Second, testLogger())

	a := &types.Article{Title: "Plain English", Language: "en"}
	if err := tr.Translate(context.Background(), a); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if a.WasTranslated {
		t.Error("English article must not be marked translated")
	}
}

func TestTranslate_ProviderFailure(t *testing.T) {
	provider := &mockProvider{
		completeFunc: func(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
			return nil, errors.New("boom")
		},
	}
	tr := NewLLMTranslator(provider, time.Second, testLogger())

	a := &types.Article{Title: "शीर्षक", Content: "सामग्री", Language: "hi"}
	err := tr.Translate(context.Background(), a)
	if !errors.Is(err, types.ErrTranslationFailed) {
		t.Errorf("error = %v, want ErrTranslationFailed", err)
	}
	if a.Title != "शीर्षक" || a.WasTranslated {
		t.Error("failed translation must leave the article as fetched")
	}
}

func TestTranslate_GarbageReply(t *testing.T) {
	provider := &mockProvider{
		completeFunc: func(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
			return &llm.Response{Content: "I am sorry, I cannot translate this."}, nil
		},
	}
	tr := NewLLMTranslator(provider, time.Second, testLogger())

	a := &types.Article{Title: "शीर्षक", Language: "hi"}
	if err := tr.Translate(context.Background(), a); !errors.Is(err, types.ErrTranslationFailed) {
		t.Errorf("error = %v, want ErrTranslationFailed", err)
	}
}

func TestNoop(t *testing.T) {
	a := &types.Article{Title: "शीर्षक", Language: "hi"}
	if err := (Noop{}).Translate(context.Background(), a); err != nil {
		t.Fatalf("Noop.Translate() error = %v", err)
	}
	if a.WasTranslated || a.Title != "शीर्षक" {
		t.Error("Noop must not modify the article")
	}
}
