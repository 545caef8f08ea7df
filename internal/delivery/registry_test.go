package delivery

import (
	"context"
	"errors"
	"testing"

	"github.com/user/newshound/internal/types"
)

func TestRegistrySend(t *testing.T) {
	reg := NewRegistry()

	var gotChat types.ChatID
	var gotHTML string
	reg.Register("telegram", func(ctx context.Context, chat types.ChatID, html string) error {
		gotChat = chat
		gotHTML = html
		return nil
	})

	err := reg.Send(context.Background(), types.ChatID(42), "<b>hello</b>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotChat != types.ChatID(42) {
		t.Errorf("expected chat 42, got %d", gotChat)
	}
	if gotHTML != "<b>hello</b>" {
		t.Errorf("expected message %q, got %q", "<b>hello</b>", gotHTML)
	}
}

func TestRegistryNoChannels(t *testing.T) {
	reg := NewRegistry()

	err := reg.Send(context.Background(), types.ChatID(42), "hello")
	if err == nil {
		t.Fatal("expected error with no registered channels, got nil")
	}
}

func TestRegistryFansOutToAllChannels(t *testing.T) {
	reg := NewRegistry()

	var telegramCalls, webhookCalls int
	reg.Register("telegram", func(ctx context.Context, chat types.ChatID, html string) error {
		telegramCalls++
		return nil
	})
	reg.Register("webhook", func(ctx context.Context, chat types.ChatID, html string) error {
		webhookCalls++
		return nil
	})

	if err := reg.Send(context.Background(), types.ChatID(7), "digest"); err != nil {
		t.Fatalf("send error: %v", err)
	}

	if telegramCalls != 1 {
		t.Errorf("expected 1 telegram call, got %d", telegramCalls)
	}
	if webhookCalls != 1 {
		t.Errorf("expected 1 webhook call, got %d", webhookCalls)
	}
}

func TestRegistryAttemptsEveryChannelOnFailure(t *testing.T) {
	reg := NewRegistry()

	failure := errors.New("rate limited")
	var laterCalled bool
	reg.Register("a-failing", func(ctx context.Context, chat types.ChatID, html string) error {
		return failure
	})
	reg.Register("b-working", func(ctx context.Context, chat types.ChatID, html string) error {
		laterCalled = true
		return nil
	})

	err := reg.Send(context.Background(), types.ChatID(7), "digest")
	if !errors.Is(err, failure) {
		t.Fatalf("error = %v, want the failing channel's error", err)
	}
	if !laterCalled {
		t.Error("later channel skipped after earlier failure")
	}
}

func TestRegistryChannels(t *testing.T) {
	reg := NewRegistry()
	reg.Register("webhook", func(ctx context.Context, chat types.ChatID, html string) error { return nil })
	reg.Register("telegram", func(ctx context.Context, chat types.ChatID, html string) error { return nil })

	got := reg.Channels()
	if len(got) != 2 || got[0] != "telegram" || got[1] != "webhook" {
		t.Fatalf("Channels() = %v, want [telegram webhook]", got)
	}
}
