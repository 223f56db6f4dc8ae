package telegram_test

import (
	"context"
	"strings"
	"testing"

	"github.com/clarityhealth/claritymdt/internal/app/system/linking"
	"github.com/clarityhealth/claritymdt/internal/app/system/telegram"
	"go.uber.org/zap"
)

type fakeSender struct {
	replies []string
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.replies = append(f.replies, text)
	return nil
}

type fakeLinker struct {
	err      error
	gotCode  string
	gotChat  int64
	attempts int
}

func (f *fakeLinker) Link(ctx context.Context, code string, chatID int64) (linking.CommitResult, error) {
	f.attempts++
	f.gotCode = code
	f.gotChat = chatID
	return linking.CommitResult{ChatID: chatID}, f.err
}

func TestLooksLikeCode(t *testing.T) {
	valid := []string{"ABCDEF01", "abcdef01", " DEADBEEF ", "00000000"}
	for _, s := range valid {
		if !telegram.LooksLikeCode(s) {
			t.Errorf("expected %q to look like a code", s)
		}
	}
	invalid := []string{"", "/start", "hello", "ABCDEFG1", "ABCDEF012", "ABC DEF0"}
	for _, s := range invalid {
		if telegram.LooksLikeCode(s) {
			t.Errorf("expected %q to not look like a code", s)
		}
	}
}

func TestHandle_HelpCommands(t *testing.T) {
	for _, cmd := range []string{"/start", "/help"} {
		sender := &fakeSender{}
		linker := &fakeLinker{}
		h := telegram.NewMessageHandler(sender, linker, zap.NewNop())

		h.Handle(context.Background(), 100, cmd)

		if linker.attempts != 0 {
			t.Errorf("%s should not attempt a link", cmd)
		}
		if len(sender.replies) != 1 || !strings.Contains(sender.replies[0], "verification code") {
			t.Errorf("%s reply wrong: %v", cmd, sender.replies)
		}
	}
}

func TestHandle_CodeIsTrimmedAndUppercased(t *testing.T) {
	sender := &fakeSender{}
	linker := &fakeLinker{}
	h := telegram.NewMessageHandler(sender, linker, zap.NewNop())

	h.Handle(context.Background(), 42, "  abcdef01 ")

	if linker.attempts != 1 {
		t.Fatal("expected a link attempt")
	}
	if linker.gotCode != "abcdef01" && linker.gotCode != "ABCDEF01" {
		t.Errorf("unexpected code passed to linker: %q", linker.gotCode)
	}
	if linker.gotChat != 42 {
		t.Errorf("chat id: got %d", linker.gotChat)
	}
	// On success the linking service confirms; the handler stays quiet.
	if len(sender.replies) != 0 {
		t.Errorf("no handler reply expected on success, got %v", sender.replies)
	}
}

func TestHandle_ErrorReplies(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{linking.ErrCodeNotFound, "not recognized"},
		{linking.ErrCodeExpired, "expired"},
		{linking.ErrChatAlreadyLinked, "already linked"},
	}
	for _, tt := range tests {
		sender := &fakeSender{}
		h := telegram.NewMessageHandler(sender, &fakeLinker{err: tt.err}, zap.NewNop())

		h.Handle(context.Background(), 7, "ABCDEF01")

		if len(sender.replies) != 1 || !strings.Contains(sender.replies[0], tt.want) {
			t.Errorf("error %v: reply %v should mention %q", tt.err, sender.replies, tt.want)
		}
	}
}

func TestHandle_UnrecognizedTextGetsHint(t *testing.T) {
	sender := &fakeSender{}
	linker := &fakeLinker{}
	h := telegram.NewMessageHandler(sender, linker, zap.NewNop())

	h.Handle(context.Background(), 9, "what is this bot")

	if linker.attempts != 0 {
		t.Error("free text should not attempt a link")
	}
	if len(sender.replies) != 1 || !strings.Contains(sender.replies[0], "/help") {
		t.Errorf("hint reply wrong: %v", sender.replies)
	}
}
