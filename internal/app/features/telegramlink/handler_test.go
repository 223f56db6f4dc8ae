package telegramlink_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clarityhealth/claritymdt/internal/app/features/telegramlink"
	userstore "github.com/clarityhealth/claritymdt/internal/app/store/users"
	"github.com/clarityhealth/claritymdt/internal/app/store/verifycodes"
	"github.com/clarityhealth/claritymdt/internal/app/system/auth"
	"github.com/clarityhealth/claritymdt/internal/app/system/httpjson"
	"github.com/clarityhealth/claritymdt/internal/app/system/linking"
	"github.com/clarityhealth/claritymdt/internal/app/system/telegram"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"github.com/clarityhealth/claritymdt/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type recordingSender struct {
	messages []sentMessage
}

type sentMessage struct {
	chatID int64
	text   string
}

func (s *recordingSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	s.messages = append(s.messages, sentMessage{chatID: chatID, text: text})
	return nil
}

const webhookSecret = "s3cret-path"

func newWebhookRouter(db *mongo.Database, sender telegram.Sender) (chi.Router, *userstore.Store, *verifycodes.Store) {
	log := zap.NewNop()
	users := userstore.New(db)
	codes := verifycodes.New(db, 10*time.Minute)
	linkSvc := linking.New(codes, users, sender, nil, log)
	messages := telegram.NewMessageHandler(sender, linkSvc, log)
	h := telegramlink.NewHandler(users, codes, linkSvc, messages, webhookSecret, "claritymdt_bot", nil, nil, log)

	r := chi.NewRouter()
	r.Mount("/telegram/webhook", telegramlink.WebhookRoutes(h))
	return r, users, codes
}

func postUpdate(t *testing.T, r chi.Router, secret string, chatID int64, text string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"update_id":1,"message":{"message_id":1,"chat":{"id":%d,"type":"private"},"text":%q}}`, chatID, text)
	req := httptest.NewRequest("POST", "/telegram/webhook/"+secret, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_LinksChatOnValidCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sender := &recordingSender{}
	r, users, codes := newWebhookRouter(db, sender)

	u := testutil.InsertUser(t, db, models.User{
		FullName: "Dr Chen", LoginID: "chen", Role: "specialist",
	})
	v, err := codes.Issue(ctx, u.ID, 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	chatID := int64(424242)
	rec := postUpdate(t, r, webhookSecret, chatID, v.Code)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	got, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TelegramChatID == nil || *got.TelegramChatID != chatID {
		t.Fatalf("chat id not linked: %+v", got.TelegramChatID)
	}
	if len(sender.messages) != 1 || sender.messages[0].chatID != chatID {
		t.Fatalf("expected one confirmation to chat %d, got %+v", chatID, sender.messages)
	}

	// The code is single use: replaying it reads as unrecognized.
	rec = postUpdate(t, r, webhookSecret, chatID, v.Code)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", rec.Code)
	}
	last := sender.messages[len(sender.messages)-1]
	if !strings.Contains(last.text, "not recognized") {
		t.Errorf("replay should be rejected, got reply %q", last.text)
	}
}

func TestWebhook_FreeTextGetsHelpAndChangesNothing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sender := &recordingSender{}
	r, users, _ := newWebhookRouter(db, sender)

	u := testutil.InsertUser(t, db, models.User{
		FullName: "Dr Okafor", LoginID: "okafor", Role: "specialist",
	})

	rec := postUpdate(t, r, webhookSecret, 555, "hello there")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(sender.messages) != 1 {
		t.Fatalf("expected one reply, got %d", len(sender.messages))
	}
	if !strings.Contains(sender.messages[0].text, "/help") {
		t.Errorf("free text should point at /help, got %q", sender.messages[0].text)
	}

	got, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TelegramChatID != nil {
		t.Errorf("free text must not link anything, got chat %d", *got.TelegramChatID)
	}
}

func TestWebhook_WrongSecretIs404(t *testing.T) {
	db := testutil.SetupTestDB(t)
	sender := &recordingSender{}
	r, _, _ := newWebhookRouter(db, sender)

	rec := postUpdate(t, r, "wrong-secret", 555, "ABCDEF01")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for bad secret, got %d", rec.Code)
	}
	if len(sender.messages) != 0 {
		t.Errorf("no replies expected for bad secret, got %+v", sender.messages)
	}
}

func newLinkRouter(db *mongo.Database, sender telegram.Sender) (chi.Router, *userstore.Store, *verifycodes.Store) {
	log := zap.NewNop()
	users := userstore.New(db)
	codes := verifycodes.New(db, 10*time.Minute)
	linkSvc := linking.New(codes, users, sender, nil, log)
	messages := telegram.NewMessageHandler(sender, linkSvc, log)
	h := telegramlink.NewHandler(users, codes, linkSvc, messages, webhookSecret, "claritymdt_bot", nil, nil, log)

	r := chi.NewRouter()
	r.Mount("/api/telegram", telegramlink.Routes(h))
	return r, users, codes
}

func postVerify(t *testing.T, r chi.Router, u models.User, code string, chatID int64) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"code":%q,"chat_id":%d}`, code, chatID)
	req := httptest.NewRequest("POST", "/api/telegram/verify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = auth.WithTestUser(req, &auth.SessionUser{ID: u.ID.Hex(), Role: u.Role})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httpjson.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad error JSON: %v (body %q)", err, rec.Body.String())
	}
	return body.Error.Code
}

func TestServeVerify_LinksWhenChatKnown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sender := &recordingSender{}
	r, users, codes := newLinkRouter(db, sender)

	u := testutil.InsertUser(t, db, models.User{
		FullName: "Dr Varga", LoginID: "varga", Role: "specialist",
	})
	v, err := codes.Issue(ctx, u.ID, 777)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	rec := postVerify(t, r, u, v.Code, 0)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}

	got, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TelegramChatID == nil || *got.TelegramChatID != 777 {
		t.Errorf("expected chat 777 linked, got %+v", got.TelegramChatID)
	}
}

func TestServeVerify_UnknownCodeIs400NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)

	sender := &recordingSender{}
	r, _, _ := newLinkRouter(db, sender)

	u := testutil.InsertUser(t, db, models.User{
		FullName: "Dr Moreau", LoginID: "moreau", Role: "specialist",
	})

	rec := postVerify(t, r, u, "DEADBEEF", 777)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown code, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != httpjson.CodeNotFound {
		t.Errorf("expected error code %s, got %s", httpjson.CodeNotFound, code)
	}
}

func TestServeVerify_AlreadyLinkedAccountIs400Conflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sender := &recordingSender{}
	r, users, codes := newLinkRouter(db, sender)

	existingChat := int64(4242)
	u := testutil.InsertUser(t, db, models.User{
		FullName: "Dr Silva", LoginID: "silva", Role: "coordinator",
		TelegramChatID: &existingChat,
	})
	v, err := codes.Issue(ctx, u.ID, 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// A linked account must unlink explicitly before verifying again;
	// the existing binding is never overwritten in passing.
	rec := postVerify(t, r, u, v.Code, 9999)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for already linked account, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != httpjson.CodeConflict {
		t.Errorf("expected error code %s, got %s", httpjson.CodeConflict, code)
	}

	got, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TelegramChatID == nil || *got.TelegramChatID != existingChat {
		t.Errorf("existing chat binding must survive, got %+v", got.TelegramChatID)
	}
}

func TestServeVerify_ChatHeldByAnotherAccountIs400Conflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sender := &recordingSender{}
	r, users, codes := newLinkRouter(db, sender)

	heldChat := int64(9000)
	testutil.InsertUser(t, db, models.User{
		FullName: "Dr Novak", LoginID: "novak", Role: "specialist",
		TelegramChatID: &heldChat,
	})
	caller := testutil.InsertUser(t, db, models.User{
		FullName: "Dr Reyes", LoginID: "reyes", Role: "specialist",
	})
	v, err := codes.Issue(ctx, caller.ID, heldChat)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	rec := postVerify(t, r, caller, v.Code, 0)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for chat held by another account, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != httpjson.CodeConflict {
		t.Errorf("expected error code %s, got %s", httpjson.CodeConflict, code)
	}

	got, err := users.GetByID(ctx, caller.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TelegramChatID != nil {
		t.Errorf("caller must stay unlinked, got chat %d", *got.TelegramChatID)
	}
}

func TestWebhook_StoredChatIdentityWins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sender := &recordingSender{}
	r, users, codes := newWebhookRouter(db, sender)

	u := testutil.InsertUser(t, db, models.User{
		FullName: "Dr Iqbal", LoginID: "iqbal", Role: "coordinator",
	})
	issuedChat := int64(1000)
	v, err := codes.Issue(ctx, u.ID, issuedChat)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// A forwarded code submitted from a different chat must still bind
	// the chat the code was issued for.
	rec := postUpdate(t, r, webhookSecret, 2000, v.Code)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	got, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TelegramChatID == nil || *got.TelegramChatID != issuedChat {
		t.Errorf("expected issued chat %d to win, got %+v", issuedChat, got.TelegramChatID)
	}
}
