package httpjson_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clarityhealth/claritymdt/internal/app/system/httpjson"
)

func TestDecode_ValidBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"code":"ABCD1234"}`))
	rec := httptest.NewRecorder()

	var body struct {
		Code string `json:"code"`
	}
	if err := httpjson.Decode(rec, req, &body); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if body.Code != "ABCD1234" {
		t.Errorf("expected code ABCD1234, got %q", body.Code)
	}
}

func TestDecode_TrailingGarbage(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"a":1}{"b":2}`))
	rec := httptest.NewRecorder()

	var body struct{}
	if err := httpjson.Decode(rec, req, &body); err == nil {
		t.Error("expected error for trailing garbage")
	}
}

func TestDecode_Malformed(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()

	var body struct{}
	if err := httpjson.Decode(rec, req, &body); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestWriteError_Shape(t *testing.T) {
	rec := httptest.NewRecorder()
	httpjson.WriteError(rec, 400, httpjson.CodeExpired, "code expired")

	if rec.Code != 400 {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}

	var body httpjson.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Error.Code != httpjson.CodeExpired {
		t.Errorf("code: got %q, want %q", body.Error.Code, httpjson.CodeExpired)
	}
	if body.Error.Message != "code expired" {
		t.Errorf("message: got %q", body.Error.Message)
	}
}

func TestUnauthorized(t *testing.T) {
	rec := httptest.NewRecorder()
	httpjson.Unauthorized(rec)
	if rec.Code != 401 {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
	var body httpjson.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Error.Code != httpjson.CodeUnauthorized {
		t.Errorf("code: got %q", body.Error.Code)
	}
}
