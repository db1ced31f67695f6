package validation

import (
	"errors"
	"testing"

	"github.com/hitoshi/feedic/internal/model"
)

// エラーコードを取り出すヘルパー。APIError以外はテスト失敗。
func apiErrorCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	return apiErr.Code
}

func TestValidate_ValidURL_ReturnsTrimmed(t *testing.T) {
	cleanURL, err := Validate("  https://a.com/f  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cleanURL != "https://a.com/f" {
		t.Errorf("cleanURL = %q, want %q", cleanURL, "https://a.com/f")
	}
}

func TestValidate_HTTPScheme_IsAllowed(t *testing.T) {
	cleanURL, err := Validate("http://example.com/rss.xml")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cleanURL != "http://example.com/rss.xml" {
		t.Errorf("cleanURL = %q, want %q", cleanURL, "http://example.com/rss.xml")
	}
}

func TestValidate_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		_, err := Validate(raw)
		if err == nil {
			t.Fatalf("Validate(%q): expected error, got nil", raw)
		}
		if code := apiErrorCode(t, err); code != model.ErrCodeEmptyInput {
			t.Errorf("Validate(%q): code = %q, want %q", raw, code, model.ErrCodeEmptyInput)
		}
	}
}

func TestValidate_MalformedURL(t *testing.T) {
	for _, raw := range []string{"not-a-url", "example.com/feed", "https://"} {
		_, err := Validate(raw)
		if err == nil {
			t.Fatalf("Validate(%q): expected error, got nil", raw)
		}
		if code := apiErrorCode(t, err); code != model.ErrCodeMalformedURL {
			t.Errorf("Validate(%q): code = %q, want %q", raw, code, model.ErrCodeMalformedURL)
		}
	}
}

func TestValidate_UnsupportedScheme(t *testing.T) {
	_, err := Validate("ftp://x.com")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if code := apiErrorCode(t, err); code != model.ErrCodeUnsupportedScheme {
		t.Errorf("code = %q, want %q", code, model.ErrCodeUnsupportedScheme)
	}
}

// 検証は副作用なしで決定的であること（同一入力で同一結果）。
func TestValidate_Deterministic(t *testing.T) {
	first, err1 := Validate(" https://a.com/f ")
	second, err2 := Validate(" https://a.com/f ")
	if err1 != nil || err2 != nil {
		t.Fatalf("expected no error, got %v / %v", err1, err2)
	}
	if first != second {
		t.Errorf("results differ: %q vs %q", first, second)
	}
}
