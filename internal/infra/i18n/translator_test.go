//go:build !integration

package i18n

import (
	"testing"
)

func TestTranslator(t *testing.T) {
	contentBytes := []byte("greeting: Hello\nwelcome_user: Hello %s\nprogress: \"%d of %d\"")

	translator, err := newTranslatorFromBytes(contentBytes)
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		got := translator.T("greeting")
		want := "Hello"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		got := translator.T("nonexistent_key")
		want := "nonexistent_key"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		got := translator.T("progress", 2, 5)
		want := "2 of 5"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})
}

func TestEmbeddedEnglishLocale(t *testing.T) {
	tr, err := NewTranslator(LocalesFS, "en")
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}
	for _, key := range []string{"welcome_message", "help_message", "error_generic", "default_reply", "prompt_video_selection"} {
		if !tr.Has(key) {
			t.Errorf("missing key %q", key)
		}
	}
}
