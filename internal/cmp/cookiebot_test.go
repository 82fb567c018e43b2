package cmp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/classify"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// TestCookiebotDetect tests the three cbid fingerprint variants.
func TestCookiebotDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		html        string
		wantPresent bool
		wantValue   string
		wantReferer string
	}{
		{
			name: "data-cbid attribute",
			html: fmt.Sprintf(
				`<html><head><script src="https://consent.cookiebot.com/uc.js" data-cbid=%q></script></head></html>`,
				testUUID),
			wantPresent: true,
			wantValue:   testUUID,
			wantReferer: "http://example.com",
		},
		{
			name: "cc.js script URL",
			html: fmt.Sprintf(
				`<html><head><script src="https://consent.cookiebot.com/%s/cc.js"></script></head></html>`,
				testUUID),
			wantPresent: true,
			wantValue:   testUUID,
			wantReferer: "http://example.com",
		},
		{
			name: "cbid query parameter",
			html: fmt.Sprintf(
				`<html><head><script src="https://consent.cookiebot.com/uc.js?cbid=%s"></script></head></html>`,
				testUUID),
			wantPresent: true,
			wantValue:   testUUID,
			wantReferer: "http://example.com",
		},
		{
			name: "explicit referer in cc.js URL",
			html: fmt.Sprintf(
				`<html><head><script src="https://consent.cookiebot.com/%s/cc.js?referer=www.shop.example&dnt=1"></script></head></html>`,
				testUUID),
			wantPresent: true,
			wantValue:   testUUID,
			wantReferer: "www.shop.example",
		},
		{
			name:        "no fingerprint",
			html:        `<html><head><script src="https://example.com/app.js"></script></head></html>`,
			wantPresent: false,
		},
		{
			name: "data-cbid with invalid uuid ignored",
			html: `<html><head><script src="https://consent.cookiebot.com/uc.js" data-cbid="not-a-uuid"></script></head></html>`,
			// The cc.js URL is absent too, so there is nothing to extract.
			wantPresent: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			adapter := NewCookiebot(nil)
			page := &fakePage{url: "http://example.com", html: tt.html}

			id, present, err := adapter.Detect(context.Background(), page)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if present != tt.wantPresent {
				t.Fatalf("expected present=%v, got %v", tt.wantPresent, present)
			}
			if !tt.wantPresent {
				return
			}
			if id.Value != tt.wantValue {
				t.Errorf("expected cbid %q, got %q", tt.wantValue, id.Value)
			}
			if id.Referer != tt.wantReferer {
				t.Errorf("expected referer %q, got %q", tt.wantReferer, id.Referer)
			}
			if id.PageURL != "http://example.com" {
				t.Errorf("expected visited page URL, got %q", id.PageURL)
			}
			if id.CMP != model.CMPCookiebot {
				t.Errorf("expected cookiebot identity, got %s", id.CMP)
			}
		})
	}
}

// TestCookiebotBuildFetchRequests tests cc.js request construction.
func TestCookiebotBuildFetchRequests(t *testing.T) {
	t.Parallel()

	adapter := NewCookiebot(nil)

	t.Run("builds cc.js request with referer", func(t *testing.T) {
		t.Parallel()

		specs, err := adapter.BuildFetchRequests(&model.Identifier{
			CMP:     model.CMPCookiebot,
			Value:   testUUID,
			Referer: "www.example.com",
			PageURL: "http://example.com",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(specs) != 1 {
			t.Fatalf("expected 1 spec, got %d", len(specs))
		}

		wantURL := fmt.Sprintf("https://consent.cookiebot.com/%s/cc.js?referer=www.example.com", testUUID)
		if specs[0].URL != wantURL {
			t.Errorf("expected URL %q, got %q", wantURL, specs[0].URL)
		}
		if specs[0].Mode != ModeHTTP {
			t.Error("expected HTTP mode")
		}
		// The query argument carries the discovered referer; the header
		// carries the visited page URL.
		if specs[0].Referer != "http://example.com" {
			t.Errorf("expected page URL as referer header, got %q", specs[0].Referer)
		}
	})

	t.Run("empty identifier rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := adapter.BuildFetchRequests(&model.Identifier{}); !errors.Is(err, ErrNoIdentifier) {
			t.Errorf("expected ErrNoIdentifier, got %v", err)
		}
	})
}

// ccJSFixture builds a minimal cc.js response with the given category
// table statements.
func ccJSFixture(tables ...string) []byte {
	script := "var CookieConsentDialog = {};\n"
	for _, table := range tables {
		script += table + "\n"
	}
	return []byte(script)
}

// TestCookiebotParsePayload tests category table extraction from cc.js.
func TestCookiebotParsePayload(t *testing.T) {
	t.Parallel()

	adapter := NewCookiebot(nil)
	spec := RequestSpec{Variant: variantCookiebotCC, Mode: ModeHTTP}

	t.Run("parses all declared tables", func(t *testing.T) {
		t.Parallel()

		body := ccJSFixture(
			`CookieConsentDialog.cookieTableNecessary = [["sid", "example.com", "Keeps the session alive", "1 day", "first", "HTTP Cookie"]];`,
			`CookieConsentDialog.cookieTableStatistics = [["_ga", ".example.com", "Counts visits", "2 years", "third", "HTTP Cookie"], ["_gid", ".example.com", "Counts visits", "1 day", "third", "HTTP Cookie"]];`,
			`CookieConsentDialog.cookieTableUnclassified = [];`,
		)

		cookies, err := adapter.ParsePayload(Payload{Spec: spec, Body: body})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cookies) != 3 {
			t.Fatalf("expected 3 cookies, got %d", len(cookies))
		}

		first := cookies[0]
		if first.Name != "sid" || first.Domain != "example.com" {
			t.Errorf("unexpected first cookie: %+v", first)
		}
		if first.CategoryName != "Necessary" {
			t.Errorf("expected native label 'Necessary', got %q", first.CategoryName)
		}
		if first.Purpose != "Keeps the session alive" {
			t.Errorf("unexpected purpose %q", first.Purpose)
		}
		if first.Type != "HTTP Cookie" {
			t.Errorf("unexpected type %q", first.Type)
		}
		if cookies[1].CategoryName != "Statistics" || cookies[2].CategoryName != "Statistics" {
			t.Error("expected statistics cookies to carry the Statistics label")
		}
	})

	t.Run("out-of-region response is a fetch failure", func(t *testing.T) {
		t.Parallel()

		body := []byte("CookieConsent.setOutOfRegion();")
		_, err := adapter.ParsePayload(Payload{Spec: spec, Body: body})
		if err == nil {
			t.Fatal("expected error")
		}
		ev := classify.Classify(classify.StageParse, "http://example.com", err)
		if ev.Kind != classify.KindRemoteFetch {
			t.Errorf("expected remote fetch kind, got %s", ev.Kind)
		}
	})

	t.Run("domain warning response is a fetch failure", func(t *testing.T) {
		t.Parallel()

		body := []byte("cookiedomainwarning='Error: www.example.com is not a valid domain.';")
		_, err := adapter.ParsePayload(Payload{Spec: spec, Body: body})
		if err == nil {
			t.Fatal("expected error")
		}
		ev := classify.Classify(classify.StageParse, "http://example.com", err)
		if ev.Kind != classify.KindRemoteFetch {
			t.Errorf("expected remote fetch kind, got %s", ev.Kind)
		}
	})

	t.Run("response without tables is a valid empty result", func(t *testing.T) {
		t.Parallel()

		cookies, err := adapter.ParsePayload(Payload{Spec: spec, Body: []byte("var x = 1;")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cookies) != 0 {
			t.Errorf("expected no cookies, got %d", len(cookies))
		}
	})

	t.Run("empty tables yield empty result", func(t *testing.T) {
		t.Parallel()

		body := ccJSFixture(`CookieConsentDialog.cookieTableNecessary = [];`)
		cookies, err := adapter.ParsePayload(Payload{Spec: spec, Body: body})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cookies) != 0 {
			t.Errorf("expected no cookies, got %d", len(cookies))
		}
	})
}
