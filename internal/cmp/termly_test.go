package cmp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// TestTermlyDetect tests embed banner fingerprint detection.
func TestTermlyDetect(t *testing.T) {
	t.Parallel()

	adapter := NewTermly(nil)

	tests := []struct {
		name        string
		html        string
		wantPresent bool
		wantValue   string
		wantErr     error
	}{
		{
			name: "embed script with id attribute",
			html: fmt.Sprintf(
				`<html><head><script src="https://app.termly.io/embed.min.js" id=%q></script></head></html>`,
				testUUID),
			wantPresent: true,
			wantValue:   testUUID,
		},
		{
			name: "embed script with data-website-uuid attribute",
			html: fmt.Sprintf(
				`<html><head><script src="https://app.termly.io/embed.min.js" data-website-uuid=%q></script></head></html>`,
				testUUID),
			wantPresent: true,
			wantValue:   testUUID,
		},
		{
			name: "data-name marker without src",
			html: fmt.Sprintf(
				`<html><head><script data-name="termly-embed-banner" id=%q></script></head></html>`,
				testUUID),
			wantPresent: true,
			wantValue:   testUUID,
		},
		{
			name:        "embed script without uuid",
			html:        `<html><head><script src="https://app.termly.io/embed.min.js"></script></head></html>`,
			wantPresent: true,
			wantErr:     ErrNoIdentifier,
		},
		{
			name:        "no fingerprint",
			html:        `<html><head><script src="https://example.com/app.js"></script></head></html>`,
			wantPresent: false,
		},
		{
			name: "termly URL on a different path ignored",
			html: fmt.Sprintf(
				`<html><head><script src="https://app.termly.io/other.js" id=%q></script></head></html>`,
				testUUID),
			wantPresent: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page := &fakePage{url: "http://example.com", html: tt.html}
			id, present, err := adapter.Detect(context.Background(), page)

			if present != tt.wantPresent {
				t.Fatalf("expected present=%v, got %v (err=%v)", tt.wantPresent, present, err)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantPresent && id.Value != tt.wantValue {
				t.Errorf("expected uuid %q, got %q", tt.wantValue, id.Value)
			}
		})
	}
}

// TestTermlyBuildFetchRequests tests the website snippet request.
func TestTermlyBuildFetchRequests(t *testing.T) {
	t.Parallel()

	adapter := NewTermly(nil)

	t.Run("website snippet URL", func(t *testing.T) {
		t.Parallel()

		specs, err := adapter.BuildFetchRequests(&model.Identifier{CMP: model.CMPTermly, Value: testUUID})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(specs) != 1 {
			t.Fatalf("expected 1 spec, got %d", len(specs))
		}
		wantURL := termlyAPIBase + testUUID
		if specs[0].URL != wantURL {
			t.Errorf("expected URL %q, got %q", wantURL, specs[0].URL)
		}
	})

	t.Run("empty identifier rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := adapter.BuildFetchRequests(&model.Identifier{}); !errors.Is(err, ErrNoIdentifier) {
			t.Errorf("expected ErrNoIdentifier, got %v", err)
		}
	})
}

// TestTermlyFollowups tests cookie policy document resolution.
func TestTermlyFollowups(t *testing.T) {
	t.Parallel()

	adapter := NewTermly(nil)
	id := &model.Identifier{CMP: model.CMPTermly, Value: testUUID}

	t.Run("cookie policy document resolved", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{"documents": [
			{"uuid": "doc-privacy", "name": "Privacy Policy"},
			{"uuid": "doc-cookie", "name": "Cookie Policy"}
		]}`)

		specs, err := adapter.Followups(id, Payload{
			Spec: RequestSpec{Variant: variantTermlyWebsite},
			Body: body,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(specs) != 1 {
			t.Fatalf("expected 1 followup, got %d", len(specs))
		}
		wantURL := termlyAPIBase + testUUID + "/documents/doc-cookie/cookies"
		if specs[0].URL != wantURL {
			t.Errorf("expected URL %q, got %q", wantURL, specs[0].URL)
		}
	})

	t.Run("missing cookie policy rejected", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{"documents": [{"uuid": "doc-privacy", "name": "Privacy Policy"}]}`)
		_, err := adapter.Followups(id, Payload{
			Spec: RequestSpec{Variant: variantTermlyWebsite},
			Body: body,
		})
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("cookie listing payload is final", func(t *testing.T) {
		t.Parallel()

		specs, err := adapter.Followups(id, Payload{
			Spec: RequestSpec{Variant: variantTermlyCookies},
			Body: []byte(`{}`),
		})
		if err != nil || specs != nil {
			t.Errorf("expected final payload, got specs=%v err=%v", specs, err)
		}
	})
}

// TestTermlyParsePayload tests the cookie listing parser.
func TestTermlyParsePayload(t *testing.T) {
	t.Parallel()

	adapter := NewTermly(nil)
	listingSpec := RequestSpec{Variant: variantTermlyCookies}

	t.Run("cookies keyed by category slug", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{"cookies": {
			"essential": [{"name": "sid", "domain": "example.com", "en_us": "Session", "tracker_type": "http_cookie"}],
			"analytics": [{"name": "_ga", "domain": ".example.com", "en_us": "Counts visits", "tracker_type": "http_cookie"}]
		}}`)

		cookies, err := adapter.ParsePayload(Payload{Spec: listingSpec, Body: body})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cookies) != 2 {
			t.Fatalf("expected 2 cookies, got %d", len(cookies))
		}

		byName := make(map[string]model.RawCookie)
		for _, c := range cookies {
			byName[c.Name] = c
		}
		if c := byName["sid"]; c.CategoryName != "essential" || c.Purpose != "Session" || c.Type != "http_cookie" {
			t.Errorf("unexpected essential cookie %+v", c)
		}
		if c := byName["_ga"]; c.CategoryName != "analytics" || c.Domain != ".example.com" {
			t.Errorf("unexpected analytics cookie %+v", c)
		}
	})

	t.Run("zero declared cookies is a valid empty result", func(t *testing.T) {
		t.Parallel()

		cookies, err := adapter.ParsePayload(Payload{Spec: listingSpec, Body: []byte(`{"cookies": {}}`)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cookies) != 0 {
			t.Errorf("expected no cookies, got %d", len(cookies))
		}
	})

	t.Run("missing cookies key rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := adapter.ParsePayload(Payload{Spec: listingSpec, Body: []byte(`{"name": "example"}`)}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid JSON rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := adapter.ParsePayload(Payload{Spec: listingSpec, Body: []byte("<html>")}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("website snippet payload yields nothing", func(t *testing.T) {
		t.Parallel()

		cookies, err := adapter.ParsePayload(Payload{
			Spec: RequestSpec{Variant: variantTermlyWebsite},
			Body: []byte(`{"documents": []}`),
		})
		if err != nil || cookies != nil {
			t.Errorf("expected empty result, got cookies=%v err=%v", cookies, err)
		}
	})
}
