package cmp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

const (
	variantTermlyWebsite = "termly_website"
	variantTermlyCookies = "termly_cookies"

	termlyAPIBase = "https://app.termly.io/api/v1/snippets/websites/"
)

// termlyEmbedPattern matches the Termly embed banner script source.
var termlyEmbedPattern = regexp.MustCompile(`^https://app\.termly\.io/embed\.min\.js`)

// Termly is the adapter for the Termly consent platform. The cookie
// declarations are not embedded in the page; they are retrieved from the
// Termly API in two steps, first resolving the website snippet to its
// cookie policy document, then reading that document's cookie listing.
type Termly struct {
	logger *slog.Logger
}

// NewTermly creates the Termly adapter.
func NewTermly(logger *slog.Logger) *Termly {
	if logger == nil {
		logger = slog.Default()
	}
	return &Termly{logger: logger}
}

// CMP returns the platform identity.
func (a *Termly) CMP() model.CMP {
	return model.CMPTermly
}

// Detect looks for a script tag carrying either the embed.min.js source
// or the data-name="termly-embed-banner" marker, then reads the website
// UUID from the tag's id or data-website-uuid attribute.
func (a *Termly) Detect(_ context.Context, page RenderedPage) (*model.Identifier, bool, error) {
	doc, err := page.Document()
	if err != nil {
		return nil, false, err
	}

	present := false
	uuid := ""
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found := false
		if src, ok := s.Attr("src"); ok && termlyEmbedPattern.MatchString(src) {
			found = true
		} else if name, ok := s.Attr("data-name"); ok && name == "termly-embed-banner" {
			found = true
		}
		if !found {
			return true
		}
		present = true

		if v, ok := s.Attr("id"); ok && uuidOnlyPattern.MatchString(v) {
			uuid = v
			return false
		}
		if v, ok := s.Attr("data-website-uuid"); ok && uuidOnlyPattern.MatchString(v) {
			uuid = v
			return false
		}
		a.logger.Warn("termly embed script tag carries no website UUID")
		return true
	})

	if !present {
		return nil, false, nil
	}
	if uuid == "" {
		return nil, true, ErrNoIdentifier
	}
	return &model.Identifier{CMP: model.CMPTermly, Value: uuid}, true, nil
}

// BuildFetchRequests starts the two-step API walk with the website
// snippet document.
func (a *Termly) BuildFetchRequests(id *model.Identifier) ([]RequestSpec, error) {
	if id.Value == "" {
		return nil, ErrNoIdentifier
	}
	return []RequestSpec{{
		Variant: variantTermlyWebsite,
		Mode:    ModeHTTP,
		URL:     termlyAPIBase + id.Value,
	}}, nil
}

type termlyDocument struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

type termlyWebsite struct {
	Documents []termlyDocument `json:"documents"`
}

// Followups resolves the website snippet into the cookie listing request
// by locating the Cookie Policy document.
func (a *Termly) Followups(id *model.Identifier, payload Payload) ([]RequestSpec, error) {
	if payload.Spec.Variant != variantTermlyWebsite {
		return nil, nil
	}

	var site termlyWebsite
	if err := json.Unmarshal(payload.Body, &site); err != nil {
		return nil, fmt.Errorf("failed to decode website snippet: %w", err)
	}
	for _, doc := range site.Documents {
		if doc.Name == "Cookie Policy" && doc.UUID != "" {
			return []RequestSpec{{
				Variant: variantTermlyCookies,
				Mode:    ModeHTTP,
				URL:     termlyAPIBase + id.Value + "/documents/" + doc.UUID + "/cookies",
			}}, nil
		}
	}
	return nil, fmt.Errorf("website snippet has no cookie policy document")
}

type termlyCookie struct {
	Name    string `json:"name"`
	Domain  string `json:"domain"`
	Purpose string `json:"en_us"`
	Tracker string `json:"tracker_type"`
}

type termlyCookieListing struct {
	// Cookies is keyed by category slug. The pointer distinguishes a
	// response without the key (malformed) from one declaring zero
	// cookies, which is a valid empty result.
	Cookies *map[string][]termlyCookie `json:"cookies"`
}

// ParsePayload reads the cookie listing, keyed by category slug. The
// website snippet document itself yields no cookies. A listing with an
// empty cookies object declares zero cookies and parses cleanly.
func (a *Termly) ParsePayload(payload Payload) ([]model.RawCookie, error) {
	if payload.Spec.Variant != variantTermlyCookies {
		return nil, nil
	}

	var listing termlyCookieListing
	if err := json.Unmarshal(payload.Body, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode cookie listing: %w", err)
	}
	if listing.Cookies == nil {
		return nil, fmt.Errorf("cookie listing has no cookies key")
	}

	var cookies []model.RawCookie
	for slug, entries := range *listing.Cookies {
		for _, c := range entries {
			cookies = append(cookies, model.RawCookie{
				Name:         c.Name,
				Domain:       c.Domain,
				Purpose:      c.Purpose,
				Type:         c.Tracker,
				CategoryName: slug,
			})
		}
	}
	return cookies, nil
}
