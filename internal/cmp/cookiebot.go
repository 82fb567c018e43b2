package cmp

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/classify"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/jsliteral"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// variantCookiebotCC tags the single Cookiebot retrieval variant: the
// cc.js script hosted on the consent CDN.
const variantCookiebotCC = "cookiebot_cc"

// Cookiebot embeds its account id ("cbid") in the page three ways: as a
// data-cbid script attribute, inside the cc.js script URL, or as a cbid
// query parameter.
var (
	cookiebotScriptURLPattern = regexp.MustCompile(`https://consent\.cookiebot\.com/(` + uuidPattern.String() + `)/cc\.js`)
	cookiebotCbidParamPattern = regexp.MustCompile(`[&?]cbid=(` + uuidPattern.String() + `)`)
)

// Responses from the consent CDN that look well-formed but carry no data.
var (
	cookiebotOutOfRegion   = "CookieConsent.setOutOfRegion"
	cookiebotDomainWarning = regexp.MustCompile(`cookiedomainwarning='Error: .* is not a valid domain\.`)
)

// cookiebotTables maps each category table assignment in cc.js to the
// native category label it declares.
var cookiebotTables = []struct {
	label   string
	pattern *regexp.Regexp
}{
	{"Necessary", regexp.MustCompile(`CookieConsentDialog\.cookieTableNecessary = (.*);`)},
	{"Preference", regexp.MustCompile(`CookieConsentDialog\.cookieTablePreference = (.*);`)},
	{"Statistics", regexp.MustCompile(`CookieConsentDialog\.cookieTableStatistics = (.*);`)},
	{"Advertising", regexp.MustCompile(`CookieConsentDialog\.cookieTableAdvertising = (.*);`)},
	{"Unclassified", regexp.MustCompile(`CookieConsentDialog\.cookieTableUnclassified = (.*);`)},
}

// Cookiebot is the adapter for the Cookiebot platform. The declarations
// live in a script (cc.js) on consent.cookiebot.com, keyed by the account
// id, as nested array literals.
type Cookiebot struct {
	logger *slog.Logger
}

// NewCookiebot creates the Cookiebot adapter.
func NewCookiebot(logger *slog.Logger) *Cookiebot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cookiebot{logger: logger}
}

// CMP returns the platform identity.
func (a *Cookiebot) CMP() model.CMP {
	return model.CMPCookiebot
}

// Detect looks for the cbid fingerprint on the rendered page.
func (a *Cookiebot) Detect(_ context.Context, page RenderedPage) (*model.Identifier, bool, error) {
	cbid, err := a.findCbid(page)
	if err != nil {
		return nil, false, err
	}
	if cbid == "" {
		return nil, false, nil
	}

	html, err := page.HTML()
	if err != nil {
		return nil, true, fmt.Errorf("failed to read page for referer discovery: %w", err)
	}

	return &model.Identifier{
		CMP:     model.CMPCookiebot,
		Value:   cbid,
		Referer: findCookiebotReferer(html, cbid, page.URL()),
		PageURL: page.URL(),
	}, true, nil
}

// findCbid tries the three cbid variants in order: the data-cbid script
// attribute, the cc.js URL, and the cbid query parameter.
func (a *Cookiebot) findCbid(page RenderedPage) (string, error) {
	doc, err := page.Document()
	if err != nil {
		return "", err
	}

	var cbid string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("data-cbid"); ok && uuidOnlyPattern.MatchString(v) {
			cbid = v
			return false
		}
		return true
	})
	if cbid != "" {
		return cbid, nil
	}

	html, err := page.HTML()
	if err != nil {
		return "", err
	}
	if m := cookiebotScriptURLPattern.FindStringSubmatch(html); m != nil {
		return m[1], nil
	}
	if m := cookiebotCbidParamPattern.FindStringSubmatch(html); m != nil {
		return m[1], nil
	}
	return "", nil
}

// findCookiebotReferer extracts the referer the CDN expects. The cc.js
// URL on the page may carry an explicit referer argument that differs
// from the visited site; without it the CDN answers with a domain
// warning. Falls back to the page URL.
func findCookiebotReferer(html, cbid, fallback string) string {
	pattern := regexp.MustCompile(
		`https://consent\.cookiebot\.com/` + regexp.QuoteMeta(cbid) + `/cc\.js[^"'\s]*?(\?|&amp;|&)referer=(.*?)&`)
	if m := pattern.FindStringSubmatch(html); m != nil {
		return m[2]
	}
	return fallback
}

// BuildFetchRequests derives the cc.js request from the cbid. The
// discovered referer goes into the query argument; the Referer header
// carries the visited page URL.
func (a *Cookiebot) BuildFetchRequests(id *model.Identifier) ([]RequestSpec, error) {
	if id.Value == "" {
		return nil, ErrNoIdentifier
	}
	return []RequestSpec{{
		Variant: variantCookiebotCC,
		Mode:    ModeHTTP,
		URL:     fmt.Sprintf("https://consent.cookiebot.com/%s/cc.js?referer=%s", id.Value, id.Referer),
		Referer: id.PageURL,
	}}, nil
}

// Followups returns nil: cc.js is the final payload.
func (a *Cookiebot) Followups(_ *model.Identifier, _ Payload) ([]RequestSpec, error) {
	return nil, nil
}

// ParsePayload reads the category table array literals out of cc.js.
// Each table is an array of per-cookie arrays; by position: 0 name,
// 1 domain, 2 purpose, 5 technology type.
func (a *Cookiebot) ParsePayload(payload Payload) ([]model.RawCookie, error) {
	script := string(payload.Body)

	// The CDN answers politely even when it has nothing for us; reject
	// those responses before attempting to parse.
	if strings.Contains(script, cookiebotOutOfRegion) {
		return nil, classify.WithKind(classify.KindRemoteFetch,
			fmt.Errorf("cookiebot returned an out-of-region response"))
	}
	if cookiebotDomainWarning.MatchString(script) {
		return nil, classify.WithKind(classify.KindRemoteFetch,
			fmt.Errorf("cookiebot does not recognize the referer as a valid domain"))
	}

	var cookies []model.RawCookie
	for _, table := range cookiebotTables {
		m := table.pattern.FindStringSubmatch(script)
		if m == nil {
			a.logger.Debug("cookiebot category table absent", "category", table.label)
			continue
		}

		entries, err := jsliteral.Parse(m[1])
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s cookie table: %w", table.label, err)
		}
		list, ok := entries.([]any)
		if !ok {
			return nil, fmt.Errorf("cookie table %s is not an array", table.label)
		}

		for _, entry := range list {
			fields, ok := entry.([]any)
			if !ok {
				return nil, fmt.Errorf("cookie entry in table %s is not an array", table.label)
			}
			cookies = append(cookies, model.RawCookie{
				Name:         stringAt(fields, 0),
				Domain:       stringAt(fields, 1),
				Purpose:      stringAt(fields, 2),
				Type:         stringAt(fields, 5),
				CategoryName: table.label,
			})
		}
	}

	// A cc.js without any table assignments declares zero cookies. The
	// pipeline surfaces that as an empty result, not a failure.
	if len(cookies) == 0 {
		a.logger.Warn("cc.js response declares no cookies")
	}
	return cookies, nil
}

// stringAt returns the string at index i of a parsed literal array, or
// empty when the index is absent or not a string.
func stringAt(fields []any, i int) string {
	if i >= len(fields) {
		return ""
	}
	s, _ := fields[i].(string)
	return s
}
