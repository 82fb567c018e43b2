package cmp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/jsliteral"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// OneTrust retrieval variants, in preference order. The CDN JSON variant
// is cleanest; the consent script needs literal extraction; the page
// object is a last resort read of the platform's in-page API.
const (
	variantOneTrustRuleset    = "onetrust_ruleset"
	variantOneTrustData       = "onetrust_data"
	variantOneTrustScript     = "onetrust_script"
	variantOneTrustPageObject = "onetrust_page_object"
)

// oneTrustBases are the CDN domains the OneTrust family serves consent
// data from. All four share the same path layout.
var oneTrustBases = []string{
	"https://cdn.cookielaw.org",
	"https://optanon.blob.core.windows.net",
	"https://cookie-cdn.cookiepro.com",
	"https://cookiepro.blob.core.windows.net",
}

// oneTrustScriptPatterns match direct consent script URLs (Variant B),
// one per CDN base.
var oneTrustScriptPatterns = buildOneTrustScriptPatterns()

func buildOneTrustScriptPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(oneTrustBases))
	for _, base := range oneTrustBases {
		patterns = append(patterns, regexp.MustCompile(
			regexp.QuoteMeta(base)+`/consent/`+uuidPattern.String()+`[a-zA-Z0-9_-]*\.js`))
	}
	return patterns
}

// oneTrustGroupsStart locates the embedded Groups array inside a consent
// script (Variant B).
var oneTrustGroupsStart = regexp.MustCompile(`,\s*Groups:\s*\[`)

// OneTrust is the adapter for the OneTrust platform family, which also
// appears under the OptAnon, CookiePro and CookieLaw names. The hosted
// data comes in two layouts: ruleset-indexed JSON documents (Variant A)
// and a consent script embedding the declarations as an object literal
// (Variant B). As a fallback the platform's in-page API is read directly.
type OneTrust struct {
	logger *slog.Logger
}

// NewOneTrust creates the OneTrust adapter.
func NewOneTrust(logger *slog.Logger) *OneTrust {
	if logger == nil {
		logger = slog.Default()
	}
	return &OneTrust{logger: logger}
}

// CMP returns the platform identity.
func (a *OneTrust) CMP() model.CMP {
	return model.CMPOneTrust
}

// Detect looks for the data-domain-script fingerprint (Variant A) and the
// direct consent script URL (Variant B). Both are collected when present
// so the fetcher can fall back from one layout to the other.
func (a *OneTrust) Detect(_ context.Context, page RenderedPage) (*model.Identifier, bool, error) {
	doc, err := page.Document()
	if err != nil {
		return nil, false, err
	}

	id := &model.Identifier{CMP: model.CMPOneTrust}

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		ddid, ok := s.Attr("data-domain-script")
		if !ok || !uuidOnlyPattern.MatchString(ddid) {
			return true
		}
		src, ok := s.Attr("src")
		if !ok {
			a.logger.Debug("script tag has data-domain-script but no src", "ddid", ddid)
			return true
		}
		for _, base := range oneTrustBases {
			if strings.HasPrefix(src, base) {
				id.Value = ddid
				id.BaseURL = base
				return false
			}
		}
		a.logger.Debug("data-domain-script tag with unknown source", "src", src)
		return true
	})

	html, err := page.HTML()
	if err != nil {
		return nil, id.Value != "", err
	}
	for _, pattern := range oneTrustScriptPatterns {
		if m := pattern.FindString(html); m != "" {
			id.ScriptURL = m
			if id.Value == "" {
				id.Value = uuidPattern.FindString(m)
			}
			break
		}
	}

	if id.Value == "" && id.ScriptURL == "" {
		return nil, false, nil
	}
	if id.Value == "" {
		return nil, true, ErrNoIdentifier
	}
	return id, true, nil
}

// BuildFetchRequests derives the retrieval alternatives: Variant A when a
// CDN base was found, Variant B when a consent script URL was found, and
// the in-page object read as the final fallback.
func (a *OneTrust) BuildFetchRequests(id *model.Identifier) ([]RequestSpec, error) {
	if id.Value == "" {
		return nil, ErrNoIdentifier
	}

	var specs []RequestSpec
	if id.BaseURL != "" {
		specs = append(specs, RequestSpec{
			Variant: variantOneTrustRuleset,
			Mode:    ModeHTTP,
			URL:     fmt.Sprintf("%s/consent/%s/%s.json", id.BaseURL, id.Value, id.Value),
		})
	}
	if id.ScriptURL != "" {
		specs = append(specs, RequestSpec{
			Variant: variantOneTrustScript,
			Mode:    ModeHTTP,
			URL:     id.ScriptURL,
		})
	}
	specs = append(specs, RequestSpec{
		Variant: variantOneTrustPageObject,
		Mode:    ModeEval,
		Expr:    "window.OneTrust.GetDomainData()",
	})
	return specs, nil
}

// oneTrustRuleset is one entry of the ruleset index document.
type oneTrustRuleset struct {
	ID                          string            `json:"Id"`
	LanguageSwitcherPlaceholder map[string]string `json:"LanguageSwitcherPlaceholder"`
}

// oneTrustRulesetIndex is the Variant A index document.
type oneTrustRulesetIndex struct {
	RuleSet []oneTrustRuleset `json:"RuleSet"`
}

// Followups resolves the Variant A ruleset index into per-ruleset data
// requests. Only English rulesets are followed; the vocabulary tables in
// the normalizer cover English category names only.
func (a *OneTrust) Followups(id *model.Identifier, payload Payload) ([]RequestSpec, error) {
	if payload.Spec.Variant != variantOneTrustRuleset {
		return nil, nil
	}

	var index oneTrustRulesetIndex
	if err := json.Unmarshal(payload.Body, &index); err != nil {
		return nil, fmt.Errorf("failed to decode ruleset index: %w", err)
	}
	if len(index.RuleSet) == 0 {
		return nil, fmt.Errorf("ruleset index contains no rulesets")
	}

	var specs []RequestSpec
	for _, rs := range index.RuleSet {
		for _, lang := range rs.LanguageSwitcherPlaceholder {
			if lang == "en" {
				specs = append(specs, RequestSpec{
					Variant: variantOneTrustData,
					Mode:    ModeHTTP,
					URL:     fmt.Sprintf("%s/consent/%s/%s/en.json", id.BaseURL, id.Value, rs.ID),
				})
				break
			}
		}
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no English ruleset found in index")
	}
	a.logger.Debug("resolved onetrust rulesets", "count", len(specs))
	return specs, nil
}

// ParsePayload routes to the variant-specific parser.
func (a *OneTrust) ParsePayload(payload Payload) ([]model.RawCookie, error) {
	switch payload.Spec.Variant {
	case variantOneTrustData:
		return a.parseDataJSON(payload.Body, true)
	case variantOneTrustPageObject:
		return a.parseDataJSON(payload.Body, false)
	case variantOneTrustScript:
		return a.parseConsentScript(payload.Body)
	default:
		return nil, fmt.Errorf("unexpected onetrust payload variant %q", payload.Spec.Variant)
	}
}

// Variant A / page object JSON layout.
type oneTrustCookie struct {
	Name        string `json:"Name"`
	Host        string `json:"Host"`
	Description string `json:"description"`
}

type oneTrustHost struct {
	Cookies []oneTrustCookie `json:"Cookies"`
}

type oneTrustGroup struct {
	GroupName         string           `json:"GroupName"`
	FirstPartyCookies []oneTrustCookie `json:"FirstPartyCookies"`
	Hosts             []oneTrustHost   `json:"Hosts"`
}

type oneTrustDomainData struct {
	Language struct {
		Culture string `json:"Culture"`
	} `json:"Language"`
	Groups []oneTrustGroup `json:"Groups"`
}

type oneTrustDataDocument struct {
	DomainData oneTrustDomainData `json:"DomainData"`
}

// parseDataJSON handles the ruleset data document (wrapped in a
// DomainData envelope) and the page object read (the DomainData value
// itself, as returned by the platform's in-page API).
func (a *OneTrust) parseDataJSON(body []byte, wrapped bool) ([]model.RawCookie, error) {
	var domain oneTrustDomainData
	if wrapped {
		var doc oneTrustDataDocument
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode consent data document: %w", err)
		}
		domain = doc.DomainData
	} else {
		if err := json.Unmarshal(body, &domain); err != nil {
			return nil, fmt.Errorf("failed to decode domain data object: %w", err)
		}
	}

	if domain.Language.Culture != "" && !strings.Contains(domain.Language.Culture, "en") {
		a.logger.Warn("skipping non-English consent data", "culture", domain.Language.Culture)
		return nil, nil
	}
	if domain.Groups == nil {
		return nil, fmt.Errorf("consent data document has no Groups element")
	}

	var cookies []model.RawCookie
	for _, group := range domain.Groups {
		for _, c := range group.FirstPartyCookies {
			cookies = append(cookies, rawFromOneTrust(c, group.GroupName))
		}
		for _, host := range group.Hosts {
			for _, c := range host.Cookies {
				cookies = append(cookies, rawFromOneTrust(c, group.GroupName))
			}
		}
	}
	return cookies, nil
}

func rawFromOneTrust(c oneTrustCookie, groupName string) model.RawCookie {
	return model.RawCookie{
		Name:         c.Name,
		Domain:       c.Host,
		Purpose:      c.Description,
		CategoryName: groupName,
	}
}

// parseConsentScript extracts the Groups array embedded in a Variant B
// consent script. The script is not JSON: keys are unquoted and strings
// single-quoted, so the literal parser does the decoding after the array
// is located by bracket matching.
func (a *OneTrust) parseConsentScript(body []byte) ([]model.RawCookie, error) {
	script := strings.ReplaceAll(string(body), "\n", " ")

	loc := oneTrustGroupsStart.FindStringIndex(script)
	if loc == nil {
		return nil, fmt.Errorf("no Groups object found in consent script")
	}

	// Walk to the closing bracket of the Groups array.
	i := loc[1]
	open := 1
	for i < len(script) && open > 0 {
		switch script[i] {
		case '[':
			open++
		case ']':
			open--
		}
		i++
	}
	if open != 0 {
		return nil, fmt.Errorf("unterminated Groups array in consent script")
	}

	// loc[0]+1 skips the leading comma, keeping "Groups:[...]".
	literal := "{" + script[loc[0]+1:i] + "}"
	parsed, err := jsliteral.Parse(literal)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Groups literal: %w", err)
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("Groups literal is not an object")
	}
	groups, ok := obj["Groups"].([]any)
	if !ok {
		return nil, fmt.Errorf("Groups literal has no Groups array")
	}

	var cookies []model.RawCookie
	for _, g := range groups {
		group, ok := g.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("group entry is not an object")
		}

		catName := scriptGroupName(group)
		for _, c := range anySlice(group["Cookies"]) {
			cookie, ok := c.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("cookie entry is not an object")
			}
			cookies = append(cookies, model.RawCookie{
				Name:         anyString(cookie["Name"]),
				Domain:       anyString(cookie["Host"]),
				Purpose:      anyString(cookie["description"]),
				CategoryName: catName,
			})
		}
	}
	return cookies, nil
}

// scriptGroupName resolves the display name of a Variant B group. Child
// groups inherit the name of their parent, matching how the banner
// presents them.
func scriptGroupName(group map[string]any) string {
	source := group
	if parent, ok := group["Parent"].(map[string]any); ok {
		source = parent
	}
	sets := anySlice(source["GroupLanguagePropertiesSets"])
	if len(sets) == 0 {
		return ""
	}
	first, ok := sets[0].(map[string]any)
	if !ok {
		return ""
	}
	name, ok := first["GroupName"].(map[string]any)
	if !ok {
		return ""
	}
	return anyString(name["Text"])
}

func anySlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func anyString(v any) string {
	s, _ := v.(string)
	return s
}
