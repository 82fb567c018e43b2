package model

// CMP identifies a supported consent management platform.
type CMP int

const (
	// CMPNone means no supported platform was detected on the page.
	CMPNone CMP = iota

	// CMPCookiebot is the Cookiebot platform (consent.cookiebot.com).
	CMPCookiebot

	// CMPOneTrust is the OneTrust platform and its OptAnon / CookiePro /
	// CookieLaw variants.
	CMPOneTrust

	// CMPTermly is the Termly platform (app.termly.io).
	CMPTermly
)

// String returns the platform name as used in CLI arguments and reports.
func (c CMP) String() string {
	switch c {
	case CMPCookiebot:
		return "cookiebot"
	case CMPOneTrust:
		return "onetrust"
	case CMPTermly:
		return "termly"
	default:
		return "none"
	}
}

// ParseCMP converts a CLI platform argument into a CMP identity.
// The second return value is false for unsupported names.
func ParseCMP(s string) (CMP, bool) {
	switch s {
	case "cookiebot":
		return CMPCookiebot, true
	case "onetrust":
		return CMPOneTrust, true
	case "termly":
		return CMPTermly, true
	default:
		return CMPNone, false
	}
}

// Identifier is the CMP-specific key extracted from a rendered page that
// locates the platform's hosted consent declarations. Value is always set
// for a successful extraction; the remaining fields are populated only by
// the adapters that need them.
type Identifier struct {
	// CMP is the platform the identifier belongs to.
	CMP CMP

	// Value is the account / client / domain key (a UUID for all three
	// supported platforms). Never empty for a successful extraction.
	Value string

	// BaseURL is the CDN base the consent data is hosted on. Used by
	// OneTrust, which serves identical layouts from four domains.
	BaseURL string

	// ScriptURL is a direct consent script URL discovered on the page.
	// Used by OneTrust Variant B, where the data is embedded in the
	// script rather than hosted as JSON.
	ScriptURL string

	// Referer is the referer the CDN expects when serving the data.
	// Used by Cookiebot as a query argument; it may differ from the
	// visited site.
	Referer string

	// PageURL is the URL of the page the identifier was extracted from.
	// Sent as the Referer header on Cookiebot requests.
	PageURL string
}
