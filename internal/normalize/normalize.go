package normalize

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/classify"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// cookiebotCategories maps Cookiebot's fixed table labels. The vocabulary
// is uniform across all Cookiebot deployments.
var cookiebotCategories = map[string]model.Category{
	"Necessary":    model.CategoryNecessary,
	"Preference":   model.CategoryFunctional,
	"Statistics":   model.CategoryAnalytical,
	"Advertising":  model.CategoryAdvertising,
	"Unclassified": model.CategoryUncategorized,
}

// termlyCategories maps Termly's category slugs. Social networking
// cookies have no counterpart in the taxonomy and stay unknown.
var termlyCategories = map[string]model.Category{
	"essential":         model.CategoryNecessary,
	"performance":       model.CategoryFunctional,
	"analytics":         model.CategoryAnalytical,
	"advertising":       model.CategoryAdvertising,
	"social_networking": model.CategoryUnknown,
	"unclassified":      model.CategoryUncategorized,
}

// OneTrust group names are free-form text chosen per deployment, so the
// lookup is keyword based. English vocabulary only.
var (
	necessaryKeywords   = regexp.MustCompile(`(?i)(necessary|essential|required)`)
	analyticalKeywords  = regexp.MustCompile(`(?i)(measurement|analytic|anonym|research|performance)`)
	functionalKeywords  = regexp.MustCompile(`(?i)(functional|preference|security|secure)`)
	advertisingKeywords = regexp.MustCompile(`(?i)(^ads.*|.*\s+ads.*|Ad Selection|advertising|advertise|targeting|sale of personal data|marketing|tracking|tracker|fingerprint)`)
	uncategorizedWords  = regexp.MustCompile(`(?i)(uncategori[zs]e|unknown)`)
)

// lookupOneTrust classifies a free-form group name. Advertising keywords
// are checked first: names like "Targeting and Performance" disclose the
// least privacy-preserving purpose they mention.
func lookupOneTrust(name string) model.Category {
	switch {
	case advertisingKeywords.MatchString(name):
		return model.CategoryAdvertising
	case necessaryKeywords.MatchString(name):
		return model.CategoryNecessary
	case analyticalKeywords.MatchString(name):
		return model.CategoryAnalytical
	case functionalKeywords.MatchString(name):
		return model.CategoryFunctional
	case uncategorizedWords.MatchString(name):
		return model.CategoryUncategorized
	default:
		return model.CategoryUnknown
	}
}

// Lookup maps a CMP-native category name to the canonical taxonomy.
// Names without a defined mapping resolve to Unknown.
func Lookup(cmp model.CMP, name string) model.Category {
	switch cmp {
	case model.CMPCookiebot:
		if c, ok := cookiebotCategories[name]; ok {
			return c
		}
		return model.CategoryUnknown
	case model.CMPOneTrust:
		return lookupOneTrust(name)
	case model.CMPTermly:
		if c, ok := termlyCategories[name]; ok {
			return c
		}
		return model.CategoryUnknown
	default:
		return model.CategoryUnknown
	}
}

// Normalizer converts raw category records into canonical consent
// records. Dropped records are reported through the collector rather
// than failing the batch.
type Normalizer struct {
	logger    *slog.Logger
	collector *classify.Collector
}

// New creates a Normalizer. The collector receives one event per
// dropped record and may be nil.
func New(logger *slog.Logger, collector *classify.Collector) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger, collector: collector}
}

// cookieKey identifies one logical cookie across category memberships.
type cookieKey struct {
	name   string
	domain string
	path   string
}

// pending accumulates the category candidates of one logical cookie.
type pending struct {
	raw        model.RawCookie
	path       string
	candidates []model.Category
	names      []string
}

// Normalize maps the raw records of one target into canonical records.
// A cookie declared under several native categories produces a single
// record carrying the least privacy-preserving candidate. Records
// missing a name or domain are dropped and reported.
func (n *Normalizer) Normalize(cmp model.CMP, siteURL string, raws []model.RawCookie) []model.ConsentRecord {
	merged := make(map[cookieKey]*pending)
	var order []cookieKey

	for _, raw := range raws {
		if raw.Name == "" || raw.Domain == "" {
			n.report(cmp, siteURL, raw)
			continue
		}
		path := raw.Path
		if path == "" {
			path = "/"
		}

		key := cookieKey{name: raw.Name, domain: raw.Domain, path: path}
		p, ok := merged[key]
		if !ok {
			p = &pending{raw: raw, path: path}
			merged[key] = p
			order = append(order, key)
		}
		p.candidates = append(p.candidates, Lookup(cmp, raw.CategoryName))
		p.names = append(p.names, raw.CategoryName)
	}

	records := make([]model.ConsentRecord, 0, len(order))
	for _, key := range order {
		p := merged[key]
		category := model.ResolveCategories(p.candidates)

		// Report the native name that produced the winning category, so
		// multi-membership rows stay explainable.
		catName := p.names[0]
		for i, c := range p.candidates {
			if c == category {
				catName = p.names[i]
				break
			}
		}

		records = append(records, model.ConsentRecord{
			SiteURL:      siteURL,
			Name:         p.raw.Name,
			Domain:       p.raw.Domain,
			Path:         p.path,
			Category:     category,
			CategoryName: catName,
			Purpose:      p.raw.Purpose,
			Type:         p.raw.Type,
		})
	}
	return records
}

func (n *Normalizer) report(cmp model.CMP, siteURL string, raw model.RawCookie) {
	err := classify.WithKind(classify.KindNormalize,
		fmt.Errorf("record in category %q is missing name or domain", raw.CategoryName))
	n.logger.Warn("dropping incomplete record",
		"cmp", cmp.String(), "site", siteURL, "category", raw.CategoryName)
	if n.collector != nil {
		n.collector.Record(classify.Classify(classify.StageNormalize, siteURL, err))
	}
}
