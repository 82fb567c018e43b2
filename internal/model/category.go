package model

// Category is the canonical cookie purpose category.
//
// The numeric values are part of the persisted schema (cat_id column) and
// must never be renumbered. Necessary through Advertising form a total
// order of privacy sensitivity: a higher value is less privacy-preserving.
// Unknown and Uncategorized sit outside that order and are only used when
// no ordered category applies.
type Category int

const (
	// CategoryUnknown marks a native category label the crawler does not
	// recognize. Distinct from Uncategorized: Unknown means the CMP said
	// something we could not map, not that the CMP declined to classify.
	CategoryUnknown Category = -1

	// CategoryNecessary covers cookies required for the site to function.
	CategoryNecessary Category = 0

	// CategoryFunctional covers preference and functionality cookies
	// (language choice, display options, security settings).
	CategoryFunctional Category = 1

	// CategoryAnalytical covers performance and statistics cookies,
	// usually anonymized measurement.
	CategoryAnalytical Category = 2

	// CategoryAdvertising covers advertising, tracking, social media and
	// marketing cookies, including sale of personal data.
	CategoryAdvertising Category = 3

	// CategoryUncategorized marks cookies the CMP itself explicitly left
	// unclassified.
	CategoryUncategorized Category = 4
)

// String returns the human-readable category name.
func (c Category) String() string {
	switch c {
	case CategoryNecessary:
		return "necessary"
	case CategoryFunctional:
		return "functional"
	case CategoryAnalytical:
		return "analytical"
	case CategoryAdvertising:
		return "advertising"
	case CategoryUncategorized:
		return "uncategorized"
	default:
		return "unknown"
	}
}

// Ordered reports whether the category participates in the privacy
// sensitivity order (Necessary < Functional < Analytical < Advertising).
func (c Category) Ordered() bool {
	return c >= CategoryNecessary && c <= CategoryAdvertising
}

// Valid reports whether the value is one of the six taxonomy values.
func (c Category) Valid() bool {
	return c == CategoryUnknown || c == CategoryUncategorized || c.Ordered()
}

// ResolveCategories reduces a multi-membership candidate set to the single
// canonical category of a cookie declared under more than one native
// category.
//
// The rule is least-privacy-preserving wins: among ordered candidates the
// maximum is taken, so any Advertising candidate dominates. Unknown and
// Uncategorized participate only when no ordered candidate exists, and an
// explicit Uncategorized beats Unknown because a declared "no category" is
// a stronger signal than an unrecognized label.
//
// The result is independent of candidate order. An empty candidate set
// resolves to Unknown.
func ResolveCategories(candidates []Category) Category {
	result := CategoryUnknown
	sawUncategorized := false

	for _, c := range candidates {
		if c.Ordered() {
			if !result.Ordered() || c > result {
				result = c
			}
			continue
		}
		if c == CategoryUncategorized {
			sawUncategorized = true
		}
	}

	if !result.Ordered() && sawUncategorized {
		return CategoryUncategorized
	}
	return result
}
