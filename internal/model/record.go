package model

// RawCookie is a CMP-native cookie or technology declaration, produced by
// an adapter's payload parser and consumed immediately by the normalizer.
// Category identifiers and vocabularies here are still CMP-specific.
type RawCookie struct {
	// Name is the cookie / technology name as declared.
	Name string

	// Domain is the domain the cookie is declared for.
	Domain string

	// Path is the declared cookie path. Empty means unspecified; the
	// normalizer defaults it to "/".
	Path string

	// CategoryName is the CMP-native category label, verbatim.
	CategoryName string

	// Purpose is the free-text purpose description, if declared.
	Purpose string

	// Type is the CMP-specific technology type tag (e.g. Termly's
	// tracker_type), if declared.
	Type string
}

// ConsentRecord is the persisted unit: one cookie declaration normalized
// into the canonical taxonomy. Records are append-only; duplicate tuples
// across runs are intentionally not deduplicated so that repeated crawls
// remain distinguishable.
type ConsentRecord struct {
	// SiteURL is the resolved URL of the crawled target.
	SiteURL string

	// Name is the cookie / technology name. Required.
	Name string

	// Domain is the declared domain. Required.
	Domain string

	// Path is the declared path, "/" when the CMP did not specify one.
	Path string

	// Category is the canonical category id.
	Category Category

	// CategoryName is the CMP-native category label the id was derived
	// from. The same Category may carry different labels across CMPs.
	CategoryName string

	// Purpose is the declared purpose text. Empty means not declared and
	// is persisted as NULL.
	Purpose string

	// Type is the declared technology type. Empty means not declared and
	// is persisted as NULL.
	Type string
}
