// Package cmp implements the consent management platform adapters: one
// per supported platform (Cookiebot, OneTrust and its OptAnon / CookiePro
// variants, Termly), plus the resolver that tries them against a rendered
// page in fixed priority order.
//
// Each adapter knows three things about its platform: the fingerprint that
// identifies it on a page, how to turn the extracted identifier into
// retrieval requests for the platform's hosted declarations, and how to
// parse the retrieved payload into raw cookie records. Platform-specific
// category vocabularies are left untouched here; mapping them into the
// canonical taxonomy is the normalizer's job.
//
// Design decision: adapters are selected by a fixed priority order rather
// than by scoring because CMP fingerprints can overlap (some sites include
// more than one vendor tag); first match wins deterministically.
package cmp
