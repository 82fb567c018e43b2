package cmp

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// testUUID is a syntactically valid account identifier shared by the
// adapter tests.
const testUUID = "12345678-abcd-4ef0-9876-0123456789ab"

// fakePage is a RenderedPage backed by a static HTML string.
type fakePage struct {
	url        string
	html       string
	evalResult string
	evalErr    error
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) HTML() (string, error) { return p.html, nil }

func (p *fakePage) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(p.html))
}

func (p *fakePage) Eval(_ context.Context, _ string) (string, error) {
	if p.evalErr != nil {
		return "", p.evalErr
	}
	if p.evalResult == "" {
		return "", errors.New("eval not configured")
	}
	return p.evalResult, nil
}
