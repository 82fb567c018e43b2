// Package main provides the entry point for the consentcrawl CLI.
//
// consentcrawl visits websites that run a supported consent management
// platform (Cookiebot, OneTrust, Termly) and collects the cookie purpose
// declarations those platforms disclose to visitors.
//
// Usage:
//
//	consentcrawl crawl --url https://example.com
//	consentcrawl crawl --file targets.txt
//
// See --help for all available options.
package main

// main is the entry point for consentcrawl.
func main() {
	Execute()
}
