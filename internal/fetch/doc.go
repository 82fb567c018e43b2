// Package fetch retrieves consent declaration payloads from CMP content
// delivery networks and from the rendered page itself.
package fetch
