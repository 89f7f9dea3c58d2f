// Package migrations registers every schema migration. cmd/krishi and the
// server import it for its side effects.
package migrations
