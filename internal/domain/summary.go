package domain

import "strings"

// CachedSummary is a Wikipedia extract held by a summary cache.
type CachedSummary struct {
	PK        string
	Topic     string
	Extract   string
	FetchedAt string
	TTL       int64
}

// NormalizeTopic trims and collapses whitespace so equivalent questions
// share a cache key. Case is kept: Wikipedia titles are case-sensitive
// after the first letter.
func NormalizeTopic(topic string) string {
	return strings.Join(strings.Fields(topic), " ")
}
