// Package identity maps the opaque account identifiers (NSIDs) that appear as
// comment authors to human display names.
//
// The Resolver consults the persisted namecache first and only then asks a
// Lookup for the rest. ProfileClient is the network Lookup: it fetches the
// public profile page and reads the og:title meta tag. Lookups are bounded by
// a worker limit and a request-rate limiter, each identifier is looked up at
// most once per run, and failures are stored as pending instead of inventing
// placeholder names. A single collector goroutine owns cache writes and
// flushes the cache to disk periodically.
package identity
