// Package namecache persists the mapping from comment author NSIDs to display
// names.
//
// The cache is an explicit object with a load, extend, persist lifecycle: the
// pipeline loads it once, the identity resolver extends it during a run, and
// Save writes it back atomically. Identifiers whose lookup failed are stored
// with StatusPending rather than a placeholder name so later runs can retry.
//
// # Storage
//
// The file is a JSON list of {nsid, name, status, updated_at} objects sorted by
// NSID (default ~/.cache/flashbulb/nsid_names.json). The older flat
// {"nsid": "name"} object is accepted on load and rewritten in the list form on
// the next save.
//
// CLI commands for inspection and management:
//
//	flashbulb names list
//	flashbulb names set <nsid> <name>
//	flashbulb names remove <nsid>
//	flashbulb names clear
package namecache
