// Package gallery holds the item graph handed to rendering and the builder
// that assembles it from loaded, matched, and normalized records.
//
// The graph is immutable once built. Items are ordered by resolved timestamp
// then identifier, tags by descending frequency then name, and albums keep
// the order the export listed them in.
package gallery
