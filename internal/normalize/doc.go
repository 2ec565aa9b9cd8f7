// Package normalize repairs the fields of decoded export records that are
// known to be unreliable.
//
// Text is HTML-unescaped exactly once with inline markup kept; a tag-free form
// is derived for search. Capture timestamps outside the plausibility window
// are replaced by the import timestamp and flagged. Tags are lowercased and
// deduplicated, and micro-degree coordinates are converted to degrees.
package normalize
