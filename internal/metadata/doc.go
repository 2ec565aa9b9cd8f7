// Package metadata decodes the per-item JSON records of a photo export.
//
// Export records drift between schema versions: list fields arrive as a single
// object, counters arrive as strings, and some fields were renamed. The types
// in this package absorb that drift at the decode boundary (FlexList, FlexInt,
// FlexString and the alias handling in Record) so nothing downstream branches
// on JSON shape. A record that cannot be decoded excludes only that item.
package metadata
