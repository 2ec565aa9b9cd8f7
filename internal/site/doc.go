// Package site renders a gallery.Graph as a static HTML site.
//
// The layout is fixed: index.html at the root, one directory per item under
// photos/, tag pages under tags/, album pages under albums/, and the embedded
// stylesheet and search script under assets/. Pages link to each other with
// relative paths so the output can be served from any prefix or opened from
// disk. Rendering never cleans data; rich text is reduced to a small inline
// allowlist by SafeMarkup and everything else is escaped by html/template.
package site
