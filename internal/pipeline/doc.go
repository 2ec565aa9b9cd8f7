// Package pipeline runs one complete build: preflight, archive extraction,
// metadata loading, media matching, normalization, author resolution, poster
// retrieval, graph assembly, thumbnails, and site rendering.
//
// Fatal errors (services.IsFatal) end the run and are returned. Item-level
// errors are recorded in the Report: Skip for items excluded from the site and
// Flag for items kept with reduced output, such as a video without a poster.
package pipeline
