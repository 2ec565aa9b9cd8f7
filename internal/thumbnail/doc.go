// Package thumbnail cuts fixed-size square JPEG thumbnails from photos and
// video posters.
//
// Generator decodes JPEG, PNG, GIF, and WebP sources, center-crops them with a
// Lanczos filter, and writes the result atomically. Thumbnails newer than
// their source are reused, so rebuilding an unchanged export is cheap.
// GenerateAll runs a bounded worker pool over many jobs and reports failures
// per job instead of aborting the batch.
package thumbnail
