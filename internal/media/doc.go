// Package media matches metadata records to the media files of an extracted
// export.
//
// File names embed the item identifier in several shapes; ExtractID recovers
// it and Index groups files by it. Matcher then picks one original per item.
// A video wins over images sharing its identifier, and the export's declared
// "original" URL for a video is a poster image that PosterFetcher downloads
// separately.
package media
