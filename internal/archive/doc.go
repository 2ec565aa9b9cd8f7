// Package archive unpacks export zip archives into the flat working directory
// the rest of the build reads from.
//
// Extraction is all-or-nothing: archives are validated, extracted into a
// sibling staging directory, and renamed into place only after every entry
// has been written and checksummed. A marker file then records what was
// extracted so reruns skip the work. A file lock beside the working directory
// keeps concurrent builds from extracting into the same place.
package archive
