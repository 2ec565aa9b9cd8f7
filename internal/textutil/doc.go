// Package textutil turns free-form labels into safe file names and URL path
// segments.
//
// PathSegment keeps letters of every script so tags like "été" stay readable
// in URLs, and SegmentSet guarantees that distinct labels never share a
// directory.
package textutil
