// Package chunking splits raw log files into overlapping, deduplicated
// line windows suitable for embedding and retrieval.
//
// Lines are deduplicated first (first occurrence wins), then grouped into
// windows whose size is derived from a character budget assuming an average
// line length of 100 characters. Each surviving window carries a content
// hash and, when the text contains recognizable timestamps, an ISO-8601
// min/max range.
package chunking
