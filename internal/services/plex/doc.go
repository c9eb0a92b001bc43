// Package plex implements the Plex Media Server HTTP client used by the
// scoring and sync pipelines: library lookups, collection membership, custom
// ordering, and artwork uploads.
package plex
