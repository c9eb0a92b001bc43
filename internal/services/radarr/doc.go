// Package radarr implements the Radarr v3 API client used to queue movies
// that were recommended but are missing from the library. Adds are monitored
// with an immediate search, and updates round-trip the full document so
// fields the client does not model survive.
package radarr
