// Package sonarr implements the Sonarr v3 API client used to queue series
// that were recommended but are missing from the library.
package sonarr
