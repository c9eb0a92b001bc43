// Package collections reconciles Plex collections against a desired ordered
// membership: a minimal add/remove diff, custom sort mode, anchor-walked
// positional ordering, and best-effort artwork.
package collections
