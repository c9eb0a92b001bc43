// Package runledger records scoring and sync run outcomes to a small SQLite
// database so the status command can show recent history.
package runledger
