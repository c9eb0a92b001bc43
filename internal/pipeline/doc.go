// Package pipeline wires the scoring and synchronization passes end to end:
// recommendation, resolution against the media server, ledger updates,
// snapshot persistence, and collection reconciliation, with every run reduced
// to one aggregate status and exit code.
package pipeline
