// Package cli wires together the Cobra command tree for the scanctl binary.
//
// It defines the root command and its subcommands (scan, version), binds
// flags, drives the scanguard client and returns deterministic exit codes
// for CI gating.
package cli
