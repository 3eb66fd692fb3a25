// Package types defines the shared vocabulary of the outreach engine:
// the failure taxonomy, sessions, target records and rate-limit
// counters. Every other package speaks in these terms.
package types
