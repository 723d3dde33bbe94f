// Package storage persists the attempt audit trail: one record per slot
// dispatch with expected vs. recognized text, so operators can tell
// recognition noise from genuine delivery failure after the fact.
package storage
