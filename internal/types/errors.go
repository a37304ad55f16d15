package types

import "errors"

// Sentinel errors for antiseptic operations.
var (
	// ErrMissingRuleSection indicates a rule source without a rules collection.
	ErrMissingRuleSection = errors.New("rule source has no rules section")

	// ErrMalformedRuleRecord indicates a single rule record was rejected at load time.
	// Never fatal: the record is skipped and loading continues.
	ErrMalformedRuleRecord = errors.New("malformed rule record")

	// ErrInvalidVersionFormat indicates a version token with non-digit characters.
	ErrInvalidVersionFormat = errors.New("invalid version format")

	// ErrFetchFailure indicates a single failed fetch attempt (transport or HTTP status).
	ErrFetchFailure = errors.New("fetch failed")

	// ErrUpdateUnavailable indicates the update server could not be reached
	// after the attempt budget was exhausted.
	ErrUpdateUnavailable = errors.New("update unavailable")

	// ErrCorruptExistingRuleSet indicates the local rule source could not be parsed during a merge.
	ErrCorruptExistingRuleSet = errors.New("existing rule set is corrupt")

	// ErrNoTitle indicates a cleaning strategy could not determine a title.
	ErrNoTitle = errors.New("unable to determine title")

	// ErrQuit indicates the user asked to stop processing.
	ErrQuit = errors.New("quit requested")

	// ErrEntryNotFound indicates an unknown journal entry.
	ErrEntryNotFound = errors.New("journal entry not found")

	// ErrAlreadyUndone indicates a journal entry that was already reversed.
	ErrAlreadyUndone = errors.New("journal entry already undone")
)
