package domain

import "errors"

// Error taxonomy for the agent core

var (
	// ErrAuth indicates the session acquisition chain is exhausted.
	// Callers skip the current cycle and retry on the next tick.
	ErrAuth = errors.New("session unobtainable")

	// ErrUnauthenticated indicates the platform rejected the attached session.
	// Distinguished from ErrTransient so callers can re-acquire and retry the
	// pending call instead of dropping it.
	ErrUnauthenticated = errors.New("session rejected by platform")

	// ErrTransient indicates a network/HTTP failure that survived bounded
	// retries. The affected item is skipped for this cycle only.
	ErrTransient = errors.New("transient gateway failure")

	// ErrGeneration indicates the text or image generation call failed.
	// Item-level: the remaining batch continues.
	ErrGeneration = errors.New("generation failed")

	// ErrInsufficientData indicates diary preconditions are unmet (too few
	// messages or too small a word budget). Reported, never stored partially.
	ErrInsufficientData = errors.New("not enough source material")

	// ErrParse indicates a malformed feed payload item. The item is skipped;
	// the batch continues.
	ErrParse = errors.New("malformed feed payload")

	// ErrStatePersist indicates flat state could not be written. Fatal to the
	// cycle: continuing on unpersisted dedup state risks duplicate actions.
	ErrStatePersist = errors.New("state persistence failed")
)
