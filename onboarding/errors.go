package onboarding

import "errors"

var (
	// ErrStepsIncomplete is returned by Submit when step one or two has not
	// passed validation since it was last edited.
	ErrStepsIncomplete = errors.New("onboarding steps incomplete")
	// ErrSubmitInProgress is returned while a submission is outstanding.
	ErrSubmitInProgress = errors.New("onboarding submit in progress")
	// ErrInvalidTransition is returned for a move the current state does not allow.
	ErrInvalidTransition = errors.New("invalid onboarding transition")
	// ErrClosed is returned once the wizard has been detached.
	ErrClosed = errors.New("onboarding wizard closed")
)

// SuccessNotice is handed out once after a completed registration.
const SuccessNotice = "Account created successfully! You can now log in with your email and password."
