package onboarding

import (
	"context"
	"errors"
	"sync"

	"github.com/MrEthical07/finserve/backend"
	"github.com/MrEthical07/finserve/internal/audit"
	"github.com/MrEthical07/finserve/internal/metrics"
	"github.com/MrEthical07/finserve/profile"
	"github.com/MrEthical07/finserve/validation"
	"go.uber.org/zap"
)

// Registrar creates the account at the end of the wizard. A
// *session.Manager satisfies it and signs the new account in.
type Registrar interface {
	Register(ctx context.Context, req backend.RegistrationRequest) (profile.UserProfile, error)
}

// State is the wizard position.
type State uint8

const (
	StepPersonalInfo State = iota + 1
	StepRiskProfile
	StepPreferences
	Submitting
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case StepPersonalInfo:
		return "personal_info"
	case StepRiskProfile:
		return "risk_profile"
	case StepPreferences:
		return "preferences"
	case Submitting:
		return "submitting"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// StepInfo describes one wizard page.
type StepInfo struct {
	Step        validation.Step
	ID          string
	Title       string
	Description string
}

// Steps returns the page metadata in order.
func Steps() []StepInfo {
	return []StepInfo{
		{Step: validation.StepPersonalInfo, ID: "step1", Title: "Personal Information", Description: "Please provide your basic information to get started."},
		{Step: validation.StepRiskProfile, ID: "step2", Title: "Account Setup", Description: "Configure your investment preferences and risk tolerance."},
		{Step: validation.StepPreferences, ID: "step3", Title: "Preferences", Description: "Set your notification preferences and theme."},
	}
}

// Options wires a Wizard. Registrar is required; Validator defaults to
// validation.Default().
type Options struct {
	Registrar Registrar
	Validator *validation.Engine
	Draft     *Draft
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Audit     audit.Emitter
}

// Wizard is safe for concurrent use.
type Wizard struct {
	registrar Registrar
	validator *validation.Engine
	logger    *zap.Logger
	metrics   *metrics.Metrics
	audit     audit.Emitter

	mu     sync.Mutex
	state  State
	draft  Draft
	passed map[validation.Step]bool
	err    error
	notice string
	user   profile.UserProfile
	closed bool
}

// New returns a Wizard on its first step, starting from opts.Draft or an
// empty draft. Registrar is required; a nil Validator uses validation.Default.
func New(opts Options) (*Wizard, error) {
	if opts.Registrar == nil {
		return nil, errors.New("onboarding registrar required")
	}
	if opts.Validator == nil {
		opts.Validator = validation.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Audit == nil {
		opts.Audit = audit.NoOpSink{}
	}
	draft := DefaultDraft()
	if opts.Draft != nil {
		draft = opts.Draft.clone()
	}
	return &Wizard{
		registrar: opts.Registrar,
		validator: opts.Validator,
		logger:    opts.Logger.Named("onboarding"),
		metrics:   opts.Metrics,
		audit:     opts.Audit,
		state:     StepPersonalInfo,
		draft:     draft,
		passed:    make(map[validation.Step]bool, 3),
	}, nil
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Draft returns a copy of the current drafts.
func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft.clone()
}

// Passed reports whether step has validated since it was last edited.
func (w *Wizard) Passed(step validation.Step) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.passed[step]
}

// Err returns the error of the last failed submission.
func (w *Wizard) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// User returns the account created by a completed submission.
func (w *Wizard) User() (profile.UserProfile, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Completed {
		return profile.UserProfile{}, false
	}
	return w.user.Clone(), true
}

// TakeNotice returns the success notice once after completion.
func (w *Wizard) TakeNotice() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := w.notice
	w.notice = ""
	return n, n != ""
}

// Close detaches the wizard; an outstanding submission result is dropped.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// editable must be called with w.mu held.
func (w *Wizard) editable() error {
	switch {
	case w.closed:
		return ErrClosed
	case w.state == Submitting:
		return ErrSubmitInProgress
	case w.state == Completed:
		return ErrInvalidTransition
	}
	return nil
}

// SetPersonalInfo replaces the step 1 draft. The step must be validated
// again before the wizard can move past it.
func (w *Wizard) SetPersonalInfo(p PersonalInfo) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	w.draft.Step1 = p
	w.passed[validation.StepPersonalInfo] = false
	return nil
}

func (w *Wizard) SetRiskProfile(r RiskProfile) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	w.draft.Step2 = Draft{Step2: r}.clone().Step2
	w.passed[validation.StepRiskProfile] = false
	return nil
}

func (w *Wizard) SetSettings(s Settings) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	w.draft.Step3 = Draft{Step3: s}.clone().Step3
	w.passed[validation.StepPreferences] = false
	return nil
}

// validate must be called with w.mu held.
func (w *Wizard) validate(ctx context.Context, step validation.Step) error {
	var rec validation.Record
	switch step {
	case validation.StepPersonalInfo:
		rec = w.draft.Step1
	case validation.StepRiskProfile:
		rec = w.draft.Step2
	default:
		rec = w.draft.Step3
	}
	res, err := w.validator.Validate(ctx, step, rec)
	if err != nil {
		return err
	}
	if !res.Valid() {
		w.metrics.Inc(metrics.OnboardingStepRejected)
		w.logger.Debug("step rejected", zap.Int("step", int(step)), zap.Strings("fields", res.Errors.Fields()))
		return res.Err()
	}
	w.passed[step] = true
	return nil
}

// Next validates the current step and advances on success. Violations are
// returned as a *validation.Error and leave the state unchanged.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	var step validation.Step
	var next State
	switch w.state {
	case StepPersonalInfo:
		step, next = validation.StepPersonalInfo, StepRiskProfile
	case StepRiskProfile:
		step, next = validation.StepRiskProfile, StepPreferences
	case Submitting:
		return ErrSubmitInProgress
	default:
		return ErrInvalidTransition
	}

	if err := w.validate(ctx, step); err != nil {
		return err
	}
	w.state = next
	w.metrics.Inc(metrics.OnboardingStepAdvanced)
	return nil
}

// Back moves one step backwards. A failed submission returns to the risk
// profile step.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	switch w.state {
	case StepRiskProfile:
		w.state = StepPersonalInfo
	case StepPreferences, Failed:
		w.state = StepRiskProfile
	case Submitting:
		return ErrSubmitInProgress
	default:
		return ErrInvalidTransition
	}
	return nil
}

// Submit validates the preferences step and registers the aggregated
// drafts. It is allowed from the preferences step or after a failed
// submission.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	switch w.state {
	case StepPreferences, Failed:
	case Submitting:
		w.mu.Unlock()
		return ErrSubmitInProgress
	default:
		w.mu.Unlock()
		return ErrInvalidTransition
	}
	if err := w.validate(ctx, validation.StepPreferences); err != nil {
		w.mu.Unlock()
		return err
	}
	if !w.passed[validation.StepPersonalInfo] || !w.passed[validation.StepRiskProfile] {
		w.mu.Unlock()
		return ErrStepsIncomplete
	}
	req := w.draft.Request()
	w.state = Submitting
	w.err = nil
	w.mu.Unlock()

	user, err := w.registrar.Register(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if err != nil {
		w.state = Failed
		w.err = err
		w.metrics.Inc(metrics.OnboardingFailed)
		w.logger.Info("onboarding submit failed", zap.String("email", req.Email), zap.Error(err))
		w.audit.Emit(ctx, audit.Event{
			EventType: audit.EventOnboardingFailed,
			Email:     req.Email,
			Error:     err.Error(),
		})
		return err
	}

	w.state = Completed
	w.user = user.Clone()
	w.notice = SuccessNotice
	w.metrics.Inc(metrics.OnboardingCompleted)
	w.logger.Info("onboarding completed", zap.String("user_id", user.ID))
	w.audit.Emit(ctx, audit.Event{
		EventType: audit.EventOnboardingCompleted,
		UserID:    user.ID,
		Email:     user.Email,
		Success:   true,
	})
	return nil
}
