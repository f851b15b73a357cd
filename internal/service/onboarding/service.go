// Package onboarding runs the wallet onboarding and registration workflow.
//
// The workflow is a state machine over ordered steps. RegisterWallet enters it
// at the first step and wipes local data; RegisterOnBackend re-enters it at the
// registration step for a wallet that already exists locally. Failures are
// either fatal (the run halts and the app state records why) or advisory
// (logged, counted and skipped).
package onboarding

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mrz1836/onboard/internal/appstate"
	"github.com/mrz1836/onboard/internal/credential"
	"github.com/mrz1836/onboard/internal/metrics"
	"github.com/mrz1836/onboard/internal/store"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// Config contains dependencies for creating an onboarding service.
// SupportChannel, ImageCache, Rates, Tokens, Navigator, Logger and Metrics
// are optional.
type Config struct {
	Store          store.Store
	State          *appstate.State
	Encryptor      Encryptor
	Backend        BackendClient
	Chat           ChatClient
	Push           PushProvider
	Rates          RateService
	Tokens         TokenRestorer
	Navigator      Navigator
	SupportChannel SupportChannel
	ImageCache     ImageCache
	Logger         LogWriter
	Metrics        *metrics.Metrics
	Delays         Delays

	// Now overrides the clock for the wallet creation timestamp.
	Now func() time.Time
	// Sleep overrides time.Sleep for the fixed delays.
	Sleep func(time.Duration)
}

// Service orchestrates onboarding runs.
type Service struct {
	store          store.Store
	state          *appstate.State
	encryptor      Encryptor
	backend        BackendClient
	chat           ChatClient
	push           PushProvider
	rates          RateService
	tokens         TokenRestorer
	navigator      Navigator
	supportChannel SupportChannel
	imageCache     ImageCache
	logger         LogWriter
	metrics        *metrics.Metrics
	delays         Delays
	now            func() time.Time
	sleep          func(time.Duration)

	running atomic.Bool

	mu         sync.Mutex
	lastReport Report
}

// NewService creates a new onboarding service instance.
func NewService(cfg *Config) *Service {
	s := &Service{
		store:          cfg.Store,
		state:          cfg.State,
		encryptor:      cfg.Encryptor,
		backend:        cfg.Backend,
		chat:           cfg.Chat,
		push:           cfg.Push,
		rates:          cfg.Rates,
		tokens:         cfg.Tokens,
		navigator:      cfg.Navigator,
		supportChannel: cfg.SupportChannel,
		imageCache:     cfg.ImageCache,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		delays:         cfg.Delays,
		now:            cfg.Now,
		sleep:          cfg.Sleep,
	}
	if s.state == nil {
		s.state = appstate.New()
	}
	if s.metrics == nil {
		s.metrics = metrics.Global
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}
	return s
}

// State returns the app state the service writes to.
func (s *Service) State() *appstate.State {
	return s.state
}

// LastReport returns the outcomes of the most recent run.
func (s *Service) LastReport() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

// RegisterWallet runs the full workflow: wipe local data, obtain and encrypt
// the credential, persist it, register with the backend, provision chat,
// finish registration and navigate to the app.
//
// Input errors are returned before anything is wiped.
func (s *Service) RegisterWallet(ctx context.Context, in *Input) error {
	if in == nil {
		in = &Input{}
	}
	r := s.newRun(in)
	if err := s.validateWalletInput(r); err != nil {
		return err
	}
	return s.guarded(ctx, r, stepReset)
}

// RegisterOnBackend retries registration for a wallet that already exists
// locally. It does not wipe anything. The key comes from in.Credential or
// from decrypting the stored wallet with in.PIN.
func (s *Service) RegisterOnBackend(ctx context.Context, in *Input) error {
	if in == nil {
		in = &Input{}
	}
	r := s.newRun(in)
	r.retry = true
	return s.guarded(ctx, r, stepRegister)
}

// guarded executes a run unless another one is in flight.
func (s *Service) guarded(ctx context.Context, r *run, from step) error {
	if !s.running.CompareAndSwap(false, true) {
		s.metrics.RecordRunRejected()
		return onboarderr.ErrRegistrationInProgress
	}
	defer s.running.Store(false)

	s.metrics.RecordRunStarted()
	err := s.execute(ctx, r, from)
	s.metrics.RecordRunFinished(err)

	s.mu.Lock()
	s.lastReport = r.report
	s.mu.Unlock()

	if r.cred != nil && r.ownsCred {
		r.cred.Destroy()
	}
	return err
}

// validateWalletInput fails fast on input errors before any I/O.
func (s *Service) validateWalletInput(r *run) error {
	if strings.TrimSpace(r.in.PIN) == "" {
		return onboarderr.ErrMissingPIN
	}
	if imported := r.imported(); imported != nil {
		cred, err := credential.UseImported(imported)
		if err != nil {
			return err
		}
		cred.Destroy()
		return nil
	}
	return credential.ValidateMnemonic(r.mnemonic())
}

func (s *Service) newRun(in *Input) *run {
	return &run{in: in, onboarding: s.state.Onboarding()}
}

func (s *Service) wait(d time.Duration) {
	if d > 0 {
		s.sleep(d)
	}
}

func (s *Service) navigate(route Route) {
	if s.navigator != nil {
		s.navigator.Navigate(route)
	}
}

func (s *Service) debug(format string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(format, args...)
	}
}

func (s *Service) logError(format string, args ...any) {
	if s.logger != nil {
		s.logger.Error(format, args...)
	}
}

// advisory runs a best-effort side effect. Failures are logged and counted,
// never returned.
func (s *Service) advisory(ctx context.Context, r *run, name string, fn func(context.Context) error) Outcome {
	err := fn(ctx)
	if err != nil {
		s.debug("%s failed, continuing: %v", name, err)
		s.metrics.RecordAdvisoryFailure()
	}
	return r.report.add(Outcome{Step: name, Severity: Advisory, Err: err})
}

// fatal records a halting failure and returns it.
func (s *Service) fatal(r *run, name string, err error) error {
	s.logError("%s failed: %v", name, err)
	r.report.add(Outcome{Step: name, Severity: Fatal, Err: err})
	return err
}
