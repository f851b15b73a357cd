package onboarding

import (
	"context"
	"fmt"

	"github.com/mrz1836/onboard/internal/appstate"
	"github.com/mrz1836/onboard/internal/backend"
	"github.com/mrz1836/onboard/internal/credential"
	"github.com/mrz1836/onboard/internal/keycrypt"
	"github.com/mrz1836/onboard/internal/store"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// step is one state of the workflow machine.
type step int

const (
	stepReset step = iota
	stepNavigateProgress
	stepObtainCredential
	stepEncrypt
	stepPersistBootstrap
	stepRegister
	stepProvisionChat
	stepFinish
	stepNavigateApp
	stepDone
)

var stepNames = [...]string{ //nolint:gochecknoglobals // lookup table
	"reset", "navigate-progress", "obtain-credential", "encrypt",
	"persist-bootstrap", "register", "provision-chat", "finish",
	"navigate-app", "done",
}

func (st step) String() string {
	if int(st) < len(stepNames) {
		return stepNames[st]
	}
	return fmt.Sprintf("step(%d)", int(st))
}

// run is the transient state of one workflow execution.
type run struct {
	in         *Input
	onboarding appstate.Onboarding
	retry      bool

	cred     *credential.Credential
	ownsCred bool
	record   *keycrypt.Record

	username  string
	pushToken string
	result    *backend.RegisterResult
	userInfo  *backend.User
	walletID  string

	report Report
}

func (r *run) imported() *credential.Credential {
	if r.in.Credential != nil {
		return r.in.Credential
	}
	return r.onboarding.ImportedWallet
}

func (r *run) mnemonic() string {
	if r.in.Mnemonic != "" {
		return r.in.Mnemonic
	}
	return r.onboarding.Mnemonic
}

// chosenUsername prefers the in-memory choice over the given fallback.
func (r *run) chosenUsername(fallback string) string {
	if r.in.Username != "" {
		return r.in.Username
	}
	if r.onboarding.APIUser.Username != "" {
		return r.onboarding.APIUser.Username
	}
	return fallback
}

// transitions maps each step to its handler. A handler returns the next step
// or an error that halts the run.
func (s *Service) transitions() map[step]func(context.Context, *run) (step, error) {
	return map[step]func(context.Context, *run) (step, error){
		stepReset:            s.reset,
		stepNavigateProgress: s.navigateProgress,
		stepObtainCredential: s.obtainCredential,
		stepEncrypt:          s.encrypt,
		stepPersistBootstrap: s.persistBootstrap,
		stepRegister:         s.register,
		stepProvisionChat:    s.provisionChat,
		stepFinish:           s.finish,
		stepNavigateApp:      s.navigateApp,
	}
}

// execute drives the machine from the given step until done or an error.
func (s *Service) execute(ctx context.Context, r *run, from step) error {
	table := s.transitions()
	for cur := from; cur != stepDone; {
		handler, ok := table[cur]
		if !ok {
			return onboarderr.New("INVALID_STEP", "unknown workflow step "+cur.String())
		}
		s.debug("step %s", cur)
		next, err := handler(ctx, r)
		if err != nil {
			return err
		}
		cur = next
	}
	return nil
}

// reset wipes every durable record and the matching in-memory data.
// A failed wipe aborts before anything new is written.
func (s *Service) reset(_ context.Context, r *run) (step, error) {
	if err := s.store.RemoveAll(); err != nil {
		return stepDone, s.fatal(r, "reset", onboarderr.Wrap(err, "clearing local state"))
	}
	s.state.ResetLocalData()
	return stepNavigateProgress, nil
}

func (s *Service) navigateProgress(_ context.Context, _ *run) (step, error) {
	s.navigate(Route{Name: RouteNewWallet})
	s.wait(s.delays.UIYield)
	return stepObtainCredential, nil
}

// obtainCredential uses the imported key pair if there is one, otherwise
// derives from the mnemonic.
func (s *Service) obtainCredential(_ context.Context, r *run) (step, error) {
	if imported := r.imported(); imported != nil {
		cred, err := credential.UseImported(imported)
		if err != nil {
			return stepDone, s.fatal(r, "obtain-credential", err)
		}
		r.cred, r.ownsCred = cred, true
		return stepEncrypt, nil
	}

	s.state.SetRegistrationState(appstate.StateGenerating)
	s.wait(s.delays.UIYield)

	cred, err := credential.Derive(r.mnemonic())
	if err != nil {
		return stepDone, s.fatal(r, "obtain-credential", err)
	}
	r.cred, r.ownsCred = cred, true
	return stepEncrypt, nil
}

// encrypt seals the credential. An error or an empty payload fails the run
// before anything is persisted.
func (s *Service) encrypt(_ context.Context, r *run) (step, error) {
	s.state.SetRegistrationState(appstate.StateEncrypting)
	s.wait(s.delays.UIYield)

	rec, err := s.encryptor.Encrypt(r.cred, r.in.PIN)
	if err == nil && rec.Empty() {
		err = onboarderr.WithSuggestion(onboarderr.ErrEncryptionFailed, "encryption produced an empty payload")
	}
	if err != nil {
		s.state.Fail(appstate.StateEncryptionFailed, err.Error())
		return stepDone, s.fatal(r, "encrypt", err)
	}

	rec.BackupStatus = keycrypt.BackupStatus{
		IsImported: r.imported() != nil,
		IsBackedUp: r.in.IsBackedUp,
	}
	r.record = rec
	return stepPersistBootstrap, nil
}

// persistBootstrap writes the wallet, the creation timestamp and the user
// record holding the username if one was chosen.
func (s *Service) persistBootstrap(_ context.Context, r *run) (step, error) {
	walletRec, err := store.Encode(r.record)
	if err != nil {
		return stepDone, s.fatal(r, "persist-bootstrap", onboarderr.WithCause(onboarderr.ErrStoreFailure, err))
	}

	r.username = r.chosenUsername("")
	userRec := store.Record{}
	if r.username != "" {
		userRec["username"] = r.username
	}
	createdAt := s.now().UnixMilli()

	writes := []struct {
		key string
		rec store.Record
	}{
		{store.KeyWallet, walletRec},
		{store.KeyAppSettings, store.Record{"wallet": createdAt}},
		{store.KeyUser, userRec},
	}
	for _, w := range writes {
		if err := s.store.Set(w.key, w.rec, false); err != nil {
			return stepDone, s.fatal(r, "persist-bootstrap", err)
		}
	}

	s.state.SetAppSettings(map[string]any{"wallet": createdAt})
	s.state.SetWallet(r.cred.Address, nil)
	return stepRegister, nil
}

func (s *Service) navigateApp(_ context.Context, _ *run) (step, error) {
	s.navigate(Route{Name: RouteAppFlow, Child: RouteAssets})
	return stepDone, nil
}
