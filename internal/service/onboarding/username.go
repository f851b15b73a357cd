package onboarding

import (
	"context"
	"strings"

	"github.com/mrz1836/onboard/internal/appstate"
	"github.com/mrz1836/onboard/internal/backend"
	"github.com/mrz1836/onboard/internal/credential"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// ValidateUsername checks whether username is taken and reports the result
// through the registration state. A credential is derived if none exists yet,
// only to sign the lookup. Nothing durable is written.
//
// It returns true when the username is available.
func (s *Service) ValidateUsername(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, onboarderr.ErrUsernameRequired
	}

	s.state.SetRegistrationState(appstate.StateCheckingUsername)

	cred, owned, err := s.signingCredential()
	if err != nil {
		s.state.SetRegistrationState(appstate.StateIdle)
		return false, err
	}
	if owned {
		defer cred.Destroy()
	}

	if err := s.backend.Init(cred.PrivateKey); err != nil {
		s.state.SetRegistrationState(appstate.StateIdle)
		return false, err
	}

	found, err := s.backend.UsernameSearch(ctx, username)
	if err != nil {
		s.debug("username search for %q failed: %v", username, err)
		s.state.SetRegistrationState(appstate.StateIdle)
		return false, err
	}

	if !found.Empty() {
		s.state.SetAPIUser(*found)
		s.state.SetRegistrationState(appstate.StateUsernameExists)
		return false, nil
	}

	s.state.SetAPIUser(backend.User{Username: username})
	s.state.SetRegistrationState(appstate.StateUsernameOK)
	return true, nil
}

// signingCredential returns the imported key pair, the live wallet
// credential, or one derived from the onboarding mnemonic. A mnemonic is
// generated and recorded when there is none. owned is true when the caller
// must destroy the result.
func (s *Service) signingCredential() (cred *credential.Credential, owned bool, err error) {
	onboarding := s.state.Onboarding()
	if onboarding.ImportedWallet != nil {
		cred, err = credential.UseImported(onboarding.ImportedWallet)
		return cred, err == nil, err
	}
	if live := s.state.Wallet().Credential; live != nil {
		return live, false, nil
	}

	mnemonic := onboarding.Mnemonic
	if mnemonic == "" {
		if mnemonic, err = credential.GenerateMnemonic(credential.DefaultWordCount); err != nil {
			return nil, false, err
		}
		s.state.SetMnemonic(mnemonic)
	}
	s.wait(s.delays.Username)

	cred, err = credential.Derive(mnemonic)
	return cred, err == nil, err
}
