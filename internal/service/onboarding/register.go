package onboarding

import (
	"context"
	"strings"

	"github.com/mrz1836/onboard/internal/appstate"
	"github.com/mrz1836/onboard/internal/backend"
	"github.com/mrz1836/onboard/internal/chat"
	"github.com/mrz1836/onboard/internal/credential"
	"github.com/mrz1836/onboard/internal/keycrypt"
	"github.com/mrz1836/onboard/internal/rates"
	"github.com/mrz1836/onboard/internal/store"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// register calls the backend. Registration success and the user profile
// lookup are tracked separately; whatever was obtained is persisted. A
// failed registration halts the run in REGISTRATION_FAILED.
func (s *Service) register(ctx context.Context, r *run) (step, error) {
	s.state.SetRegistrationState(appstate.StateRegistering)

	if r.retry {
		if err := s.prepareRetry(r); err != nil {
			s.state.Fail(appstate.StateRegistrationFailed, err.Error())
			return stepDone, s.fatal(r, "register", err)
		}
		s.wait(s.delays.Retry)
	}

	if err := s.backend.Init(r.cred.PrivateKey); err != nil {
		s.state.Fail(appstate.StateRegistrationFailed, err.Error())
		return stepDone, s.fatal(r, "register", err)
	}

	r.pushToken = s.obtainPushToken(ctx, r)
	if s.supportChannel != nil {
		s.advisory(ctx, r, "support-channel-token", func(ctx context.Context) error {
			return s.supportChannel.SendToken(ctx, r.pushToken)
		})
	}

	res, err := s.backend.RegisterOnAuthServer(ctx, r.pushToken, r.username)
	if err != nil {
		res = &backend.RegisterResult{Error: true, Reason: err.Error()}
	}
	r.result = res
	r.walletID = res.WalletID

	info := s.lookupUser(ctx, r, res.WalletID)
	if err := s.recordUser(r, info); err != nil {
		return stepDone, s.fatal(r, "register", err)
	}

	if s.imageCache != nil {
		s.advisory(ctx, r, "image-cache", s.imageCache.Clear)
	}

	if !res.Succeeded() {
		state, reason := failureState(res.Reason)
		s.state.Fail(state, reason)
		cause := err
		if cause == nil {
			cause = onboarderr.New("BACKEND_REFUSED", reason)
		}
		return stepDone, s.fatal(r, "register", onboarderr.WithCause(onboarderr.ErrRegistrationFailed, cause))
	}

	return stepProvisionChat, nil
}

// prepareRetry loads the key and username for RegisterOnBackend.
func (s *Service) prepareRetry(r *run) error {
	persisted, err := s.store.Get(store.KeyUser)
	if err != nil {
		return err
	}
	stored, _ := persisted["username"].(string)
	r.username = r.chosenUsername(stored)

	if imported := r.imported(); imported != nil {
		cred, err := credential.UseImported(imported)
		if err != nil {
			return err
		}
		r.cred, r.ownsCred = cred, true
		return nil
	}

	if strings.TrimSpace(r.in.PIN) == "" {
		return onboarderr.WithSuggestion(onboarderr.ErrMissingPIN, "the PIN is needed to unlock the stored wallet")
	}
	walletRec, err := s.store.Get(store.KeyWallet)
	if err != nil {
		return err
	}
	var rec keycrypt.Record
	if err := walletRec.Decode(&rec); err != nil {
		return onboarderr.WithCause(onboarderr.ErrStoreFailure, err)
	}
	cred, err := s.encryptor.Decrypt(&rec, r.in.PIN)
	if err != nil {
		return err
	}
	r.cred, r.ownsCred = cred, true
	s.state.SetWallet(cred.Address, nil)
	return nil
}

// obtainPushToken asks for permission and the token, both best effort.
// A failure yields an empty token.
func (s *Service) obtainPushToken(ctx context.Context, r *run) string {
	if s.push == nil {
		return ""
	}
	s.advisory(ctx, r, "push-permission", s.push.RequestPermission)

	var token string
	s.advisory(ctx, r, "push-token", func(ctx context.Context) error {
		t, err := s.push.Token(ctx)
		token = t
		return err
	})
	return token
}

// lookupUser fetches the profile for walletID. A failed lookup counts as
// no profile.
func (s *Service) lookupUser(ctx context.Context, r *run, walletID string) *backend.User {
	info := &backend.User{}
	if walletID == "" {
		return info
	}
	s.advisory(ctx, r, "user-info", func(ctx context.Context) error {
		u, err := s.backend.UserInfo(ctx, walletID)
		if err == nil && u != nil {
			info = u
		}
		return err
	})
	return info
}

// recordUser persists and publishes the user profile and its state.
func (s *Service) recordUser(r *run, info *backend.User) error {
	state := backend.UserPending
	if !info.Empty() {
		state = backend.UserRegistered
	}
	r.userInfo = info
	if info.WalletID != "" {
		r.walletID = info.WalletID
	}

	if !info.Empty() {
		profile := *info
		profile.State = state
		rec, err := store.Encode(profile)
		if err != nil {
			return onboarderr.WithCause(onboarderr.ErrStoreFailure, err)
		}
		if err := s.store.Set(store.KeyUser, rec, true); err != nil {
			return err
		}
	} else {
		rec := store.Record{"state": string(state)}
		if r.walletID != "" {
			rec["walletId"] = r.walletID
		}
		if err := s.store.Set(store.KeyUser, rec, false); err != nil {
			return err
		}
	}

	s.state.SetUser(*info, state)
	return nil
}

// failureState maps a backend reason onto a registration state. Unknown
// reasons become REGISTRATION_FAILED with the reason kept as text.
func failureState(reason string) (appstate.RegistrationState, string) {
	if reason == "" {
		reason = "registration refused"
	}
	if st, ok := appstate.ParseRegistrationState(reason); ok {
		return st, reason
	}
	return appstate.StateRegistrationFailed, reason
}

// provisionChat sets up the messaging account. Every sub-step is best effort.
func (s *Service) provisionChat(ctx context.Context, r *run) (step, error) {
	if s.chat == nil {
		return stepFinish, nil
	}

	id := chat.Identity{
		UserID:     r.result.UserID,
		Username:   r.username,
		Password:   chat.GeneratePassword(r.cred.PrivateKey),
		WalletID:   r.walletID,
		EthAddress: r.cred.Address,
	}
	s.advisory(ctx, r, "chat-init", func(ctx context.Context) error {
		return s.chat.Init(ctx, id)
	})
	s.advisory(ctx, r, "chat-register", s.chat.RegisterAccount)
	s.advisory(ctx, r, "chat-push-token", func(ctx context.Context) error {
		return s.chat.SetPushToken(ctx, r.pushToken)
	})
	return stepFinish, nil
}

// finish fetches and stores the initial assets and rates, adds the default
// account and restores access tokens. Only the asset fetch is fatal.
func (s *Service) finish(ctx context.Context, r *run) (step, error) {
	assets, err := s.backend.FetchInitialAssets(ctx, r.walletID)
	if err != nil {
		s.state.Fail(appstate.StateRegistrationFailed, err.Error())
		return stepDone, s.fatal(r, "initial-assets", err)
	}
	if assets == nil {
		assets = backend.AssetList{}
	}

	prices := rates.Rates{}
	if s.rates != nil {
		s.advisory(ctx, r, "exchange-rates", func(ctx context.Context) error {
			got, err := s.rates.GetExchangeRates(ctx, assets.Symbols())
			if err == nil && got != nil {
				prices = got
			}
			return err
		})
	}
	s.state.SetRates(prices)
	s.state.SetAssets(assets)

	if err := s.persistFinish(assets, prices, r.cred.Address); err != nil {
		s.state.Fail(appstate.StateRegistrationFailed, err.Error())
		return stepDone, s.fatal(r, "finish", err)
	}

	if s.tokens != nil {
		s.advisory(ctx, r, "restore-access-tokens", func(ctx context.Context) error {
			restored, err := s.tokens.Restore(ctx, r.walletID)
			s.metrics.RecordTokensRestored(len(restored))
			return err
		})
	}

	s.state.SetRegistrationState(appstate.StateRegistered)
	return stepNavigateApp, nil
}

// persistFinish stores assets, rates and the default key-based account.
func (s *Service) persistFinish(assets backend.AssetList, prices rates.Rates, address string) error {
	assetRec, err := store.Encode(assets)
	if err != nil {
		return onboarderr.WithCause(onboarderr.ErrStoreFailure, err)
	}
	if err := s.store.Set(store.KeyAssets, assetRec, false); err != nil {
		return err
	}

	rateRec, err := store.Encode(prices)
	if err != nil {
		return onboarderr.WithCause(onboarderr.ErrStoreFailure, err)
	}
	if err := s.store.Set(store.KeyRates, rateRec, true); err != nil {
		return err
	}

	account := appstate.Account{ID: address, Type: appstate.AccountTypeKeyBased, IsActive: true}
	s.state.AddAccount(account)
	accountRec, err := store.List(s.state.Accounts())
	if err != nil {
		return onboarderr.WithCause(onboarderr.ErrStoreFailure, err)
	}
	return s.store.Set(store.KeyAccounts, accountRec, true)
}
