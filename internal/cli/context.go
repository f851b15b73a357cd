package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/onboard/internal/appstate"
	"github.com/mrz1836/onboard/internal/backend"
	"github.com/mrz1836/onboard/internal/chat"
	"github.com/mrz1836/onboard/internal/config"
	"github.com/mrz1836/onboard/internal/credential"
	"github.com/mrz1836/onboard/internal/keycrypt"
	"github.com/mrz1836/onboard/internal/metrics"
	"github.com/mrz1836/onboard/internal/output"
	"github.com/mrz1836/onboard/internal/push"
	"github.com/mrz1836/onboard/internal/rates"
	"github.com/mrz1836/onboard/internal/reconcile"
	"github.com/mrz1836/onboard/internal/service/onboarding"
	"github.com/mrz1836/onboard/internal/store"
	"github.com/mrz1836/onboard/internal/transport"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// Command deadlines.
const (
	registerTimeout = 2 * time.Minute
	lookupTimeout   = 30 * time.Second
)

// contextWithTimeout bounds the command's context by d.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	parent := context.Background()
	if ctx := cmd.Context(); ctx != nil {
		parent = ctx
	}
	return context.WithTimeout(parent, d)
}

// CommandContext holds the wired collaborators for one command.
type CommandContext struct {
	Config     *config.Config
	Logger     *config.Logger
	Store      store.Store
	State      *appstate.State
	Encryptor  *keycrypt.Encryptor
	Backend    *backend.Client
	Reconciler *reconcile.Reconciler
	Onboarding *onboarding.Service
}

// NewCommandContext opens the configured store and wires the services.
// The caller must Close the context.
func NewCommandContext(c *config.Config, log *config.Logger, progress io.Writer) (*CommandContext, error) {
	if log == nil {
		log = config.NullLogger()
	}

	st, err := store.Open(store.Options{Backend: c.Store.Backend, Path: c.GetStorePath()})
	if err != nil {
		return nil, err
	}

	ctx := &CommandContext{
		Config:    c,
		Logger:    log,
		Store:     st,
		State:     appstate.New(),
		Encryptor: keycrypt.NewEncryptor(c.Encryption.WorkFactor, c.Encryption.PINSalt),
	}
	if err := ctx.wire(progress); err != nil {
		_ = st.Close()
		return nil, err
	}
	return ctx, nil
}

func (c *CommandContext) wire(progress io.Writer) error {
	var err error
	c.Backend, err = backend.NewClient(c.Config.Backend.URL, &backend.ClientOptions{
		Options: c.transportOptions(c.Config.Backend),
	})
	if err != nil {
		return err
	}

	chatOpts := c.transportOptions(c.Config.Chat)
	chatClient, err := chat.NewClient(c.Config.Chat.URL, &chatOpts)
	if err != nil {
		return err
	}

	ratesOpts := c.transportOptions(c.Config.Rates.ServiceConfig)
	rateClient, err := rates.NewClient(c.Config.Rates.URL, c.Config.Rates.Fiat, &ratesOpts)
	if err != nil {
		return err
	}

	c.Reconciler = reconcile.New(&reconcile.Config{
		Backend:   c.Backend,
		Store:     c.Store,
		Publisher: c.State,
		Logger:    c.Logger.Named("reconcile"),
	})

	ob := c.Config.GetOnboarding()
	c.Onboarding = onboarding.NewService(&onboarding.Config{
		Store:     c.Store,
		State:     c.State,
		Encryptor: c.Encryptor,
		Backend:   c.Backend,
		Chat:      chatClient,
		Push:      push.NewStaticProvider(c.Config.Push.Token),
		Rates:     rateClient,
		Tokens:    c.Reconciler,
		Navigator: &progressNavigator{w: progress},
		Logger:    c.Logger.Named("onboarding"),
		Metrics:   metrics.Global,
		Delays: onboarding.Delays{
			UIYield:  ob.UIYield(),
			Retry:    ob.RetryDelay(),
			Username: ob.UsernameDelay(),
		},
	})
	return nil
}

func (c *CommandContext) transportOptions(sc config.ServiceConfig) transport.Options {
	return transport.Options{
		Timeout:       sc.Timeout(),
		RatePerSecond: sc.RatePerSecond,
		Burst:         sc.Burst,
		UserAgent:     "onboard/" + buildInfo.version(),
	}
}

// Close releases the store.
func (c *CommandContext) Close() error {
	if c == nil || c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

// progressNavigator prints screen changes as progress lines.
type progressNavigator struct {
	w io.Writer
}

func (n *progressNavigator) Navigate(route onboarding.Route) {
	if n.w == nil {
		return
	}
	name := route.Name
	if route.Child != "" {
		name += "/" + route.Child
	}
	output.Step(n.w, name)
}

// UnlockWallet decrypts the stored wallet and binds the backend client to it.
// The caller must destroy the returned credential.
func (c *CommandContext) UnlockWallet(pin string) (*credential.Credential, error) {
	walletRec, err := c.Store.Get(store.KeyWallet)
	if err != nil {
		return nil, err
	}
	var rec keycrypt.Record
	if err := walletRec.Decode(&rec); err != nil {
		return nil, onboarderr.WithCause(onboarderr.ErrStoreFailure, err)
	}

	cred, err := c.Encryptor.Decrypt(&rec, pin)
	if err != nil {
		return nil, err
	}
	if err := c.Backend.Init(cred.PrivateKey); err != nil {
		cred.Destroy()
		return nil, err
	}
	c.State.SetWallet(cred.Address, nil)
	return cred, nil
}

// StoredUser returns the persisted user record.
func (c *CommandContext) StoredUser() (backend.User, error) {
	var u backend.User
	rec, err := c.Store.Get(store.KeyUser)
	if err != nil {
		return u, err
	}
	if err := rec.Decode(&u); err != nil {
		return u, onboarderr.WithCause(onboarderr.ErrStoreFailure, err)
	}
	return u, nil
}
