package onboarding

import (
	"time"

	"github.com/mrz1836/onboard/internal/credential"
)

// Route names.
const (
	RouteNewWallet = "NEW_WALLET"
	RouteAppFlow   = "APP_FLOW"
	RouteAssets    = "ASSETS"
)

// Route is a navigation target with an optional nested screen.
type Route struct {
	Name  string
	Child string
}

// Input is the onboarding input for one run. Fields left empty fall back
// to the onboarding data held in the app state.
type Input struct {
	// Mnemonic is the phrase to derive the wallet from.
	Mnemonic string
	// Credential is an imported key pair; it takes precedence over Mnemonic.
	Credential *credential.Credential
	// PIN encrypts the wallet, or unlocks it on RegisterOnBackend.
	PIN string
	// Username is the chosen username, if any.
	Username string
	// IsBackedUp records whether the user already backed up the phrase.
	IsBackedUp bool
}

// Delays are the fixed pauses of the workflow.
type Delays struct {
	// UIYield lets the progress screen render before CPU-heavy steps.
	UIYield time.Duration
	// Retry precedes registration on RegisterOnBackend.
	Retry time.Duration
	// Username precedes the username lookup.
	Username time.Duration
}

// DefaultDelays returns the production delays.
func DefaultDelays() Delays {
	return Delays{
		UIYield:  50 * time.Millisecond,
		Retry:    time.Second,
		Username: 200 * time.Millisecond,
	}
}
