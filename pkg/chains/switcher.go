package chains

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrSwitchPending is returned when a chain switch is requested while another
// one is still in flight. Overlapping switches are rejected rather than
// queued or superseded.
var ErrSwitchPending = errors.New("a network switch is already pending")

// NetworkInfo describes the network the wallet ended up on after a switch.
type NetworkInfo struct {
	ID             uint64
	Name           string
	CurrencySymbol string
}

// NetworkSwitcher is the wallet-side network switch operation.
type NetworkSwitcher interface {
	SwitchNetwork(ctx context.Context, networkID uint64) (NetworkInfo, error)
}

// SwitcherHandlers carries the callbacks fired as a switch progresses.
// Handlers are optional; nil handlers are skipped.
type SwitcherHandlers struct {
	// OnSolanaSelected fires when the non-EVM option is chosen. No network
	// call is made for it.
	OnSolanaSelected func()
	// OnSwitchSuccess fires after the wallet confirms the new network.
	OnSwitchSuccess func(option Option, network NetworkInfo)
	// OnSwitchError fires when the wallet rejects or fails the switch.
	OnSwitchError func(err error)
}

// Switcher tracks the active and pending chain selection. At most one switch
// is in flight at a time; all state transitions go through the mutex.
type Switcher struct {
	mu       sync.Mutex
	network  NetworkSwitcher
	handlers SwitcherHandlers
	selected Key
	pending  Key
}

// NewSwitcher creates a switcher with the given initial selection, typically
// derived from the wallet's current network id via KeyForNetworkID.
func NewSwitcher(network NetworkSwitcher, initial Key, handlers SwitcherHandlers) *Switcher {
	return &Switcher{
		network:  network,
		handlers: handlers,
		selected: initial,
	}
}

// Selected returns the active chain key.
func (s *Switcher) Selected() Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Pending returns the chain key of an in-flight switch, or "" when none is
// pending.
func (s *Switcher) Pending() Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Options returns the selectable chains with the active badge applied to the
// current selection and no other.
func (s *Switcher) Options() []Option {
	s.mu.Lock()
	selected := s.selected
	s.mu.Unlock()

	options := make([]Option, len(BaseOptions))
	for i, opt := range BaseOptions {
		if opt.Key == selected {
			opt.Badge = BadgeActive
		}
		options[i] = opt
	}
	return options
}

// Select requests a switch to the given option. Solana activates immediately
// without a network call. EVM options mark the selection pending, invoke the
// wallet switch, and settle to active or back to the previous selection.
// Any request while a switch is pending, Solana included, returns
// ErrSwitchPending.
func (s *Switcher) Select(ctx context.Context, option Option) error {
	if option.Key == KeySolana {
		s.mu.Lock()
		if s.pending != "" {
			s.mu.Unlock()
			return ErrSwitchPending
		}
		s.selected = KeySolana
		s.mu.Unlock()
		if s.handlers.OnSolanaSelected != nil {
			s.handlers.OnSolanaSelected()
		}
		return nil
	}

	if !option.IsEVM() {
		return fmt.Errorf("chain %q has no network id", option.Key)
	}

	s.mu.Lock()
	if s.pending != "" {
		s.mu.Unlock()
		return ErrSwitchPending
	}
	s.pending = option.Key
	s.mu.Unlock()

	network, err := s.network.SwitchNetwork(ctx, option.NetworkID)

	s.mu.Lock()
	s.pending = ""
	if err == nil {
		s.selected = KeyForNetworkID(network.ID)
	}
	s.mu.Unlock()

	if err != nil {
		if s.handlers.OnSwitchError != nil {
			s.handlers.OnSwitchError(err)
		}
		return err
	}

	settled, ok := OptionFor(KeyForNetworkID(network.ID))
	if !ok {
		settled = Option{Key: KeyForNetworkID(network.ID), Name: network.Name, NetworkID: network.ID}
	}
	if s.handlers.OnSwitchSuccess != nil {
		s.handlers.OnSwitchSuccess(settled, network)
	}
	return nil
}
