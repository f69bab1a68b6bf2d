// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/aplane-algo/clive/internal/authority"
	"github.com/aplane-algo/clive/internal/node"
	"github.com/aplane-algo/clive/internal/wax"
)

const (
	hive100Percent    = 10000
	hiveSecondsInYear = 60 * 60 * 24 * 365
)

// accountState is the harvest of an account together with chain properties.
type accountState struct {
	Accounts []node.Account
	DGPO     *node.DynamicGlobalProperties
}

// accountSnapshot is accountState after the requested account was found.
type accountSnapshot struct {
	Account *node.Account
	DGPO    *node.DynamicGlobalProperties
}

func harvestAccount(ctx context.Context, chain Chain, name string) (accountState, error) {
	var st accountState
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.Accounts, err = chain.FindAccounts(gctx, name)
		return err
	})
	g.Go(func() (err error) {
		st.DGPO, err = chain.GetDynamicGlobalProperties(gctx)
		return err
	})
	return st, g.Wait()
}

func pickAccount(accounts []node.Account, name string) (*node.Account, error) {
	for i := range accounts {
		if accounts[i].Name == name {
			return &accounts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", node.ErrAccountNotFound, name)
}

func sanitizeAccount(name string) func(accountState) (accountSnapshot, error) {
	return func(st accountState) (accountSnapshot, error) {
		acc, err := pickAccount(st.Accounts, name)
		if err != nil {
			return accountSnapshot{}, err
		}
		if st.DGPO == nil {
			return accountSnapshot{}, fmt.Errorf("missing dynamic global properties")
		}
		return accountSnapshot{Account: acc, DGPO: st.DGPO}, nil
	}
}

// vestsDiff returns a-b+c on raw VESTS amounts.
func vestsDiff(a, b, c wax.Asset) wax.Asset {
	return wax.Vests(a.Amount - b.Amount + c.Amount)
}

// BalancesData lists liquid, savings, staked and reward balances.
type BalancesData struct {
	Account     string
	Hive        wax.Asset
	HBD         wax.Asset
	HiveSavings wax.Asset
	HBDSavings  wax.Asset
	Vests       wax.Asset
	HivePower   wax.Asset
	RewardHive  wax.Asset
	RewardHBD   wax.Asset
	RewardVests wax.Asset
	RewardHP    wax.Asset
}

// HasRewards reports whether any reward balance is claimable.
func (b *BalancesData) HasRewards() bool {
	return !b.RewardHive.IsZero() || !b.RewardHBD.IsZero() || !b.RewardVests.IsZero()
}

// Balances retrieves the balances of one account.
type Balances = Retrieval[accountState, accountSnapshot, *BalancesData]

// NewBalances returns a Balances retrieval for account.
func NewBalances(chain Chain, account string) *Balances {
	return &Balances{
		Name:     "balances",
		Harvest:  func(ctx context.Context) (accountState, error) { return harvestAccount(ctx, chain, account) },
		Sanitize: sanitizeAccount(account),
		Process: func(s accountSnapshot) (*BalancesData, error) {
			a := s.Account
			return &BalancesData{
				Account:     a.Name,
				Hive:        a.Balance,
				HBD:         a.HBDBalance,
				HiveSavings: a.SavingsBalance,
				HBDSavings:  a.SavingsHBDBalance,
				Vests:       a.VestingShares,
				HivePower:   s.DGPO.VestsToHive(a.VestingShares),
				RewardHive:  a.RewardHiveBalance,
				RewardHBD:   a.RewardHBDBalance,
				RewardVests: a.RewardVestingBalance,
				RewardHP:    s.DGPO.VestsToHive(a.RewardVestingBalance),
			}, nil
		},
	}
}

// SavingsData describes an account's savings and pending withdrawals.
type SavingsData struct {
	Account             string
	HiveSavings         wax.Asset
	HBDSavings          wax.Asset
	InterestRate        uint16 // basis points
	LastInterestPayment wax.Time
	PendingInterest     wax.Asset
	Withdrawals         []node.SavingsWithdrawal
	NextRequestID       uint32
}

// InterestPercent formats the HBD interest rate, e.g. "20.00%".
func (s *SavingsData) InterestPercent() string {
	return fmt.Sprintf("%d.%02d%%", s.InterestRate/100, s.InterestRate%100)
}

type savingsHarvest struct {
	accountState
	Withdrawals []node.SavingsWithdrawal
}

type savingsSnapshot struct {
	accountSnapshot
	Withdrawals []node.SavingsWithdrawal
}

// Savings retrieves savings balances, HBD interest and pending withdrawals.
type Savings = Retrieval[savingsHarvest, savingsSnapshot, *SavingsData]

// NewSavings returns a Savings retrieval for account.
func NewSavings(chain Chain, account string) *Savings {
	return &Savings{
		Name: "savings",
		Harvest: func(ctx context.Context) (savingsHarvest, error) {
			var h savingsHarvest
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				h.accountState, err = harvestAccount(gctx, chain, account)
				return err
			})
			g.Go(func() (err error) {
				h.Withdrawals, err = chain.FindSavingsWithdrawals(gctx, account)
				return err
			})
			return h, g.Wait()
		},
		Sanitize: func(h savingsHarvest) (savingsSnapshot, error) {
			snap, err := sanitizeAccount(account)(h.accountState)
			if err != nil {
				return savingsSnapshot{}, err
			}
			pending := make([]node.SavingsWithdrawal, 0, len(h.Withdrawals))
			for _, w := range h.Withdrawals {
				if w.From == account {
					pending = append(pending, w)
				}
			}
			return savingsSnapshot{accountSnapshot: snap, Withdrawals: pending}, nil
		},
		Process: func(s savingsSnapshot) (*SavingsData, error) {
			a := s.Account
			sort.SliceStable(s.Withdrawals, func(i, j int) bool {
				return s.Withdrawals[i].Complete.Before(s.Withdrawals[j].Complete.Time)
			})
			next := uint32(0)
			for _, w := range s.Withdrawals {
				if w.RequestID >= next {
					next = w.RequestID + 1
				}
			}
			return &SavingsData{
				Account:             a.Name,
				HiveSavings:         a.SavingsBalance,
				HBDSavings:          a.SavingsHBDBalance,
				InterestRate:        s.DGPO.HBDInterestRate,
				LastInterestPayment: a.HBDLastInterestPayment,
				PendingInterest:     pendingInterest(a, s.DGPO),
				Withdrawals:         s.Withdrawals,
				NextRequestID:       next,
			}, nil
		},
	}
}

// pendingInterest estimates HBD interest accrued since the last payment,
// the way hived computes it when the interest is paid out.
func pendingInterest(a *node.Account, dgpo *node.DynamicGlobalProperties) wax.Asset {
	elapsed := int64(0)
	if !a.HBDSecondsLastUpdate.IsZero() && dgpo.Time.After(a.HBDSecondsLastUpdate.Time) {
		elapsed = int64(dgpo.Time.Sub(a.HBDSecondsLastUpdate.Time).Seconds())
	}
	seconds := new(big.Int).Mul(big.NewInt(a.SavingsHBDBalance.Amount), big.NewInt(elapsed))
	seconds.Add(seconds, big.NewInt(int64(a.SavingsHBDSeconds)))
	interest := seconds.Mul(seconds, big.NewInt(int64(dgpo.HBDInterestRate)))
	interest.Quo(interest, big.NewInt(hiveSecondsInYear))
	interest.Quo(interest, big.NewInt(hive100Percent))
	return wax.HBD(interest.Int64())
}

// HivePowerData describes staked HIVE, delegations and an ongoing power down.
type HivePowerData struct {
	Account        string
	OwnedVests     wax.Asset
	ReceivedVests  wax.Asset
	DelegatedVests wax.Asset
	EffectiveVests wax.Asset
	OwnedHP        wax.Asset
	ReceivedHP     wax.Asset
	DelegatedHP    wax.Asset
	EffectiveHP    wax.Asset

	PoweringDown   bool
	WithdrawRate   wax.Asset
	WithdrawRateHP wax.Asset
	NextPowerDown  wax.Time
	RemainingVests wax.Asset
	RemainingHP    wax.Asset

	Delegations []node.VestingDelegation
	Routes      []node.WithdrawRoute
}

type hivePowerHarvest struct {
	accountState
	Delegations []node.VestingDelegation
	Routes      []node.WithdrawRoute
}

type hivePowerSnapshot struct {
	accountSnapshot
	Delegations []node.VestingDelegation
	Routes      []node.WithdrawRoute
}

// HivePower retrieves vesting state of one account.
type HivePower = Retrieval[hivePowerHarvest, hivePowerSnapshot, *HivePowerData]

// NewHivePower returns a HivePower retrieval for account.
func NewHivePower(chain Chain, account string) *HivePower {
	return &HivePower{
		Name: "hive power",
		Harvest: func(ctx context.Context) (hivePowerHarvest, error) {
			var h hivePowerHarvest
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				h.accountState, err = harvestAccount(gctx, chain, account)
				return err
			})
			g.Go(func() (err error) {
				h.Delegations, err = chain.FindVestingDelegations(gctx, account)
				return err
			})
			g.Go(func() (err error) {
				h.Routes, err = chain.FindWithdrawVestingRoutes(gctx, account)
				return err
			})
			return h, g.Wait()
		},
		Sanitize: func(h hivePowerHarvest) (hivePowerSnapshot, error) {
			snap, err := sanitizeAccount(account)(h.accountState)
			if err != nil {
				return hivePowerSnapshot{}, err
			}
			out := hivePowerSnapshot{accountSnapshot: snap}
			for _, d := range h.Delegations {
				if d.Delegator == account {
					out.Delegations = append(out.Delegations, d)
				}
			}
			for _, r := range h.Routes {
				if r.FromAccount == account {
					out.Routes = append(out.Routes, r)
				}
			}
			return out, nil
		},
		Process: func(s hivePowerSnapshot) (*HivePowerData, error) {
			a, dgpo := s.Account, s.DGPO
			zero := wax.Vests(0)
			hp := &HivePowerData{
				Account:        a.Name,
				OwnedVests:     a.VestingShares,
				ReceivedVests:  a.ReceivedVestingShares,
				DelegatedVests: a.DelegatedVestingShares,
				EffectiveVests: vestsDiff(a.VestingShares, a.DelegatedVestingShares, a.ReceivedVestingShares),
				WithdrawRate:   a.VestingWithdrawRate,
				Delegations:    s.Delegations,
				Routes:         s.Routes,
			}
			hp.OwnedHP = dgpo.VestsToHive(hp.OwnedVests)
			hp.ReceivedHP = dgpo.VestsToHive(hp.ReceivedVests)
			hp.DelegatedHP = dgpo.VestsToHive(hp.DelegatedVests)
			hp.EffectiveHP = dgpo.VestsToHive(hp.EffectiveVests)
			hp.WithdrawRateHP = dgpo.VestsToHive(hp.WithdrawRate)

			hp.RemainingVests = zero
			if a.VestingWithdrawRate.Amount > 0 {
				hp.PoweringDown = true
				hp.NextPowerDown = a.NextVestingWithdrawal
				hp.RemainingVests = vestsDiff(wax.Vests(int64(a.ToWithdraw)), wax.Vests(int64(a.Withdrawn)), zero)
			}
			hp.RemainingHP = dgpo.VestsToHive(hp.RemainingVests)
			return hp, nil
		},
	}
}

// AccountAuthority retrieves the editable authority of one account.
type AccountAuthority = Retrieval[[]node.Account, *node.Account, *authority.Authority]

// NewAccountAuthority returns an AccountAuthority retrieval for account.
func NewAccountAuthority(chain Chain, account string) *AccountAuthority {
	return &AccountAuthority{
		Name: "account authority",
		Harvest: func(ctx context.Context) ([]node.Account, error) {
			return chain.FindAccounts(ctx, account)
		},
		Sanitize: func(accounts []node.Account) (*node.Account, error) {
			acc, err := pickAccount(accounts, account)
			if err != nil {
				return nil, err
			}
			if acc.Owner == nil || acc.Active == nil || acc.Posting == nil {
				return nil, fmt.Errorf("account %s: incomplete authority", account)
			}
			return acc, nil
		},
		Process: func(acc *node.Account) (*authority.Authority, error) {
			return authority.New(acc.Name, acc.Owner, acc.Active, acc.Posting, acc.MemoKey), nil
		},
	}
}
