// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

// Terminal rendering of command results.

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/aplane-algo/clive/internal/authority"
	"github.com/aplane-algo/clive/internal/command"
	"github.com/aplane-algo/clive/internal/engine"
	"github.com/aplane-algo/clive/internal/keys"
	"github.com/aplane-algo/clive/internal/profile"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

type printer struct {
	w io.Writer
}

func (p printer) title(s string) {
	_, _ = fmt.Fprintln(p.w, titleStyle.Render(s))
}

// fields prints aligned "label: value" lines from alternating pairs.
func (p printer) fields(pairs ...string) {
	width := 0
	for i := 0; i < len(pairs); i += 2 {
		width = max(width, len(pairs[i]))
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		label := fmt.Sprintf("%-*s", width+1, pairs[i]+":")
		_, _ = fmt.Fprintf(p.w, "  %s %s\n", labelStyle.Render(label), pairs[i+1])
	}
}

func (p printer) table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(p.w, labelStyle.Render("  (none)"))
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(labelStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, _ = fmt.Fprintln(p.w, t.String())
}

func (p printer) line(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p printer) ok(format string, args ...any) {
	_, _ = fmt.Fprintln(p.w, okStyle.Render(fmt.Sprintf(format, args...)))
}

func (p printer) warn(format string, args ...any) {
	_, _ = fmt.Fprintln(p.w, warnStyle.Render(fmt.Sprintf(format, args...)))
}

func (p printer) json(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(p.w, string(data))
	return nil
}

func check(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (p printer) balances(b *command.BalancesData) {
	p.title("Balances of " + b.Account)
	p.table([]string{"", "Liquid", "Savings", "Rewards"}, [][]string{
		{"HIVE", b.Hive.String(), b.HiveSavings.String(), b.RewardHive.String()},
		{"HBD", b.HBD.String(), b.HBDSavings.String(), b.RewardHBD.String()},
		{"HP", b.HivePower.String(), "", b.RewardHP.String()},
	})
	p.fields("Vesting shares", b.Vests.String())
	if b.HasRewards() {
		p.warn("Unclaimed rewards pending (process claim-rewards)")
	}
}

func (p printer) savings(s *command.SavingsData) {
	p.title("Savings of " + s.Account)
	p.fields(
		"HIVE", s.HiveSavings.String(),
		"HBD", s.HBDSavings.String(),
		"HBD interest rate", s.InterestPercent(),
		"Last interest payment", s.LastInterestPayment.String(),
		"Estimated pending interest", s.PendingInterest.String(),
		"Next request id", strconv.FormatUint(uint64(s.NextRequestID), 10),
	)
	rows := make([][]string, 0, len(s.Withdrawals))
	for _, w := range s.Withdrawals {
		rows = append(rows, []string{strconv.FormatUint(uint64(w.RequestID), 10), w.To, w.Amount.String(), w.Complete.String(), w.Memo})
	}
	p.line("Pending withdrawals:")
	p.table([]string{"Request", "To", "Amount", "Completes", "Memo"}, rows)
}

func (p printer) hivePower(h *command.HivePowerData) {
	p.title("Hive Power of " + h.Account)
	p.table([]string{"", "HP", "VESTS"}, [][]string{
		{"Owned", h.OwnedHP.String(), h.OwnedVests.String()},
		{"Received", h.ReceivedHP.String(), h.ReceivedVests.String()},
		{"Delegated", h.DelegatedHP.String(), h.DelegatedVests.String()},
		{"Effective", h.EffectiveHP.String(), h.EffectiveVests.String()},
	})
	if h.PoweringDown {
		p.fields(
			"Weekly power down", h.WithdrawRateHP.String()+" ("+h.WithdrawRate.String()+")",
			"Next power down", h.NextPowerDown.String(),
			"Remaining", h.RemainingHP.String(),
		)
	} else {
		p.fields("Power down", "none")
	}

	rows := make([][]string, 0, len(h.Delegations))
	for _, d := range h.Delegations {
		rows = append(rows, []string{d.Delegatee, d.VestingShares.String(), d.MinDelegationTime.String()})
	}
	p.line("Delegations:")
	p.table([]string{"Delegatee", "VESTS", "Since"}, rows)

	rows = make([][]string, 0, len(h.Routes))
	for _, r := range h.Routes {
		rows = append(rows, []string{r.ToAccount, formatPercent(r.Percent), check(r.AutoVest)})
	}
	p.line("Withdraw routes:")
	p.table([]string{"To", "Percent", "Auto vest"}, rows)
}

func (p printer) governance(g *command.GovernanceData) {
	p.title("Governance of " + g.Account)
	proxy := "none"
	if g.HasProxy() {
		proxy = g.Proxy
	}
	p.fields(
		"Proxy", proxy,
		"Witness votes", fmt.Sprintf("%d (%d left)", len(g.WitnessVotes), g.VotesLeft()),
	)

	rows := make([][]string, 0, len(g.Witnesses))
	for _, w := range g.Witnesses {
		rank := "-"
		if w.Rank > 0 {
			rank = strconv.Itoa(w.Rank)
		}
		rows = append(rows, []string{rank, w.Name, strconv.FormatInt(w.Votes, 10), check(w.Voted), check(w.Active), w.Version})
	}
	p.line("Witnesses:")
	p.table([]string{"#", "Witness", "Votes", "Voted", "Active", "Version"}, rows)

	rows = make([][]string, 0, len(g.Proposals))
	for _, pr := range g.Proposals {
		rows = append(rows, []string{strconv.FormatInt(pr.ID, 10), pr.Subject, pr.Creator, pr.DailyPay.String(), pr.Status, check(pr.Voted)})
	}
	p.line("Proposals:")
	p.table([]string{"Id", "Subject", "Creator", "Daily pay", "Status", "Voted"}, rows)
}

func (p printer) authority(a *authority.Authority) {
	p.title("Authority of " + a.Account)
	for _, role := range authority.RegularRoles {
		r, err := a.Regular(role)
		if err != nil {
			continue
		}
		rows := make([][]string, 0)
		for _, e := range r.Entries() {
			kind := "account"
			if e.IsKey() {
				kind = "key"
			}
			rows = append(rows, []string{e.Value(), strconv.FormatUint(uint64(e.EntryWeight()), 10), kind})
		}
		p.line("%s (threshold %d):", role, r.Threshold())
		p.table([]string{"Entry", "Weight", "Type"}, rows)
	}
	p.fields("Memo key", a.Memo().Key().String())
}

func (p printer) status(s *engine.StatusResult) {
	p.title("Status")
	nodeState := errorStyle.Render("offline")
	if s.NodeOnline {
		nodeState = okStyle.Render(fmt.Sprintf("online, head block %d at %s", s.HeadBlockNumber, s.HeadBlockTime))
	}
	walletState := "none"
	if s.WalletName != "" {
		walletState = s.WalletName + " " + warnStyle.Render("locked")
		if s.WalletUnlocked {
			walletState = s.WalletName + " " + okStyle.Render("unlocked")
		}
	}
	profileName, working := "none", "none"
	if s.Profile != "" {
		profileName = s.Profile
	}
	if s.WorkingAccount != "" {
		working = s.WorkingAccount
	}
	p.fields(
		"Node", s.NodeAddress+" ("+nodeState+")",
		"Chain id", s.ChainID,
		"Wallet", walletState,
		"Profile", profileName,
		"Working account", working,
		"Watched accounts", strconv.Itoa(s.WatchedAccounts),
		"Keys", fmt.Sprintf("%d (%d pending)", s.KeyCount, s.PendingKeys),
	)
}

func (p printer) profile(pr *profile.Profile) {
	p.title("Profile " + pr.Name)
	working := pr.WorkingAccount
	if working == "" {
		working = "none"
	}
	known := "disabled"
	if pr.KnownAccountsEnabled {
		known = "enabled"
	}
	p.fields(
		"Working account", working,
		"Watched accounts", listOrNone(pr.WatchedAccounts),
		"Known accounts", listOrNone(pr.KnownAccounts),
		"Known account check", known,
		"Node", valueOr(pr.NodeAddress, "(config)"),
		"Chain id", valueOr(pr.ChainID, "(config)"),
	)
	p.keys(pr.Keys.All())
}

func (p printer) keys(list []keys.PublicKeyAliased) {
	rows := make([][]string, 0, len(list))
	for _, k := range list {
		rows = append(rows, []string{k.Alias, k.Value.String()})
	}
	p.line("Keys:")
	p.table([]string{"Alias", "Public key"}, rows)
}

func (p printer) keySync(r *engine.KeySyncResult) {
	p.title("Profile keys vs wallet")
	p.keys(r.InBoth)
	if len(r.MissingFromWallet) > 0 {
		p.warn("Tracked by the profile but missing from the wallet:")
		for _, k := range r.MissingFromWallet {
			p.line("  %s", k)
		}
	}
	if len(r.UntrackedInWallet) > 0 {
		p.warn("In the wallet but not tracked (configure key track):")
		for _, k := range r.UntrackedInWallet {
			p.line("  %s", k)
		}
	}
	if r.InSync() {
		p.ok("Profile and wallet are in sync")
	}
}

func (p printer) nodeInfo(n *command.NodeInfo) {
	p.title("Node " + n.Address)
	p.fields(
		"Online", check(n.Online),
		"Chain id", n.ChainID.String(),
		"Version", n.BlockchainVersion,
		"Head block", fmt.Sprintf("%d at %s", n.HeadBlockNumber, n.HeadBlockTime),
		"Last irreversible", strconv.FormatUint(uint64(n.LastIrreversible), 10),
		"Current witness", n.CurrentWitness,
		"HBD interest rate", formatPercent(n.HBDInterestRate),
	)
}

// result reports what happened to a transaction. A transaction that was
// neither saved nor broadcast is printed as JSON.
func (p printer) result(res *command.PerformResult) error {
	if res.SavedTo != "" {
		p.ok("Saved transaction %s to %s", res.ID, res.SavedTo)
	}
	if res.Broadcast {
		p.ok("Broadcast transaction %s", res.ID)
	}
	if res.SavedTo == "" && !res.Broadcast {
		signed := "unsigned"
		if len(res.Transaction.Signatures) > 0 {
			signed = fmt.Sprintf("%d signature(s)", len(res.Transaction.Signatures))
		}
		p.line("Transaction %s (%s, not broadcast):", res.ID, signed)
		return p.json(res.Transaction)
	}
	return nil
}

// formatPercent renders basis points, e.g. 2500 as "25.00%".
func formatPercent(bp uint16) string {
	return fmt.Sprintf("%d.%02d%%", bp/100, bp%100)
}

func listOrNone(list []string) string {
	if len(list) == 0 {
		return "none"
	}
	return strings.Join(list, ", ")
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
