// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/aplane-algo/clive/internal/node"
	"github.com/aplane-algo/clive/internal/wax"
)

const (
	// MaxWitnessVotes is the number of witnesses one account may approve.
	MaxWitnessVotes = 30

	// DefaultWitnessLimit is how many top witnesses Governance lists.
	DefaultWitnessLimit = 100

	// DefaultProposalLimit is how many proposals Governance lists.
	DefaultProposalLimit = 100
)

// WitnessData is a witness row with the account's vote marked.
type WitnessData struct {
	Name       string
	Rank       int // 1-based position by votes; 0 when outside the listing
	Votes      int64
	Voted      bool
	Active     bool
	URL        string
	Missed     uint32
	LastBlock  uint32
	Version    string
	SigningKey wax.PublicKey
}

// ProposalData is a proposal row with the account's vote marked.
type ProposalData struct {
	ID       int64
	Subject  string
	Creator  string
	Receiver string
	DailyPay wax.Asset
	Votes    int64
	Start    wax.Time
	End      wax.Time
	Status   string
	Voted    bool
}

// GovernanceData is the witness and proposal voting state of one account.
type GovernanceData struct {
	Account      string
	Proxy        string
	WitnessVotes []string
	Witnesses    []WitnessData
	Proposals    []ProposalData
}

// VotesLeft is how many more witnesses the account may approve.
func (g *GovernanceData) VotesLeft() int {
	return max(MaxWitnessVotes-len(g.WitnessVotes), 0)
}

// HasProxy reports whether witness votes are delegated to a proxy.
func (g *GovernanceData) HasProxy() bool {
	return g.Proxy != ""
}

type governanceHarvest struct {
	Accounts  []node.Account
	Witnesses []node.Witness
	Extra     []node.Witness
	Proposals []node.Proposal
	Votes     []node.ProposalVote
}

type governanceSnapshot struct {
	Account   *node.Account
	Witnesses []node.Witness
	Extra     []node.Witness
	Proposals []node.Proposal
	Voted     map[int64]bool
}

// Governance retrieves witness and proposal voting state.
type Governance = Retrieval[governanceHarvest, governanceSnapshot, *GovernanceData]

// GovernanceOptions bounds the listings. Zero values use the defaults.
type GovernanceOptions struct {
	WitnessLimit  int
	ProposalLimit int
	Status        node.ProposalStatus
}

// NewGovernance returns a Governance retrieval for account.
func NewGovernance(chain Chain, account string, opts GovernanceOptions) *Governance {
	if opts.WitnessLimit <= 0 {
		opts.WitnessLimit = DefaultWitnessLimit
	}
	if opts.ProposalLimit <= 0 {
		opts.ProposalLimit = DefaultProposalLimit
	}
	if opts.Status == "" {
		opts.Status = node.ProposalsVotable
	}
	return &Governance{
		Name: "governance",
		Harvest: func(ctx context.Context) (governanceHarvest, error) {
			var h governanceHarvest
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				h.Accounts, err = chain.FindAccounts(gctx, account)
				return err
			})
			g.Go(func() (err error) {
				h.Witnesses, err = chain.ListWitnesses(gctx, "", opts.WitnessLimit)
				return err
			})
			g.Go(func() (err error) {
				h.Proposals, err = chain.ListProposals(gctx, opts.Status, opts.ProposalLimit)
				return err
			})
			g.Go(func() (err error) {
				h.Votes, err = chain.ListProposalVotes(gctx, account, node.MaxListLimit)
				return err
			})
			if err := g.Wait(); err != nil {
				return h, err
			}

			// Voted witnesses below the listing are fetched individually.
			acc, err := pickAccount(h.Accounts, account)
			if err != nil {
				return h, nil
			}
			listed := make(map[string]bool, len(h.Witnesses))
			for _, w := range h.Witnesses {
				listed[w.Owner] = true
			}
			var missing []string
			for _, name := range acc.WitnessVotes {
				if !listed[name] {
					missing = append(missing, name)
				}
			}
			if len(missing) > 0 {
				h.Extra, err = chain.FindWitnesses(ctx, missing...)
			}
			return h, err
		},
		Sanitize: func(h governanceHarvest) (governanceSnapshot, error) {
			acc, err := pickAccount(h.Accounts, account)
			if err != nil {
				return governanceSnapshot{}, err
			}
			voted := make(map[int64]bool, len(h.Votes))
			for _, v := range h.Votes {
				if v.Voter == account {
					voted[proposalID(&v.Proposal)] = true
				}
			}
			return governanceSnapshot{
				Account:   acc,
				Witnesses: h.Witnesses,
				Extra:     h.Extra,
				Proposals: h.Proposals,
				Voted:     voted,
			}, nil
		},
		Process: func(s governanceSnapshot) (*GovernanceData, error) {
			votes := make(map[string]bool, len(s.Account.WitnessVotes))
			for _, name := range s.Account.WitnessVotes {
				votes[name] = true
			}

			out := &GovernanceData{
				Account:      s.Account.Name,
				Proxy:        s.Account.Proxy,
				WitnessVotes: append([]string(nil), s.Account.WitnessVotes...),
			}
			sort.Strings(out.WitnessVotes)

			for i := range s.Witnesses {
				out.Witnesses = append(out.Witnesses, witnessData(&s.Witnesses[i], i+1, votes))
			}
			extra := append([]node.Witness(nil), s.Extra...)
			sort.SliceStable(extra, func(i, j int) bool { return extra[i].Votes > extra[j].Votes })
			for i := range extra {
				out.Witnesses = append(out.Witnesses, witnessData(&extra[i], 0, votes))
			}

			for i := range s.Proposals {
				p := &s.Proposals[i]
				id := proposalID(p)
				out.Proposals = append(out.Proposals, ProposalData{
					ID:       id,
					Subject:  p.Subject,
					Creator:  p.Creator,
					Receiver: p.Receiver,
					DailyPay: p.DailyPay,
					Votes:    int64(p.TotalVotes),
					Start:    p.StartDate,
					End:      p.EndDate,
					Status:   p.Status,
					Voted:    s.Voted[id],
				})
			}
			return out, nil
		},
	}
}

func witnessData(w *node.Witness, rank int, votes map[string]bool) WitnessData {
	return WitnessData{
		Name:       w.Owner,
		Rank:       rank,
		Votes:      int64(w.Votes),
		Voted:      votes[w.Owner],
		Active:     w.IsActive(),
		URL:        w.URL,
		Missed:     w.TotalMissed,
		LastBlock:  w.LastBlock,
		Version:    w.RunningVersion,
		SigningKey: w.SigningKey,
	}
}

// proposalID prefers proposal_id; older nodes only send id.
func proposalID(p *node.Proposal) int64 {
	if p.ProposalID != 0 {
		return p.ProposalID
	}
	return p.ID
}
