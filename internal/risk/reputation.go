package risk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
)

// ContractorRef identifies the contractor of the project at Position in the
// ingested batch.
type ContractorRef struct {
	Name     string
	Position int
}

// ReputationProvider answers "is this contractor high risk, and what do we
// call them" for a whole batch at once. The result is index-aligned with
// refs. The scorer never knows which provider is active.
type ReputationProvider interface {
	Reputations(ctx context.Context, refs []ContractorRef) ([]domain.Reputation, error)
}

// PositionalProvider flags every contractor at an even batch position and
// substitutes fixed display names. Deterministic for a fixed batch.
type PositionalProvider struct {
	FlaggedName string
	CleanName   string
}

func NewPositionalProvider() PositionalProvider {
	return PositionalProvider{FlaggedName: "Shiv Shakti Infra", CleanName: "Reliable Build Co"}
}

func (p PositionalProvider) Reputations(_ context.Context, refs []ContractorRef) ([]domain.Reputation, error) {
	out := make([]domain.Reputation, len(refs))
	for i, c := range refs {
		if c.Position%2 == 0 {
			out[i] = domain.Reputation{Flagged: true, DisplayName: p.FlaggedName}
		} else {
			out[i] = domain.Reputation{DisplayName: p.CleanName}
		}
	}
	return out, nil
}

// ListProvider flags contractors on a fixed blocklist (case-insensitive).
type ListProvider struct {
	blocked map[string]struct{}
}

// DefaultBlocklist is the set of contractors with known poor track records.
var DefaultBlocklist = []string{"Shiv Shakti Infra", "Apex Roadways", "Highway Developers Ltd"}

func NewListProvider(names []string) ListProvider {
	blocked := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = normalizeName(n)
		if n == "" {
			continue
		}
		blocked[n] = struct{}{}
	}
	return ListProvider{blocked: blocked}
}

func (p ListProvider) Reputations(_ context.Context, refs []ContractorRef) ([]domain.Reputation, error) {
	out := make([]domain.Reputation, len(refs))
	for i, c := range refs {
		_, bad := p.blocked[normalizeName(c.Name)]
		out[i] = domain.Reputation{Flagged: bad, DisplayName: c.Name}
	}
	return out, nil
}

// ProfileStore is the slice of storage TableProvider needs.
type ProfileStore interface {
	ListContractorProfiles(ctx context.Context) ([]domain.ContractorProfile, error)
}

// TableProvider consults contractor_risk_profiles. A contractor is flagged
// when blacklisted or when its risk score reaches Threshold. The table is
// read once per batch; names missing from it are not flagged.
type TableProvider struct {
	Store     ProfileStore
	Threshold int
}

func (p TableProvider) Reputations(ctx context.Context, refs []ContractorRef) ([]domain.Reputation, error) {
	profiles, err := p.Store.ListContractorProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("contractor profiles: %w", err)
	}
	flagged := make(map[string]bool, len(profiles))
	for _, prof := range profiles {
		flagged[strings.TrimSpace(prof.ContractorName)] = prof.IsBlacklisted || prof.RiskScore >= p.Threshold
	}

	out := make([]domain.Reputation, len(refs))
	for i, c := range refs {
		out[i] = domain.Reputation{DisplayName: c.Name, Flagged: flagged[strings.TrimSpace(c.Name)]}
	}
	return out, nil
}

// NewReputationProvider selects a provider by name. store is only used by "table".
func NewReputationProvider(kind string, blocklist []string, store ProfileStore, threshold int) (ReputationProvider, error) {
	switch kind {
	case "", "mock":
		return NewPositionalProvider(), nil
	case "list":
		if len(blocklist) == 0 {
			blocklist = DefaultBlocklist
		}
		return NewListProvider(blocklist), nil
	case "table":
		if store == nil {
			return nil, errors.New("table reputation provider needs a profile store")
		}
		return TableProvider{Store: store, Threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("unknown reputation provider %q", kind)
	}
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
