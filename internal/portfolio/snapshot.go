package portfolio

import "clawtrader/internal/types"

// Snapshot is a deep copy of the full portfolio state. It is what persistence
// adapters receive after every mutation and what they hand back at boot.
type Snapshot struct {
	CashBalance       float64               `json:"cashBalance"`
	StartingBalance   float64               `json:"startingBalance"`
	Positions         []types.Position      `json:"positions"`
	Trades            []types.Trade         `json:"trades"`
	Watchlist         []types.WatchlistItem `json:"watchlist"`
	SelectedAssetID   string                `json:"selectedAssetId"`
	SelectedTimeRange types.TimeRange       `json:"selectedTimeRange"`
}

// Event describes a single applied state transition, for the audit log.
type Event struct {
	Op      string `json:"op"`
	Payload any    `json:"payload,omitempty"`
}

// Persister stores a snapshot after a state transition. Implementations must
// not retain the snapshot slices. A persistence failure is logged by the
// store and never rolls back the in-memory transition.
type Persister interface {
	Save(snap Snapshot, events []Event) error
}

// AssetIDs returns the union of watchlist and open-position asset ids, in
// first-seen order. This is the id set the quote poller refreshes.
func (s Snapshot) AssetIDs() []string {
	seen := make(map[string]struct{}, len(s.Watchlist)+len(s.Positions))
	out := make([]string, 0, len(s.Watchlist)+len(s.Positions))
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, w := range s.Watchlist {
		add(w.ID)
	}
	for _, p := range s.Positions {
		add(p.AssetID)
	}
	return out
}

func cloneSnapshot(s Snapshot) Snapshot {
	out := s
	out.Positions = append([]types.Position(nil), s.Positions...)
	out.Trades = append([]types.Trade(nil), s.Trades...)
	out.Watchlist = append([]types.WatchlistItem(nil), s.Watchlist...)
	return out
}
