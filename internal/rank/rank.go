// Package rank computes progress through the network rank ladder.
package rank

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"networkpay/internal/domain"
)

const (
	RequirementPersonalVolume  = "personal_volume"
	RequirementTeamVolume      = "team_volume"
	RequirementDirectReferrals = "direct_referrals"
)

var hundred = decimal.NewFromInt(100)

// Rank is one rung of the ladder with the thresholds needed to hold it.
type Rank struct {
	Level           int             `json:"level"`
	Name            string          `json:"name"`
	PersonalVolume  decimal.Decimal `json:"personal_volume"`
	TeamVolume      decimal.Decimal `json:"team_volume"`
	DirectReferrals int             `json:"direct_referrals"`
}

// Ladder is ordered by Level, lowest first.
type Ladder []Rank

// DefaultLadder is used when no ladder is configured.
var DefaultLadder = Ladder{
	{Level: 0, Name: "Member"},
	{Level: 1, Name: "Bronze", PersonalVolume: decimal.NewFromInt(500), DirectReferrals: 2},
	{Level: 2, Name: "Silver", PersonalVolume: decimal.NewFromInt(1000), TeamVolume: decimal.NewFromInt(5000), DirectReferrals: 4},
	{Level: 3, Name: "Gold", PersonalVolume: decimal.NewFromInt(2500), TeamVolume: decimal.NewFromInt(25000), DirectReferrals: 8},
	{Level: 4, Name: "Platinum", PersonalVolume: decimal.NewFromInt(5000), TeamVolume: decimal.NewFromInt(100000), DirectReferrals: 15},
	{Level: 5, Name: "Diamond", PersonalVolume: decimal.NewFromInt(10000), TeamVolume: decimal.NewFromInt(500000), DirectReferrals: 30},
}

// Input is what an owner has achieved so far.
type Input struct {
	PersonalVolume  decimal.Decimal `json:"personal_volume"`
	TeamVolume      decimal.Decimal `json:"team_volume"`
	DirectReferrals int             `json:"direct_referrals"`
}

// RequirementProgress is one threshold of the target rank.
type RequirementProgress struct {
	Name     string          `json:"name"`
	Current  decimal.Decimal `json:"current"`
	Required decimal.Decimal `json:"required"`
	Percent  float64         `json:"percent"`
	Met      bool            `json:"met"`
}

// Progress describes where an owner stands on the ladder. Next is nil at the
// top rank.
type Progress struct {
	Current        Rank                  `json:"current"`
	Next           *Rank                 `json:"next"`
	Requirements   []RequirementProgress `json:"requirements"`
	OverallPercent float64               `json:"overall_percent"`
}

// InputFromPurchases derives rank input from all-time purchase records. Only
// completed purchases count.
func InputFromPurchases(records []domain.Record) Input {
	in := Input{PersonalVolume: decimal.Zero, TeamVolume: decimal.Zero}
	referrals := make(map[string]struct{})

	for _, r := range records {
		if !strings.EqualFold(r.Status, domain.StatusCompleted) {
			continue
		}
		switch strings.ToLower(r.Category) {
		case domain.PurchasePersonal:
			in.PersonalVolume = in.PersonalVolume.Add(r.Amount)
		case domain.PurchaseDirect:
			in.TeamVolume = in.TeamVolume.Add(r.Amount)
			if r.Source != "" {
				referrals[r.Source] = struct{}{}
			}
		case domain.PurchaseTeam:
			in.TeamVolume = in.TeamVolume.Add(r.Amount)
		}
	}
	in.DirectReferrals = len(referrals)
	return in
}

// Evaluate climbs the ladder while every requirement of the next rank is met.
func Evaluate(in Input, ladder Ladder) Progress {
	if len(ladder) == 0 {
		ladder = DefaultLadder
	}
	ranks := make(Ladder, len(ladder))
	copy(ranks, ladder)
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].Level < ranks[j].Level })

	current := 0
	for current+1 < len(ranks) && meets(in, ranks[current+1]) {
		current++
	}

	p := Progress{Current: ranks[current]}
	if current+1 == len(ranks) {
		p.Requirements = requirements(in, ranks[current])
		p.OverallPercent = 100
		return p
	}

	next := ranks[current+1]
	p.Next = &next
	p.Requirements = requirements(in, next)

	sum := 0.0
	for _, r := range p.Requirements {
		sum += r.Percent
	}
	p.OverallPercent = round2(sum / float64(len(p.Requirements)))
	return p
}

func meets(in Input, r Rank) bool {
	for _, req := range requirements(in, r) {
		if !req.Met {
			return false
		}
	}
	return true
}

func requirements(in Input, r Rank) []RequirementProgress {
	return []RequirementProgress{
		progress(RequirementPersonalVolume, in.PersonalVolume, r.PersonalVolume),
		progress(RequirementTeamVolume, in.TeamVolume, r.TeamVolume),
		progress(RequirementDirectReferrals, decimal.NewFromInt(int64(in.DirectReferrals)), decimal.NewFromInt(int64(r.DirectReferrals))),
	}
}

func progress(name string, current, required decimal.Decimal) RequirementProgress {
	rp := RequirementProgress{
		Name:     name,
		Current:  current,
		Required: required,
		Met:      current.GreaterThanOrEqual(required),
	}
	switch {
	case rp.Met || !required.IsPositive():
		rp.Percent = 100
	case current.IsPositive():
		rp.Percent, _ = current.Div(required).Mul(hundred).Round(2).Float64()
	}
	return rp
}

func round2(f float64) float64 {
	v, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return v
}
