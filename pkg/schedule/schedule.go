// Package schedule orders eligible contacts and picks the daily send list.
package schedule

import (
	"fmt"
	"math"
	"sort"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
)

// Share is the fraction of the daily cap reserved for one contact type.
type Share struct {
	Type     contact.Type `yaml:"type"`
	Fraction float64      `yaml:"fraction"`
}

// Distribution is an ordered list of shares. Order decides the order of the
// scheduled batches.
type Distribution []Share

// DistributionFromMap converts an unordered type->fraction map into a
// Distribution in canonical type order. Unknown types are an error.
func DistributionFromMap(m map[string]float64) (Distribution, error) {
	byType := make(map[contact.Type]float64, len(m))
	for k, v := range m {
		t, err := contact.ParseType(k)
		if err != nil {
			return nil, err
		}
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("fraction for %s must be within [0,1], got %v", t, v)
		}
		byType[t] = v
	}
	var d Distribution
	for _, t := range contact.AllTypes() {
		if f, ok := byType[t]; ok {
			d = append(d, Share{Type: t, Fraction: f})
		}
	}
	return d, nil
}

// Map returns the distribution as a type->fraction map.
func (d Distribution) Map() map[string]float64 {
	out := make(map[string]float64, len(d))
	for _, s := range d {
		out[string(s.Type)] = s.Fraction
	}
	return out
}

// Quota returns how many contacts of a share fit into dailyCap.
func (s Share) Quota(dailyCap int) int {
	// the epsilon keeps 0.29*100 from flooring to 28
	return int(math.Floor(float64(dailyCap)*s.Fraction + 1e-9))
}

// Rank sorts contacts by ascending outreach count, then by descending
// confidence. The sort is stable so ties keep their input order.
func Rank(contacts []contact.Contact) []contact.Contact {
	out := make([]contact.Contact, len(contacts))
	copy(out, contacts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OutreachCount != out[j].OutreachCount {
			return out[i].OutreachCount < out[j].OutreachCount
		}
		return out[i].ConfidenceScore > out[j].ConfidenceScore
	})
	return out
}

// Schedule returns the ordered send list for a day.
//
// A positive perCallLimit truncates the ranked list and ignores the
// distribution. Otherwise each share takes up to its quota of the best
// ranked contacts of its type, in distribution order, and types without a
// share are left out. With no distribution the ranked list is cut at
// dailyCap.
func Schedule(eligible []contact.Contact, dailyCap int, dist Distribution, perCallLimit int) []contact.Contact {
	ranked := Rank(eligible)

	if perCallLimit > 0 {
		return head(ranked, perCallLimit)
	}
	if len(dist) == 0 {
		return head(ranked, dailyCap)
	}

	var out []contact.Contact
	for _, share := range dist {
		quota := share.Quota(dailyCap)
		if quota <= 0 {
			continue
		}
		for _, c := range ranked {
			if quota == 0 {
				break
			}
			if c.Type == share.Type {
				out = append(out, c)
				quota--
			}
		}
	}
	return out
}

func head(cs []contact.Contact, n int) []contact.Contact {
	if n < 0 {
		n = 0
	}
	if len(cs) > n {
		return cs[:n]
	}
	return cs
}
