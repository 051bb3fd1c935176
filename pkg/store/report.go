package store

import (
	"sort"
	"time"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
)

// RecentWindow is how far back the report looks for recent activity.
const RecentWindow = 7 * 24 * time.Hour

// Report summarizes the store.
type Report struct {
	Generated       time.Time
	Total           int
	ByStatus        map[contact.Status]int
	ByType          map[contact.Type]int
	RecentlyReached int
	Responses       []contact.Contact // most recent last
}

// BuildReport computes a Report over cs as of now.
func BuildReport(cs []contact.Contact, now time.Time) Report {
	r := Report{
		Generated: now,
		Total:     len(cs),
		ByStatus:  make(map[contact.Status]int),
		ByType:    make(map[contact.Type]int),
	}
	cutoff := now.Add(-RecentWindow)
	for _, c := range cs {
		r.ByStatus[c.Status]++
		r.ByType[c.Type]++
		if c.ContactedDate != nil && c.ContactedDate.After(cutoff) {
			r.RecentlyReached++
		}
		if c.ResponseReceived {
			r.Responses = append(r.Responses, c)
		}
	}
	sort.SliceStable(r.Responses, func(i, j int) bool {
		return responseTime(r.Responses[i]).Before(responseTime(r.Responses[j]))
	})
	return r
}

// LastResponses returns up to n of the most recent responses.
func (r Report) LastResponses(n int) []contact.Contact {
	if len(r.Responses) <= n {
		return r.Responses
	}
	return r.Responses[len(r.Responses)-n:]
}

func responseTime(c contact.Contact) time.Time {
	if c.ResponseDate == nil {
		return time.Time{}
	}
	return *c.ResponseDate
}
