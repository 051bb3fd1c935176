package discover

import "github.com/NullRecords/nullrecords-cms/pkg/contact"

// Kind classifies what happened to one visited URL.
type Kind string

const (
	KindCandidate     Kind = "candidate"
	KindNoContact     Kind = "no_contact"
	KindDuplicate     Kind = "duplicate"
	KindSkippedSource Kind = "skipped_source"
	KindFetchError    Kind = "fetch_error"
	KindParseError    Kind = "parse_error"
)

// Outcome is the result of visiting one search hit.
type Outcome struct {
	URL     string
	Kind    Kind
	Contact *contact.Contact // set for candidates and duplicates
	Err     error
}

// Result collects a discovery pass.
type Result struct {
	Candidates   []contact.Contact
	Outcomes     []Outcome
	Queries      int
	SearchErrors []error
}

func (r *Result) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Kind == KindCandidate && o.Contact != nil {
		r.Candidates = append(r.Candidates, *o.Contact)
	}
}

// Count returns how many outcomes have kind k.
func (r *Result) Count(k Kind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == k {
			n++
		}
	}
	return n
}
