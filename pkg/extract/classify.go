package extract

import (
	"strings"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
)

type typeRule struct {
	typ   contact.Type
	terms []string
}

// typeRules are checked in order; the first match wins.
var typeRules = []typeRule{
	{contact.TypePublication, []string{"blog", "magazine", "publication", "review"}},
	{contact.TypeCurator, []string{"playlist", "curator", "mix"}},
	{contact.TypeLabel, []string{"label", "records"}},
	{contact.TypeInfluencer, []string{"radio", "podcast"}},
}

type genreRule struct {
	genre string
	terms []string
}

// genreRules is the genre taxonomy in output order.
var genreRules = []genreRule{
	{"electronic", []string{"electronic", "edm", "techno", "house", "ambient"}},
	{"jazz", []string{"jazz", "fusion", "bebop", "smooth jazz"}},
	{"lofi", []string{"lofi", "lo-fi", "chill", "chillhop", "study"}},
	{"experimental", []string{"experimental", "avant-garde", "noise", "abstract"}},
	{"indie", []string{"indie", "independent", "alternative"}},
	{"hip-hop", []string{"hip-hop", "rap", "beats", "instrumental hip-hop"}},
}

// Classify guesses the contact type from page text and URL. Pages that match
// no rule are publications.
func Classify(text, pageURL string) contact.Type {
	text = strings.ToLower(text)
	pageURL = strings.ToLower(pageURL)
	for _, r := range typeRules {
		for _, term := range r.terms {
			if strings.Contains(text, term) || strings.Contains(pageURL, term) {
				return r.typ
			}
		}
	}
	return contact.TypePublication
}

// Genres returns up to three genres mentioned in text, in taxonomy order.
func Genres(text string) []string {
	text = strings.ToLower(text)
	out := []string{}
	for _, r := range genreRules {
		if len(out) == maxGenres {
			break
		}
		for _, term := range r.terms {
			if strings.Contains(text, term) {
				out = append(out, r.genre)
				break
			}
		}
	}
	return out
}
