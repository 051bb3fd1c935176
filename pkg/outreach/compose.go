package outreach

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
)

// Message is a composed plain-text email.
type Message struct {
	Subject string
	Body    string
}

// Composer builds press-kit emails. Variant choices are derived from the
// contact fingerprint, so a contact always gets the same wording.
type Composer struct {
	Kit PressKit
}

// NewComposer returns a Composer for kit.
func NewComposer(kit PressKit) *Composer {
	return &Composer{Kit: kit}
}

var relevance = map[contact.Type]string{
	contact.TypeSearchEngine: "Our site features comprehensive metadata and structured data for music discovery indexing.",
	contact.TypeAIService:    "Our music sits at the intersection of human creativity and AI-assisted composition, a natural fit for AI music discovery platforms.",
	contact.TypeInfluencer:   "Our music aligns with your audience's taste for innovative, high-quality independent music.",
	contact.TypePlatform:     "We're looking to connect with new audiences who appreciate independently-produced music.",
	contact.TypeCurator:      "Our catalog offers tracks that fit playlists focused on electronic and jazz fusion music.",
	contact.TypeLabel:        "We're open to collaboration and partnership opportunities with like-minded labels.",
	contact.TypeDatabase:     "We'd love to make sure our music is properly catalogued and discoverable through your platform.",
}

// Compose returns the message for c.
func (m *Composer) Compose(c contact.Contact) Message {
	kit := m.Kit
	focus := c.GenreFocus
	lead := "Electronic"
	if len(focus) > 0 {
		lead = focus[0]
	}
	pair := "Electronic Jazz"
	if len(focus) > 0 {
		pair = strings.Join(firstN(focus, 2), ", ")
	}

	subjects := []string{
		fmt.Sprintf("Introducing NullRecords: %s Music Collective", strings.Join(firstN(kit.Genres, 3), ", ")),
		fmt.Sprintf("New Music Discovery: NullRecords - Independent %s Artists", lead),
		"Press Kit: NullRecords - Innovative Music at the Intersection of Art & Technology",
		fmt.Sprintf("NullRecords: Fresh Sounds in %s", pair),
	}
	greetings := []string{
		fmt.Sprintf("Hello %s team,", c.Name),
		"Hi there,",
		"Greetings from NullRecords,",
		"Hello,",
	}
	intros := []string{
		"I hope this message finds you well! I'm reaching out to introduce you to NullRecords, an independent music collective creating innovative sounds at the intersection of music, art, and technology.",
		fmt.Sprintf("We're a group of artists pushing the boundaries of %s, and we'd love to share our music with your audience.", strings.Join(firstN(kit.Genres, 4), ", ")),
		"NullRecords represents a new wave of independent artists exploring the relationship between human creativity and digital innovation through music.",
	}

	why, ok := relevance[c.Type]
	if c.Type == contact.TypePublication {
		blend := focus
		if len(blend) == 0 {
			blend = firstN(kit.Genres, 3)
		}
		why = fmt.Sprintf("Our artists create unique sounds that blend %s, offering fresh content for your readers.", strings.Join(blend, ", "))
	} else if !ok {
		why = relevance[contact.TypePlatform]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n\n", variant(greetings, c.Fingerprint, "greeting"), variant(intros, c.Fingerprint, "intro"))
	b.WriteString("Our Artists:\n")
	for _, a := range kit.Artists {
		fmt.Fprintf(&b, "- %s: %s\n", a.Name, a.Description)
		if len(a.Albums) > 0 {
			fmt.Fprintf(&b, "  Albums: %s\n", strings.Join(a.Albums, ", "))
		}
	}
	fmt.Fprintf(&b, "\nExplore Our Music:\n- Website: %s\n- Full artist profiles and streaming links available\n- Press photos and assets available upon request\n\n", kit.SiteURL)
	fmt.Fprintf(&b, "Why This Might Interest You:\n- %s\n\n", why)
	fmt.Fprintf(&b, "We'd love to hear your thoughts, questions, or any opportunities for collaboration. Please reach out to us at %s.\n\n", kit.ContactEmail)
	b.WriteString("Thank you for your time and for supporting independent music!\n\n")
	fmt.Fprintf(&b, "Best regards,\nThe NullRecords Team\n%s\n%s\n\n", kit.SiteURL, kit.ContactEmail)
	b.WriteString("---\nIf you'd prefer not to receive future communications, please reply and let us know.\n")

	return Message{
		Subject: variant(subjects, c.Fingerprint, "subject"),
		Body:    b.String(),
	}
}

// variant picks one of opts from a hash of key and salt.
func variant(opts []string, key, salt string) string {
	h := fnv.New32a()
	h.Write([]byte(salt + ":" + key))
	return opts[h.Sum32()%uint32(len(opts))]
}
