package outreach

// Artist is one act in the press kit.
type Artist struct {
	Name        string   `json:"name" mapstructure:"name"`
	Description string   `json:"description" mapstructure:"description"`
	Albums      []string `json:"albums" mapstructure:"albums"`
	Spotify     string   `json:"spotify,omitempty" mapstructure:"spotify"`
}

// PressKit is the material every outreach message is built from.
type PressKit struct {
	SiteURL      string   `json:"site_url" mapstructure:"site_url"`
	ContactEmail string   `json:"contact_email" mapstructure:"contact_email"`
	Genres       []string `json:"genres" mapstructure:"genres"`
	Artists      []Artist `json:"artists" mapstructure:"artists"`
}

// DefaultPressKit returns the label's stock press kit.
func DefaultPressKit() PressKit {
	return PressKit{
		SiteURL:      "https://nullrecords.com",
		ContactEmail: "team@nullrecords.com",
		Genres:       []string{"LoFi", "Jazz Fusion", "Electronic Jazz", "Instrumental", "Ambient", "Chillhop", "Experimental"},
		Artists: []Artist{
			{
				Name:        "My Evil Robot Army",
				Description: "Experimental electronic soundscapes blending jazz fusion with lo-fi aesthetics",
				Albums:      []string{"Evil Robot", "Space Jazz"},
				Spotify:     "https://open.spotify.com/artist/myevilrobotarmy",
			},
			{
				Name:        "MERA",
				Description: "Ambient lo-fi compositions exploring the relationship between nature and technology",
				Albums:      []string{"Travel Beyond", "Explorations", "Explorations in Blue"},
				Spotify:     "https://open.spotify.com/artist/mera",
			},
		},
	}
}

// firstN returns up to n leading genres.
func firstN(ss []string, n int) []string {
	if len(ss) < n {
		return ss
	}
	return ss[:n]
}
