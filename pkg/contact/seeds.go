package contact

import "time"

// Seeds returns the static starting list of outreach targets.
func Seeds(now time.Time) []Contact {
	p := func(name string, t Type, email, form, submission, desc string, genres ...string) Params {
		return Params{
			Name:           name,
			Type:           t,
			Email:          email,
			ContactFormURL: form,
			SubmissionURL:  submission,
			Description:    desc,
			GenreFocus:     genres,
		}
	}

	params := []Params{
		// search engines and AI services
		p("Google Search Console", TypeSearchEngine, "", "", "https://search.google.com/search-console/", "Submit sitemap for Google indexing"),
		p("Bing Webmaster Tools", TypeSearchEngine, "", "", "https://www.bing.com/webmasters/", "Submit to Bing search index"),
		p("DuckDuckGo", TypeSearchEngine, "", "https://duckduckgo.com/feedback", "", "Privacy-focused search engine"),
		p("Perplexity AI", TypeAIService, "", "https://www.perplexity.ai/contact", "", "AI-powered search and discovery"),
		p("Claude AI (Anthropic)", TypeAIService, "support@anthropic.com", "", "", "AI assistant for content discovery"),
		p("ChatGPT (OpenAI)", TypeAIService, "", "https://help.openai.com/en/", "", "AI content and music discovery"),

		// platforms
		p("Spotify Editorial", TypePlatform, "", "", "https://artists.spotify.com/c/music/playlist-submission", "Spotify playlist submission", "electronic", "jazz", "lofi", "instrumental"),
		p("Apple Music", TypePlatform, "", "", "https://artists.apple.com/", "Apple Music artist submission"),
		p("Bandcamp", TypePlatform, "", "https://bandcamp.com/contact", "", "Independent music platform"),
		p("SoundCloud", TypePlatform, "", "https://help.soundcloud.com/hc/en-us/requests/new", "", "Audio platform for artists"),
		p("Last.fm", TypePlatform, "", "https://support.last.fm/", "", "Music discovery and scrobbling"),

		// publications
		p("Pitchfork", TypePublication, "tips@pitchfork.com", "", "", "Influential music publication", "electronic", "experimental", "jazz"),
		p("The Fader", TypePublication, "tips@thefader.com", "", "", "Music and culture magazine"),
		p("Stereogum", TypePublication, "tips@stereogum.com", "", "", "Music blog and news"),
		p("Complex Music", TypePublication, "music@complex.com", "", "", "Music and culture publication"),
		p("Consequence of Sound", TypePublication, "tips@consequenceofsound.net", "", "", "Music news and reviews"),
		p("Resident Advisor", TypePublication, "", "https://ra.co/contact", "", "Electronic music publication", "electronic", "ambient", "experimental"),
		p("Jazz Times", TypePublication, "editor@jazztimes.com", "", "", "Jazz music publication", "jazz", "fusion", "experimental"),
		p("All About Jazz", TypePublication, "", "https://www.allaboutjazz.com/contact.php", "", "Jazz publication and database", "jazz", "fusion", "electronic jazz"),
		p("Electronic Beats", TypePublication, "info@electronicbeats.net", "", "", "Electronic music culture magazine"),
		p("Ambient Online", TypePublication, "editor@ambient.org", "", "", "Ambient music publication", "ambient", "electronic", "experimental"),

		// labels and influencers
		p("Chillhop Music", TypeLabel, "demo@chillhopmusic.com", "", "", "LoFi hip hop label and playlist curator", "lofi", "chillhop", "instrumental"),
		p("LoFi Girl", TypeInfluencer, "", "https://lofigirl.com/contact/", "", "Popular LoFi music curator", "lofi", "study music", "chill"),
		p("Majestic Casual", TypeInfluencer, "", "https://majesticcasual.com/contact", "", "Electronic music YouTube channel", "electronic", "chill", "indie"),
		p("Mr. Suicide Sheep", TypeInfluencer, "business@mrsuicidesheep.com", "", "", "Electronic music promotion", "electronic", "indie", "chill"),
		p("Chill Nation", TypeInfluencer, "", "https://www.chillnation.com/contact", "", "Chill music promotion channel"),

		// databases
		p("AllMusic", TypeDatabase, "", "https://www.allmusic.com/contact", "", "Music database and discovery"),
		p("Discogs", TypeDatabase, "", "https://www.discogs.com/help/", "", "Music database and marketplace"),
		p("MusicBrainz", TypeDatabase, "", "https://musicbrainz.org/contact", "", "Open music encyclopedia"),

		// curators
		p("Indie Shuffle", TypeCurator, "submit@indieshuffle.com", "", "", "Music discovery and playlists", "indie", "electronic", "experimental"),
		p("The Music Ninja", TypeCurator, "hello@themusicninja.com", "", "", "Music discovery blog"),
		p("Earmilk", TypeCurator, "submissions@earmilk.com", "", "", "Music discovery platform"),

		// AI music
		p("AIVA Technologies", TypeAIService, "", "https://www.aiva.ai/contact/", "", "AI music composition and discovery"),
		p("Endel", TypeAIService, "hello@endel.io", "", "", "AI-powered adaptive music"),
		p("Mubert", TypeAIService, "hello@mubert.com", "", "", "AI music streaming platform"),
	}

	out := make([]Contact, 0, len(params))
	for _, sp := range params {
		out = append(out, MustNew(sp, now))
	}
	return out
}
