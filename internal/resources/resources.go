// Package resources holds the static directory of crisis support lines
// surfaced during safety interventions. Lookups are pure; no entry is ever
// fetched from the network.
package resources

import "strings"

// Helpline is one support service shown to the user.
type Helpline struct {
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	Text         string `json:"text,omitempty"`
	URL          string `json:"url,omitempty"`
	Availability string `json:"availability,omitempty"`
}

// DefaultRegion is used when a session carries no region.
const DefaultRegion = "intl"

var directory = map[string][]Helpline{
	"intl": {
		{
			Name:         "Befrienders Worldwide",
			URL:          "https://befrienders.org",
			Availability: "varies by centre",
		},
		{
			Name:         "International Association for Suicide Prevention crisis centre directory",
			URL:          "https://www.iasp.info/suicidalthoughts",
			Availability: "varies by centre",
		},
	},
	"us": {
		{
			Name:         "988 Suicide & Crisis Lifeline",
			Phone:        "988",
			Text:         "988",
			URL:          "https://988lifeline.org",
			Availability: "24/7",
		},
		{
			Name:         "Crisis Text Line",
			Text:         "HOME to 741741",
			URL:          "https://www.crisistextline.org",
			Availability: "24/7",
		},
	},
	"uk": {
		{
			Name:         "Samaritans",
			Phone:        "116 123",
			URL:          "https://www.samaritans.org",
			Availability: "24/7",
		},
		{
			Name:         "Shout",
			Text:         "SHOUT to 85258",
			URL:          "https://giveusashout.org",
			Availability: "24/7",
		},
	},
	"ca": {
		{
			Name:         "9-8-8 Suicide Crisis Helpline",
			Phone:        "988",
			Text:         "988",
			URL:          "https://988.ca",
			Availability: "24/7",
		},
	},
	"au": {
		{
			Name:         "Lifeline Australia",
			Phone:        "13 11 14",
			Text:         "0477 13 11 14",
			URL:          "https://www.lifeline.org.au",
			Availability: "24/7",
		},
	},
	"nz": {
		{
			Name:         "Need to Talk? 1737",
			Phone:        "1737",
			Text:         "1737",
			URL:          "https://1737.org.nz",
			Availability: "24/7",
		},
	},
	"in": {
		{
			Name:         "Kiran Mental Health Helpline",
			Phone:        "1800-599-0019",
			Availability: "24/7",
		},
		{
			Name:         "AASRA",
			Phone:        "+91-9820466726",
			Availability: "24/7",
		},
	},
}

// ForRegion returns the helplines for a region code. Unknown or empty regions
// fall back to the international directory, so callers always get at least
// one entry.
func ForRegion(region string) []Helpline {
	key := strings.ToLower(strings.TrimSpace(region))
	lines, ok := directory[key]
	if !ok {
		lines = directory[DefaultRegion]
	}
	out := make([]Helpline, len(lines))
	copy(out, lines)
	return out
}

// Regions lists the region codes with a dedicated entry.
func Regions() []string {
	out := make([]string, 0, len(directory))
	for key := range directory {
		out = append(out, key)
	}
	return out
}
