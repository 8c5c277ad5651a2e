package domain

import (
	"fmt"
	"strings"
)

// Movement is a single social-movement record in the dataset.
// Only ID is interpreted by the orchestration core; every other field is
// descriptive and passed through to consumers.
type Movement struct {
	// ID is the stable record identifier.
	ID string `json:"id"`

	// Name is the movement's display name.
	Name string `json:"name"`

	// Hashtag is the primary hashtag associated with the movement.
	Hashtag string `json:"hashtag"`

	// Year is the year (or decade label) the movement started.
	Year string `json:"year"`

	// Region is the geographic region.
	Region string `json:"region"`

	// ISO is the ISO country code used for map colouring.
	ISO string `json:"iso"`

	// Scale is the coded scale (local, national, transnational).
	Scale string `json:"scale"`

	// Type is the coded movement type.
	Type string `json:"type"`

	// Regime is the political regime classification.
	Regime string `json:"regime"`

	// Description is the coding rationale text.
	Description string `json:"description"`

	// Outcome is the coded outcome.
	Outcome string `json:"outcome"`

	// Tags holds theme labels such as "Political" or "Social".
	Tags []string `json:"tags"`

	// TweetsCount is the raw tweet volume as coded.
	TweetsCount string `json:"tweets_count,omitempty"`

	// Tweets is the numeric tweet volume used for ranking.
	Tweets int64 `json:"-"`

	// Participants describes the key participant groups.
	Participants string `json:"key_participants,omitempty"`

	// Reoccurrence records whether the movement recurred.
	Reoccurrence string `json:"reoccurrence,omitempty"`

	// LengthDays is the coded duration.
	LengthDays string `json:"length_days,omitempty"`

	// TwitterPenetration is the coded online impact.
	TwitterPenetration string `json:"twitter_penetration,omitempty"`

	// OfflinePresence records whether the movement also took to the streets.
	OfflinePresence string `json:"offline_presence,omitempty"`

	// Wikipedia is a reference URL.
	Wikipedia string `json:"wikipedia,omitempty"`

	// StarRating is the 1-5 online penetration rating.
	StarRating int `json:"star_rating,omitempty"`

	// Similarity is the relevance score when the search was semantic.
	Similarity *float64 `json:"similarity,omitempty"`
}

// Category joins the theme tags, e.g. "Political,Social".
func (m *Movement) Category() string {
	return strings.Join(m.Tags, ",")
}

// Title renders "Name (Year) - Region", falling back to the hashtag or ID
// when the movement has no name.
func (m *Movement) Title() string {
	title := m.Name
	if title == "" {
		title = m.Hashtag
	}
	if title == "" {
		title = "Movement " + m.ID
	}
	if m.Year != "" {
		title += " (" + m.Year + ")"
	}
	if m.Region != "" {
		title += " - " + m.Region
	}
	return title
}

// Details renders the hashtag, category, tweet volume and similarity on one line.
func (m *Movement) Details() string {
	var parts []string
	if m.Hashtag != "" && m.Hashtag != m.Name {
		parts = append(parts, m.Hashtag)
	}
	if len(m.Tags) > 0 {
		parts = append(parts, m.Category())
	}
	if m.TweetsCount != "" {
		parts = append(parts, m.TweetsCount+" tweets")
	}
	if m.Similarity != nil {
		parts = append(parts, fmt.Sprintf("similarity %.2f", *m.Similarity))
	}
	return strings.Join(parts, " · ")
}

// EmbeddingText is the text a movement is embedded from.
func (m *Movement) EmbeddingText() string {
	return "Movement: " + m.Name +
		". Hashtag: " + m.Hashtag +
		". Description: " + m.Description +
		". Theme: " + m.Category() +
		". Region: " + m.Region + "."
}

// ResultSet is the ordered sequence of movements produced by one search.
type ResultSet []Movement

// IDs returns the record identifiers in result order.
func (r ResultSet) IDs() []string {
	ids := make([]string, len(r))
	for i := range r {
		ids[i] = r[i].ID
	}
	return ids
}

// Len returns the number of records.
func (r ResultSet) Len() int {
	return len(r)
}

// NormaliseID converts spreadsheet-style identifiers ("12.0") to their
// canonical string form ("12").
func NormaliseID(id string) string {
	id = strings.TrimSpace(id)
	return strings.TrimSuffix(id, ".0")
}

// SuggestedQueries are the quick-search prompts offered to new users.
var SuggestedQueries = []string{
	"#OscarsSoWhite",
	"Anti-Austerity",
	"Refugees",
	"2014",
	"Europe",
	"Feminism",
	"种族相关的",
}
