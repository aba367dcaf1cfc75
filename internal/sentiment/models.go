package sentiment

import "time"

// Post is one unit of user generated text pulled from a post source.
type Post struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url,omitempty"`
	Likes     int       `json:"likes,omitempty"`
	Reposts   int       `json:"reposts,omitempty"`
	Replies   int       `json:"replies,omitempty"`
}

// LabeledPost is a Post plus the classifier output for it. Confidence is
// always present when Label is, and lives in [0,1].
type LabeledPost struct {
	Post
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// DisplayMeta carries profile display data passed through unchanged into the
// assembled report.
type DisplayMeta struct {
	UserName  string `json:"user_name"`
	AvatarURL string `json:"user_avatar,omitempty"`
}

// Aggregate holds the numeric output of folding a labeled post sequence.
type Aggregate struct {
	TotalAnalyzed     int            `json:"total_analyzed"`
	Counts            map[string]int `json:"counts"`
	AverageConfidence float64        `json:"average_confidence"`
	MostPositive      *LabeledPost   `json:"most_positive,omitempty"`
	MostNegative      *LabeledPost   `json:"most_negative,omitempty"`
}

// SentimentProfile is the aggregate for one handle at one point in time.
// It is immutable once assembled; a later analysis for the same handle
// produces a new profile.
type SentimentProfile struct {
	Handle            string         `json:"user_handle" dynamodbav:"user_handle"`
	UserName          string         `json:"user_name" dynamodbav:"user_name"`
	AvatarURL         string         `json:"user_avatar,omitempty" dynamodbav:"user_avatar,omitempty"`
	TotalAnalyzed     int            `json:"total_analyzed" dynamodbav:"total_analyzed"`
	Counts            map[string]int `json:"counts" dynamodbav:"counts"`
	AverageConfidence float64        `json:"average_confidence" dynamodbav:"average_confidence"`
	MostPositive      *LabeledPost   `json:"most_positive,omitempty" dynamodbav:"most_positive,omitempty"`
	MostNegative      *LabeledPost   `json:"most_negative,omitempty" dynamodbav:"most_negative,omitempty"`
	NarrativeSummary  string         `json:"narrative_summary" dynamodbav:"narrative_summary"`
	Posts             []LabeledPost  `json:"posts,omitempty" dynamodbav:"posts,omitempty"`
	Personality       string         `json:"personality_analysis,omitempty" dynamodbav:"personality_analysis,omitempty"`
	AnalyzedAt        time.Time      `json:"analyzed_at" dynamodbav:"analyzed_at"`
}
