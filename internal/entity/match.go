package entity

import (
	"time"
)

type InteractionType string

const (
	InteractionOpened    InteractionType = "opened"
	InteractionClicked   InteractionType = "clicked"
	InteractionContacted InteractionType = "contacted"
	InteractionRejected  InteractionType = "rejected"
	InteractionIgnored   InteractionType = "ignored"
)

// ValidInteractions is the set of accepted user responses.
var ValidInteractions = []InteractionType{
	InteractionOpened, InteractionClicked, InteractionContacted, InteractionRejected, InteractionIgnored,
}

func (t InteractionType) IsValid() bool {
	for _, v := range ValidInteractions {
		if t == v {
			return true
		}
	}
	return false
}

// Match is a (client, offer) pairing that was delivered. One entry per OfferID.
type Match struct {
	OfferID         string           `json:"offer_id"`
	OfferTitle      string           `json:"offer_title"`
	OfferLink       string           `json:"offer_link"`
	SimilarityScore int              `json:"similarity_score"`
	MatchQuality    MatchQuality     `json:"match_quality"`
	SentAt          time.Time        `json:"sent_at"`
	UserResponse    *InteractionType `json:"user_response"`

	Opened    bool `json:"opened"`
	Clicked   bool `json:"clicked"`
	Contacted bool `json:"contacted"`
	Rejected  bool `json:"rejected"`
	Ignored   bool `json:"ignored"`

	InteractionAt *time.Time `json:"interaction_at,omitempty"`
}

// ApplyInteraction sets the flag for t and records the response time.
func (m *Match) ApplyInteraction(t InteractionType, at time.Time) {
	switch t {
	case InteractionOpened:
		m.Opened = true
	case InteractionClicked:
		m.Clicked = true
	case InteractionContacted:
		m.Contacted = true
	case InteractionRejected:
		m.Rejected = true
	case InteractionIgnored:
		m.Ignored = true
	}
	resp := t
	m.UserResponse = &resp
	m.InteractionAt = &at
}

type MatchQuality string

const (
	QualityExcellent MatchQuality = "excellent"
	QualityVeryGood  MatchQuality = "very_good"
	QualityGood      MatchQuality = "good"
	QualityFair      MatchQuality = "fair"
	QualityWeak      MatchQuality = "weak"
)

// QualityFor maps a 0..100 score to its label.
func QualityFor(score int) MatchQuality {
	switch {
	case score >= 90:
		return QualityExcellent
	case score >= 80:
		return QualityVeryGood
	case score >= 70:
		return QualityGood
	case score >= 50:
		return QualityFair
	default:
		return QualityWeak
	}
}

// Stars renders the quality indicator used in messages.
func (q MatchQuality) Stars() string {
	switch q {
	case QualityExcellent:
		return "⭐⭐⭐⭐⭐"
	case QualityVeryGood:
		return "⭐⭐⭐⭐"
	case QualityGood:
		return "⭐⭐⭐"
	case QualityFair:
		return "⭐⭐"
	default:
		return "⭐"
	}
}

// Similarity is the result of comparing a requirement with an offer.
type Similarity struct {
	Score        int          `json:"score"`
	Breakdown    Breakdown    `json:"breakdown"`
	MatchQuality MatchQuality `json:"match_quality"`
}

// Breakdown holds 0..100 sub-scores.
type Breakdown struct {
	Price    int `json:"price"`
	Area     int `json:"area"`
	Location int `json:"location"`
}

// MatchCandidate is one entry of the outbound notification worklist.
type MatchCandidate struct {
	PhoneNumber string      `json:"phone_number"`
	Name        string      `json:"name"`
	RequestID   string      `json:"request_id"`
	Requirement Requirement `json:"requirement"`
	Offer       Offer       `json:"offer"`
	Similarity  Similarity  `json:"similarity"`
}
