package entity

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrMatchNotFound  = errors.New("match not found in client history")
	ErrInvalidPhone   = errors.New("invalid phone number")
)

type Role string

const (
	RoleUnset    Role = ""
	RoleSearcher Role = "searcher"
	RoleOwner    Role = "owner"
	RoleInvestor Role = "investor"
	RoleBroker   Role = "broker"
)

// ConversationState é avançado apenas pelo fluxo conversacional.
type ConversationState string

const (
	StateInitial              ConversationState = "initial"
	StateAwaitingName         ConversationState = "awaiting_name"
	StateAwaitingRole         ConversationState = "awaiting_role"
	StateAwaitingRequirements ConversationState = "awaiting_requirements"
	StateCompleted            ConversationState = "completed"
)

type RequestStatus string

const (
	RequestActive   RequestStatus = "active"
	RequestInactive RequestStatus = "inactive"
)

// Entidade: Client (searcher record keyed by normalized phone)
type Client struct {
	Phone string            `json:"phone"`
	Name  string            `json:"name"`
	Role  Role              `json:"role"`
	State ConversationState `json:"state"`

	Requests []Request `json:"requests"`

	// Client-level override, wins over per-request status
	RequestStatus      RequestStatus `json:"request_status"`
	DeactivationReason string        `json:"deactivation_reason,omitempty"`
	DeactivatedAt      *time.Time    `json:"deactivated_at,omitempty"`

	MatchHistory       []Match    `json:"match_history"`
	LastNotificationAt *time.Time `json:"last_notification_at,omitempty"`

	// Exempt the record from bulk cleanup
	IsProtected   bool `json:"is_protected"`
	ManuallyAdded bool `json:"manually_added"`

	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`

	matchIndex map[string]int
}

// NewClient cria um registro vazio no estado inicial.
func NewClient(phone string, now time.Time) *Client {
	c := &Client{
		Phone:         phone,
		State:         StateInitial,
		RequestStatus: RequestActive,
		Requests:      []Request{},
		MatchHistory:  []Match{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	c.reindex()
	return c
}

// clientAlias breaks the UnmarshalJSON recursion.
type clientAlias Client

type clientWire struct {
	clientAlias
	// Registros antigos guardavam um único pedido aqui
	LegacyRequirements *Request `json:"requirements,omitempty"`
}

func (c *Client) UnmarshalJSON(data []byte) error {
	var w clientWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Client(w.clientAlias)

	if len(c.Requests) == 0 && w.LegacyRequirements != nil {
		legacy := *w.LegacyRequirements
		if legacy.ID == "" {
			legacy.ID = LegacyRequestID
		}
		if legacy.Status == "" {
			legacy.Status = RequestActive
		}
		if legacy.CreatedAt.IsZero() {
			legacy.CreatedAt = c.CreatedAt
		}
		if legacy.UpdatedAt.IsZero() {
			legacy.UpdatedAt = c.UpdatedAt
		}
		c.Requests = []Request{legacy}
	}
	if c.Requests == nil {
		c.Requests = []Request{}
	}
	if c.MatchHistory == nil {
		c.MatchHistory = []Match{}
	}
	if c.RequestStatus == "" {
		c.RequestStatus = RequestActive
	}
	c.reindex()
	return nil
}

func (c *Client) reindex() {
	c.matchIndex = make(map[string]int, len(c.MatchHistory))
	for i, m := range c.MatchHistory {
		if _, exists := c.matchIndex[m.OfferID]; !exists {
			c.matchIndex[m.OfferID] = i
		}
	}
}

// HasMatch reports whether the offer was already sent to this client.
func (c *Client) HasMatch(offerID string) bool {
	if c.matchIndex == nil {
		c.reindex()
	}
	_, ok := c.matchIndex[offerID]
	return ok
}

// FindMatch returns a pointer into MatchHistory, or nil.
func (c *Client) FindMatch(offerID string) *Match {
	if c.matchIndex == nil {
		c.reindex()
	}
	i, ok := c.matchIndex[offerID]
	if !ok {
		return nil
	}
	return &c.MatchHistory[i]
}

// AppendMatch adds m unless its offer is already in the history.
func (c *Client) AppendMatch(m Match) bool {
	if c.HasMatch(m.OfferID) {
		return false
	}
	c.MatchHistory = append(c.MatchHistory, m)
	c.matchIndex[m.OfferID] = len(c.MatchHistory) - 1
	return true
}

// Clone returns a deep copy safe to hand out of the store.
func (c *Client) Clone() *Client {
	if c == nil {
		return nil
	}
	out := *c
	out.Requests = make([]Request, len(c.Requests))
	for i, r := range c.Requests {
		out.Requests[i] = r.Clone()
	}
	out.MatchHistory = make([]Match, len(c.MatchHistory))
	copy(out.MatchHistory, c.MatchHistory)
	out.DeactivatedAt = cloneTime(c.DeactivatedAt)
	out.LastNotificationAt = cloneTime(c.LastNotificationAt)
	out.LastMessageAt = cloneTime(c.LastMessageAt)
	out.reindex()
	return &out
}

// IsEligibleSearcher mirrors the filters the matcher applies at client level.
func (c *Client) IsEligibleSearcher() bool {
	return c.Role == RoleSearcher &&
		c.State == StateCompleted &&
		c.RequestStatus != RequestInactive
}

// NotifiedWithin reports whether the last notification happened less than window ago.
func (c *Client) NotifiedWithin(now time.Time, window time.Duration) bool {
	if c.LastNotificationAt == nil {
		return false
	}
	return now.Sub(*c.LastNotificationAt) < window
}

func (c *Client) Touch(now time.Time) {
	c.UpdatedAt = now
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ActiveRequest flattens the client→requests relation for the matcher.
// Client is a snapshot; mutating it does not touch the store.
type ActiveRequest struct {
	Phone   string
	Request Request
	Client  *Client
}
