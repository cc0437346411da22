// Package capabilities defines the narrow interfaces the engine calls for
// external side effects. The engine consumes these; it never implements the
// delivery mechanics behind them.
package capabilities

import (
	"context"
	"time"
)

// EmailMessage is a single outbound email.
type EmailMessage struct {
	To         string
	Subject    string
	Body       string
	TemplateID string
}

// EmailSender dispatches email and returns the provider message id.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) (string, error)
}

// SMSSender dispatches a text message and returns the provider message id.
type SMSSender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// EntityType distinguishes the CRM record types the engine mutates.
type EntityType string

const (
	EntityTypeLead        EntityType = "lead"
	EntityTypeContact     EntityType = "contact"
	EntityTypeOpportunity EntityType = "opportunity"
)

// Contact is a CRM contact record, reduced to the fields the engine touches.
type Contact struct {
	ID         string
	Email      string
	Phone      string
	Fields     map[string]any
	Tags       []string
	AssignedTo string
}

// Lead is a CRM lead record.
type Lead struct {
	ID         string
	Email      string
	Phone      string
	Score      float64
	Fields     map[string]any
	Tags       []string
	AssignedTo string
}

// Opportunity is a CRM opportunity record.
type Opportunity struct {
	ID        string
	ContactID string
	LeadID    string
	Name      string
	Stage     string
	Value     float64
	Fields    map[string]any
}

// Task is a follow-up task linked to a contact or lead.
type Task struct {
	ID          string
	Title       string
	Description string
	ContactID   string
	LeadID      string
	DueAt       *time.Time
	AssignedTo  string
}

// Notification is an internal message delivered to a user of the CRM.
type Notification struct {
	ID          string
	RecipientID string
	Title       string
	Body        string
	CreatedAt   time.Time
}

// CRMStore is the entity store the engine reads and mutates. Shared mutations
// on the same entity across executions are last-write-wins; the engine does
// not serialize them.
type CRMStore interface {
	GetContact(ctx context.Context, id string) (*Contact, error)
	CreateContact(ctx context.Context, contact *Contact) (string, error)
	UpdateContactField(ctx context.Context, id, field string, value any) error
	GetLead(ctx context.Context, id string) (*Lead, error)
	UpdateLeadField(ctx context.Context, id, field string, value any) error
	UpdateLeadScore(ctx context.Context, id string, score float64) error
	GetOpportunity(ctx context.Context, id string) (*Opportunity, error)
	CreateOpportunity(ctx context.Context, opp *Opportunity) (string, error)
	UpdateOpportunity(ctx context.Context, id string, fields map[string]any) error
	Tags(ctx context.Context, entity EntityType, id string) ([]string, error)
	SetTags(ctx context.Context, entity EntityType, id string, tags []string) error
	Assign(ctx context.Context, entity EntityType, id, userID string) error
	CreateTask(ctx context.Context, task *Task) (string, error)
	CreateNotification(ctx context.Context, n *Notification) (string, error)

	// EmailEventStatus reports whether the given email event (opened, clicked,
	// bounced...) has been recorded for the contact.
	EmailEventStatus(ctx context.Context, contactID, eventType string) (bool, error)
}

// CalendarEvent is a scheduled calendar entry.
type CalendarEvent struct {
	ID        string
	Title     string
	ContactID string
	StartsAt  time.Time
	Duration  time.Duration
}

// CalendarService creates calendar events on behalf of an execution.
type CalendarService interface {
	CreateEvent(ctx context.Context, event *CalendarEvent) (string, error)
}
