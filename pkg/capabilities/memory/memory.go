// Package memory provides in-memory capability implementations for tests and
// local development. They record every call so tests can assert on effects.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dripflow/dripflow/pkg/capabilities"
	"github.com/google/uuid"
)

// EmailSender records sent emails in memory.
type EmailSender struct {
	mu   sync.Mutex
	Sent []capabilities.EmailMessage
}

func NewEmailSender() *EmailSender {
	return &EmailSender{}
}

func (s *EmailSender) Send(_ context.Context, msg capabilities.EmailMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Sent = append(s.Sent, msg)

	return "email-" + uuid.New().String()[:8], nil
}

// SMSSender records sent text messages in memory.
type SMSSender struct {
	mu   sync.Mutex
	Sent []SentSMS
}

type SentSMS struct {
	To   string
	Body string
}

func NewSMSSender() *SMSSender {
	return &SMSSender{}
}

func (s *SMSSender) Send(_ context.Context, to, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Sent = append(s.Sent, SentSMS{To: to, Body: body})

	return "sms-" + uuid.New().String()[:8], nil
}

// CalendarService records created events in memory.
type CalendarService struct {
	mu     sync.Mutex
	Events []capabilities.CalendarEvent
}

func NewCalendarService() *CalendarService {
	return &CalendarService{}
}

func (s *CalendarService) CreateEvent(_ context.Context, event *capabilities.CalendarEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = "cal-" + uuid.New().String()[:8]
	}

	s.Events = append(s.Events, *event)

	return event.ID, nil
}

// CRMStore is a map-backed CRM entity store.
type CRMStore struct {
	mu            sync.RWMutex
	contacts      map[string]*capabilities.Contact
	leads         map[string]*capabilities.Lead
	opportunities map[string]*capabilities.Opportunity
	tasks         map[string]*capabilities.Task
	notifications map[string]*capabilities.Notification
	emailEvents   map[string]map[string]bool // contactID -> eventType -> seen
}

func NewCRMStore() *CRMStore {
	return &CRMStore{
		contacts:      make(map[string]*capabilities.Contact),
		leads:         make(map[string]*capabilities.Lead),
		opportunities: make(map[string]*capabilities.Opportunity),
		tasks:         make(map[string]*capabilities.Task),
		notifications: make(map[string]*capabilities.Notification),
		emailEvents:   make(map[string]map[string]bool),
	}
}

// SeedLead inserts a lead directly, for tests.
func (s *CRMStore) SeedLead(lead *capabilities.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leads[lead.ID] = lead
}

// SeedContact inserts a contact directly, for tests.
func (s *CRMStore) SeedContact(contact *capabilities.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contacts[contact.ID] = contact
}

// RecordEmailEvent marks an email event as seen for a contact, for tests.
func (s *CRMStore) RecordEmailEvent(contactID, eventType string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailEvents[contactID] == nil {
		s.emailEvents[contactID] = make(map[string]bool)
	}

	s.emailEvents[contactID][eventType] = true
}

// Tasks returns a snapshot of the created tasks, for tests.
func (s *CRMStore) Tasks() []*capabilities.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*capabilities.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}

	return tasks
}

func (s *CRMStore) GetContact(_ context.Context, id string) (*capabilities.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contact, ok := s.contacts[id]
	if !ok {
		return nil, fmt.Errorf("contact not found: %s", id)
	}

	copied := *contact

	return &copied, nil
}

func (s *CRMStore) CreateContact(_ context.Context, contact *capabilities.Contact) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if contact.ID == "" {
		contact.ID = "contact-" + uuid.New().String()[:8]
	}

	if contact.Fields == nil {
		contact.Fields = make(map[string]any)
	}

	s.contacts[contact.ID] = contact

	return contact.ID, nil
}

func (s *CRMStore) UpdateContactField(_ context.Context, id, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contact, ok := s.contacts[id]
	if !ok {
		return fmt.Errorf("contact not found: %s", id)
	}

	if contact.Fields == nil {
		contact.Fields = make(map[string]any)
	}

	contact.Fields[field] = value

	return nil
}

func (s *CRMStore) GetLead(_ context.Context, id string) (*capabilities.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[id]
	if !ok {
		return nil, fmt.Errorf("lead not found: %s", id)
	}

	copied := *lead

	return &copied, nil
}

func (s *CRMStore) UpdateLeadField(_ context.Context, id, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return fmt.Errorf("lead not found: %s", id)
	}

	if lead.Fields == nil {
		lead.Fields = make(map[string]any)
	}

	lead.Fields[field] = value

	return nil
}

func (s *CRMStore) UpdateLeadScore(_ context.Context, id string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return fmt.Errorf("lead not found: %s", id)
	}

	lead.Score = score

	return nil
}

func (s *CRMStore) GetOpportunity(_ context.Context, id string) (*capabilities.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opp, ok := s.opportunities[id]
	if !ok {
		return nil, fmt.Errorf("opportunity not found: %s", id)
	}

	copied := *opp

	return &copied, nil
}

func (s *CRMStore) CreateOpportunity(_ context.Context, opp *capabilities.Opportunity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opp.ID == "" {
		opp.ID = "opp-" + uuid.New().String()[:8]
	}

	if opp.Fields == nil {
		opp.Fields = make(map[string]any)
	}

	s.opportunities[opp.ID] = opp

	return opp.ID, nil
}

func (s *CRMStore) UpdateOpportunity(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opp, ok := s.opportunities[id]
	if !ok {
		return fmt.Errorf("opportunity not found: %s", id)
	}

	for k, v := range fields {
		switch k {
		case "name":
			if name, ok := v.(string); ok {
				opp.Name = name
			}
		case "stage":
			if stage, ok := v.(string); ok {
				opp.Stage = stage
			}
		case "value":
			if value, ok := v.(float64); ok {
				opp.Value = value
			}
		default:
			if opp.Fields == nil {
				opp.Fields = make(map[string]any)
			}

			opp.Fields[k] = v
		}
	}

	return nil
}

func (s *CRMStore) Tags(_ context.Context, entity capabilities.EntityType, id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch entity {
	case capabilities.EntityTypeContact:
		if contact, ok := s.contacts[id]; ok {
			return append([]string(nil), contact.Tags...), nil
		}
	case capabilities.EntityTypeLead:
		if lead, ok := s.leads[id]; ok {
			return append([]string(nil), lead.Tags...), nil
		}
	case capabilities.EntityTypeOpportunity:
	}

	return nil, fmt.Errorf("%s not found: %s", entity, id)
}

func (s *CRMStore) SetTags(_ context.Context, entity capabilities.EntityType, id string, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch entity {
	case capabilities.EntityTypeContact:
		if contact, ok := s.contacts[id]; ok {
			contact.Tags = tags

			return nil
		}
	case capabilities.EntityTypeLead:
		if lead, ok := s.leads[id]; ok {
			lead.Tags = tags

			return nil
		}
	case capabilities.EntityTypeOpportunity:
	}

	return fmt.Errorf("%s not found: %s", entity, id)
}

func (s *CRMStore) Assign(_ context.Context, entity capabilities.EntityType, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch entity {
	case capabilities.EntityTypeContact:
		if contact, ok := s.contacts[id]; ok {
			contact.AssignedTo = userID

			return nil
		}
	case capabilities.EntityTypeLead:
		if lead, ok := s.leads[id]; ok {
			lead.AssignedTo = userID

			return nil
		}
	case capabilities.EntityTypeOpportunity:
	}

	return fmt.Errorf("%s not found: %s", entity, id)
}

func (s *CRMStore) CreateTask(_ context.Context, task *capabilities.Task) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = "task-" + uuid.New().String()[:8]
	}

	s.tasks[task.ID] = task

	return task.ID, nil
}

func (s *CRMStore) CreateNotification(_ context.Context, n *capabilities.Notification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = "notif-" + uuid.New().String()[:8]
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	s.notifications[n.ID] = n

	return n.ID, nil
}

func (s *CRMStore) EmailEventStatus(_ context.Context, contactID, eventType string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.emailEvents[contactID][eventType], nil
}
