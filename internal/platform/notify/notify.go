// Package notify delivers clinical alerts (held doses, refusals, critical
// vitals) to care staff with template rendering, in-memory storage, retry
// logic, and test doubles.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Channel represents the route used to deliver an alert.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPager Channel = "pager"
)

// Alert represents a single outbound clinical alert.
type Alert struct {
	ID           string            `json:"id"`
	Channel      Channel           `json:"channel"`
	Recipient    string            `json:"recipient"`
	Subject      string            `json:"subject,omitempty"`
	Body         string            `json:"body"`
	TemplateID   string            `json:"template_id,omitempty"`
	TemplateData map[string]string `json:"template_data,omitempty"`
	Priority     string            `json:"priority"`
	Status       string            `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	SentAt       *time.Time        `json:"sent_at,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// PagerSender is the interface for paging on-call staff.
type PagerSender interface {
	SendPage(ctx context.Context, to, body string) error
}

// Template defines a reusable alert template.
type Template struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Subject string  `json:"subject"`
	Body    string  `json:"body"`
	Channel Channel `json:"channel"`
}

// TemplateEngine manages alert templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      "dose-held",
			Name:    "Dose Held",
			Subject: "Dose held for patient {{patient_id}}",
			Body:    "{{medication}} scheduled {{scheduled_time}} was held by {{nurse}}. Reason: {{reason}}. {{details}}",
			Channel: ChannelEmail,
		},
		{
			ID:      "dose-refused",
			Name:    "Dose Refused",
			Subject: "Dose refused by patient {{patient_id}}",
			Body:    "Patient {{patient_id}} refused {{medication}} scheduled {{scheduled_time}}. Reason: {{reason}}",
			Channel: ChannelEmail,
		},
		{
			ID:      "dose-missed",
			Name:    "Dose Missed",
			Subject: "Missed dose for patient {{patient_id}}",
			Body:    "{{medication}} scheduled {{scheduled_time}} passed its due window without administration.",
			Channel: ChannelEmail,
		},
		{
			ID:      "critical-vitals",
			Name:    "Critical Vital Signs",
			Subject: "CRITICAL vitals for patient {{patient_id}}",
			Body:    "Vital signs recorded at {{recorded_at}} are in the critical range: {{parameters}}.",
			Channel: ChannelPager,
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

func (e *TemplateEngine) channelFor(templateID string) Channel {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if t, ok := e.templates[templateID]; ok {
		return t.Channel
	}
	return ChannelEmail
}

// Manager orchestrates sending, storage, and retrieval of alerts.
type Manager struct {
	emailSender EmailSender
	pagerSender PagerSender
	templates   *TemplateEngine
	mu          sync.RWMutex
	alerts      map[string]*Alert
}

// NewManager constructs a Manager.
func NewManager(email EmailSender, pager PagerSender, tpl *TemplateEngine) *Manager {
	return &Manager{
		emailSender: email,
		pagerSender: pager,
		templates:   tpl,
		alerts:      make(map[string]*Alert),
	}
}

func (m *Manager) dispatch(ctx context.Context, a *Alert) error {
	switch a.Channel {
	case ChannelEmail:
		return m.emailSender.SendEmail(ctx, a.Recipient, a.Subject, a.Body)
	case ChannelPager:
		return m.pagerSender.SendPage(ctx, a.Recipient, a.Body)
	default:
		return fmt.Errorf("unsupported alert channel: %s", a.Channel)
	}
}

// Send dispatches an alert through the appropriate channel, assigns an ID and
// timestamps, and persists the result in-memory.
func (m *Manager) Send(ctx context.Context, a *Alert) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now().UTC()
	a.Status = "pending"

	sendErr := m.dispatch(ctx, a)
	if sendErr != nil {
		a.Status = "failed"
		a.Error = sendErr.Error()
	} else {
		a.Status = "sent"
		sentAt := time.Now().UTC()
		a.SentAt = &sentAt
	}

	m.mu.Lock()
	m.alerts[a.ID] = a
	m.mu.Unlock()

	return sendErr
}

// SendFromTemplate renders a template and sends the resulting alert.
func (m *Manager) SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*Alert, error) {
	subject, body, err := m.templates.Render(templateID, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	a := &Alert{
		Channel:      m.templates.channelFor(templateID),
		Recipient:    recipient,
		Subject:      subject,
		Body:         body,
		TemplateID:   templateID,
		TemplateData: data,
		Priority:     "normal",
	}

	if err := m.Send(ctx, a); err != nil {
		return a, err
	}
	return a, nil
}

// Get retrieves an alert by ID.
func (m *Manager) Get(_ context.Context, id string) (*Alert, error) {
	m.mu.RLock()
	a, ok := m.alerts[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("alert %q not found", id)
	}
	return a, nil
}

// ListByRecipient returns alerts for a given recipient, up to limit.
func (m *Manager) ListByRecipient(_ context.Context, recipient string, limit int) ([]*Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Alert
	for _, a := range m.alerts {
		if a.Recipient == recipient {
			result = append(result, a)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

// Retry re-sends a failed alert. Returns an error if the alert is not in
// "failed" status.
func (m *Manager) Retry(ctx context.Context, id string) error {
	m.mu.RLock()
	a, ok := m.alerts[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("alert %q not found", id)
	}
	if a.Status != "failed" {
		return fmt.Errorf("alert %q is not in failed status (current: %s)", id, a.Status)
	}

	sendErr := m.dispatch(ctx, a)

	m.mu.Lock()
	if sendErr != nil {
		a.Status = "failed"
		a.Error = sendErr.Error()
	} else {
		a.Status = "sent"
		sentAt := time.Now().UTC()
		a.SentAt = &sentAt
		a.Error = ""
	}
	m.mu.Unlock()

	return sendErr
}

// Stats returns counts of alerts grouped by status.
func (m *Manager) Stats(_ context.Context) map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]int)
	for _, a := range m.alerts {
		stats[a.Status]++
	}
	return stats
}

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// PageCall records a single call to SendPage.
type PageCall struct {
	To   string
	Body string
}

// MockPagerSender is a test double for PagerSender.
type MockPagerSender struct {
	mu         sync.Mutex
	calls      []PageCall
	ShouldFail bool
	FailError  string
}

// SendPage records the call and optionally returns an error.
func (m *MockPagerSender) SendPage(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, PageCall{To: to, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded page calls.
func (m *MockPagerSender) Calls() []PageCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PageCall, len(m.calls))
	copy(out, m.calls)
	return out
}
