package mailer

import (
	"sync"
)

// Email records a message captured by the mock.
type Email struct {
	Recipient    string
	TemplateFile string
	Data         any
	Attachments  []Attachment
}

// MockMailer is an in-memory Mailer for tests.
type MockMailer struct {
	mu     sync.RWMutex
	emails []Email
}

func NewMockMailer() *MockMailer {
	return &MockMailer{
		emails: make([]Email, 0),
	}
}

func (m *MockMailer) Send(recipient, templateFile string, data any, attachments ...Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.emails = append(m.emails, Email{
		Recipient:    recipient,
		TemplateFile: templateFile,
		Data:         data,
		Attachments:  attachments,
	})

	return nil
}

// GetSentEmails returns a copy of all captured emails.
func (m *MockMailer) GetSentEmails() []Email {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emails := make([]Email, len(m.emails))
	copy(emails, m.emails)
	return emails
}

func (m *MockMailer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.emails = make([]Email, 0)
}
