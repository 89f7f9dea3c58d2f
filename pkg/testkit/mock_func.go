package testkit

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/shashiranjanraj/krishimitra/pkg/mail"
)

// FuncMocker records calls to a non-HTTP side effect with testify/mock.
type FuncMocker interface {
	Intercept(rawBody []byte) error
	Reset()
	WasCalled() int
	Mock() *mock.Mock
}

// GenericFuncMocker accepts any call and returns nil until told otherwise
// through Mock().
type GenericFuncMocker struct {
	m      mock.Mock
	method string
	mu     sync.Mutex
	calls  int
}

func NewFuncMocker(method string) *GenericFuncMocker {
	gm := &GenericFuncMocker{method: method}
	gm.m.On("Intercept", mock.Anything).Return(nil).Maybe()
	return gm
}

func (gm *GenericFuncMocker) Intercept(rawBody []byte) error {
	gm.mu.Lock()
	gm.calls++
	gm.mu.Unlock()

	return gm.m.Called(rawBody).Error(0)
}

func (gm *GenericFuncMocker) Reset() {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.calls = 0
	gm.m = mock.Mock{}
	gm.m.On("Intercept", mock.Anything).Return(nil).Maybe()
}

func (gm *GenericFuncMocker) WasCalled() int {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.calls
}

// Mock exposes the testify mock for call assertions.
func (gm *GenericFuncMocker) Mock() *mock.Mock { return &gm.m }

// FailWith makes every later Intercept return err.
func (gm *GenericFuncMocker) FailWith(err error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.m = mock.Mock{}
	gm.m.On("Intercept", mock.Anything).Return(err)
}

// ─── Mail ─────────────────────────────────────────────────────────────────────

// SentMail is one message captured by MockMailer.
type SentMail struct {
	To      []string
	Subject string
	Body    string
}

// MockMailer implements mail.Sender. It captures every message and routes
// the call through a FuncMocker so failures can be injected.
type MockMailer struct {
	*GenericFuncMocker
	mu   sync.Mutex
	sent []SentMail
}

func NewMockMailer() *MockMailer {
	return &MockMailer{GenericFuncMocker: NewFuncMocker("sendmail")}
}

var _ mail.Sender = (*MockMailer)(nil)

// Send rejects bad addresses the way the SMTP sender does, before capture.
func (mm *MockMailer) Send(_ context.Context, m *mail.Message) error {
	if err := m.CheckAddresses(); err != nil {
		return err
	}
	mm.mu.Lock()
	mm.sent = append(mm.sent, SentMail{To: m.Recipients(), Subject: m.GetSubject(), Body: m.GetBody()})
	mm.mu.Unlock()

	return mm.Intercept(m.Raw("test@krishimitra.local"))
}

// Sent returns the captured messages in send order.
func (mm *MockMailer) Sent() []SentMail {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return append([]SentMail(nil), mm.sent...)
}
