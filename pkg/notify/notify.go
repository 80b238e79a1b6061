// Package notify holds the single visible user notification.
package notify

import (
	"sync"
	"time"

	"novafund/pkg/models"
)

const DefaultTimeout = 5 * time.Second

// Presenter shows at most one notification at a time. A newer notification
// replaces the current one and restarts the dismiss timer.
type Presenter struct {
	timeout time.Duration
	now     func() time.Time

	// dispatch is held from the state change until every subscriber has
	// seen it, so deliveries follow the order of Current. Taken before mu.
	dispatch sync.Mutex

	mu          sync.Mutex
	current     *models.Notification
	generation  uint64
	timer       *time.Timer
	subscribers []func(n models.Notification, visible bool)
}

// NewPresenter creates a presenter. A non-positive timeout uses DefaultTimeout.
func NewPresenter(timeout time.Duration) *Presenter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Presenter{timeout: timeout, now: time.Now}
}

// Subscribe registers fn for every show (visible=true) and dismiss. fn must
// not call back into the presenter.
func (p *Presenter) Subscribe(fn func(n models.Notification, visible bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

func (p *Presenter) Success(message string) models.Notification {
	return p.Notify(message, models.SeveritySuccess)
}

func (p *Presenter) Error(message string) models.Notification {
	return p.Notify(message, models.SeverityError)
}

// Notify replaces the visible notification.
func (p *Presenter) Notify(message string, severity models.Severity) models.Notification {
	n := models.Notification{Message: message, Severity: severity, CreatedAt: p.now()}

	p.dispatch.Lock()
	defer p.dispatch.Unlock()

	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.current = &n
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.timeout, func() { p.dismiss(gen) })
	subs := append([]func(models.Notification, bool){}, p.subscribers...)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(n, true)
	}
	return n
}

// dismiss clears the notification only if it is still the one of gen.
func (p *Presenter) dismiss(gen uint64) {
	p.dispatch.Lock()
	defer p.dispatch.Unlock()

	p.mu.Lock()
	if gen != p.generation || p.current == nil {
		p.mu.Unlock()
		return
	}
	n := *p.current
	p.current = nil
	p.timer = nil
	subs := append([]func(models.Notification, bool){}, p.subscribers...)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(n, false)
	}
}

// Current returns the visible notification.
func (p *Presenter) Current() (models.Notification, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return models.Notification{}, false
	}
	return *p.current, true
}

// Clear dismisses the visible notification immediately.
func (p *Presenter) Clear() {
	p.mu.Lock()
	gen := p.generation
	if p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()
	p.dismiss(gen)
}
