package sms

import (
	"sort"
	"sync"

	"taskflow/internal/config"
)

// Registry holds the configured senders by name.
type Registry struct {
	mu      sync.RWMutex
	senders map[string]Sender
}

// NewRegistry creates a registry holding the log sender and, when
// credentials are configured, the Twilio sender.
func NewRegistry(cfg config.SMSConfig) *Registry {
	r := &Registry{
		senders: make(map[string]Sender),
	}

	r.Register(NewLog())
	if cfg.AccountSID != "" && cfg.AuthToken != "" {
		r.Register(NewTwilio(cfg.AccountSID, cfg.AuthToken, cfg.From, cfg.BaseURL))
	}

	return r
}

// Register adds a sender, replacing any sender with the same name.
func (r *Registry) Register(s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[s.Name()] = s
}

// Get returns a sender by name.
func (r *Registry) Get(name string) (Sender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.senders[name]
	if !ok {
		return nil, ErrSenderNotFound
	}
	return s, nil
}

// Names returns the registered sender names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.senders))
	for name := range r.senders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the sender selected by cfg.Provider.
func New(cfg config.SMSConfig) (Sender, error) {
	return NewRegistry(cfg).Get(cfg.Provider)
}
