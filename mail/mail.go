// Package mail announces new catalog records by email.
package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
	"golang.org/x/time/rate"
)

// SkipHost disables sending when used as SMTP host.
const SkipHost = "skip"

// ErrThrottled is returned when more mails are sent than the configured rate.
var ErrThrottled = errors.New("mail rate exceeded")

// Message is the content of one notification mail.
type Message struct {
	Subject string
	HTML    string
}

// Notifier sends notification mails.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Noop discards every message.
type Noop struct{}

func (Noop) Send(context.Context, Message) error { return nil }

type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	To        string
	PerMinute int
	StartTLS  bool
}

// SMTP sends messages to a fixed recipient through an SMTP server.
type SMTP struct {
	cfg     Config
	limiter *rate.Limiter
	observe func(outcome string)
}

type Option func(*SMTP)

// WithObserver registers a callback receiving "sent", "failed" or
// "throttled" for every message.
func WithObserver(fn func(outcome string)) Option {
	return func(s *SMTP) { s.observe = fn }
}

// New returns Noop for the skip host and an SMTP notifier otherwise.
func New(cfg Config, opts ...Option) Notifier {
	if cfg.Host == "" || cfg.Host == SkipHost {
		return Noop{}
	}
	return NewSMTP(cfg, opts...)
}

func NewSMTP(cfg Config, opts ...Option) *SMTP {
	limit := rate.Inf
	burst := 1
	if cfg.PerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.PerMinute))
		burst = cfg.PerMinute
	}
	s := &SMTP{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		observe: func(string) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if !s.limiter.Allow() {
		s.observe("throttled")
		return ErrThrottled
	}
	if err := s.send(ctx, msg); err != nil {
		s.observe("failed")
		return err
	}
	s.observe("sent")
	return nil
}

func (s *SMTP) send(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := m.To(s.cfg.To); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)

	opts := []gomail.Option{gomail.WithPort(s.cfg.Port), gomail.WithTLSPolicy(gomail.NoTLS)}
	if s.cfg.StartTLS {
		opts[1] = gomail.WithTLSPolicy(gomail.TLSMandatory)
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
