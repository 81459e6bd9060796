package providers

import (
	"errors"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/yubzen/switchboard/internal/rpc"
)

// NavCategory tags the count reported after each successful refresh.
const NavCategory = "providers"

// NavCounter receives list sizes for the navigation badges.
type NavCounter interface {
	Update(category string, count int)
}

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ListResult is the settled outcome of one providers.available call.
type ListResult struct {
	OK        bool
	Providers []Provider
	Err       error
}

// ListFromResponse folds a call result into a ListResult. Transport errors,
// absent responses and ok=false all count as failures.
func ListFromResponse(resp rpc.Response, err error) ListResult {
	if err != nil {
		return ListResult{Err: err}
	}
	if !resp.OK {
		return ListResult{Err: resp.Err()}
	}
	var list []Provider
	if err := resp.Decode(&list); err != nil {
		return ListResult{Err: err}
	}
	return ListResult{OK: true, Providers: list}
}

type StoreOption func(*Store)

func WithLocale(tag language.Tag) StoreOption {
	return func(s *Store) {
		s.locale = tag
	}
}

func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store holds the provider list shown on the settings page. It is not safe for
// concurrent use; the owning event loop is its only writer.
type Store struct {
	providers []Provider
	status    Status
	failure   error
	seq       uint64
	nav       NavCounter
	locale    language.Tag
	logger    *slog.Logger
}

func NewStore(nav NavCounter, opts ...StoreOption) *Store {
	s := &Store{
		nav:    nav,
		locale: language.Und,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin marks a refresh as dispatched and returns its sequence number.
func (s *Store) Begin() uint64 {
	s.seq++
	s.status = StatusLoading
	s.failure = nil
	return s.seq
}

// Apply settles the refresh identified by seq. Results for anything but the
// most recently dispatched refresh are discarded and Apply reports false.
// A failed result keeps the current list.
func (s *Store) Apply(seq uint64, res ListResult) bool {
	if seq != s.seq {
		s.logger.Debug("discarding superseded provider list", "seq", seq, "latest", s.seq)
		return false
	}
	if !res.OK {
		s.status = StatusFailed
		s.failure = res.Err
		if s.failure == nil {
			s.failure = errors.New("provider list unavailable")
		}
		s.logger.Warn("provider refresh failed", "error", s.failure)
		return true
	}

	s.providers = ForDisplayIn(s.locale, res.Providers)
	s.status = StatusLoaded
	s.failure = nil
	if s.nav != nil {
		s.nav.Update(NavCategory, len(s.providers))
	}
	return true
}

func (s *Store) Loading() bool {
	return s.status == StatusLoading
}

func (s *Store) Status() Status {
	return s.status
}

// Failure is the reason the last settled refresh failed, or nil.
func (s *Store) Failure() error {
	return s.failure
}

func (s *Store) Providers() []Provider {
	return append([]Provider(nil), s.providers...)
}

func (s *Store) Len() int {
	return len(s.providers)
}

func (s *Store) Lookup(name string) (Provider, bool) {
	for _, p := range s.providers {
		if p.Name == name {
			return p, true
		}
	}
	return Provider{}, false
}
