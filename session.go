package formkit

import (
	"context"
	"fmt"
)

// Session is the result of decoding one request: the merged record, the
// strategy its files are saved with and the request-scoped context the
// strategy receives.
type Session struct {
	ctx      context.Context
	strategy Strategy
	record   *Record
	stats    DecodeStats
}

// NewSession binds a record to a strategy and a context. A nil strategy is
// allowed; saving through such a session fails with *UnboundSaveError.
func NewSession(ctx context.Context, strategy Strategy, record *Record) *Session {
	if record == nil {
		record = NewRecord()
	}
	return &Session{ctx: ctx, strategy: strategy, record: record}
}

// Record returns the merged record
func (s *Session) Record() *Record {
	return s.record
}

// Context returns the context given to the strategy
func (s *Session) Context() context.Context {
	return s.ctx
}

// Strategy returns the bound strategy, nil when unbound
func (s *Session) Strategy() Strategy {
	return s.strategy
}

// Stats returns the counters of the decode that produced the session
func (s *Session) Stats() DecodeStats {
	return s.stats
}

// Files returns every file of the record, depth first in key order
func (s *Session) Files() []*File {
	return s.record.Files()
}

// WithContext returns a shallow copy of s whose saves use ctx.
func (s *Session) WithContext(ctx context.Context) *Session {
	if ctx == nil {
		panic("nil context")
	}
	s2 := *s
	s2.ctx = ctx
	return &s2
}

// Save stores one file with the bound strategy.
func (s *Session) Save(file *File, opts ...SaveOption) (string, error) {
	if s.strategy == nil {
		return "", &UnboundSaveError{Name: fileName(file)}
	}
	return s.strategy.Save(s.ctx, file, opts...)
}

// SaveMany stores files concurrently with the bound strategy. See SaveMany
// for the failure contract.
func (s *Session) SaveMany(files []*File, opts ...SaveOption) ([]string, error) {
	if len(files) == 0 {
		return []string{}, nil
	}
	if s.strategy == nil {
		return nil, &UnboundSaveError{Name: fileName(files[0])}
	}
	return SaveAll(s.ctx, s.strategy, files, opts...)
}

// SaveAll stores every file of the record.
func (s *Session) SaveAll(opts ...SaveOption) ([]string, error) {
	return s.SaveMany(s.Files(), opts...)
}

// SaveField stores the files found under a raw field name such as
// "user[avatar]" or "photos[]".
func (s *Session) SaveField(field string, opts ...SaveOption) ([]string, error) {
	v, ok := s.record.LookupField(field)
	if !ok {
		return nil, &FieldError{Field: field, Err: fmt.Errorf("no such field")}
	}
	return s.SaveMany(v.Files(), opts...)
}
