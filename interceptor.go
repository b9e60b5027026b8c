package formkit

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type sessionKey struct{ field string }

type requestKey struct{}

// IsMultipart reports whether a Content-Type value selects multipart decoding.
func IsMultipart(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "multipart/form-data")
}

// Boundary extracts the multipart boundary from a Content-Type value.
func Boundary(contentType string) (string, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", &StreamError{Err: err}
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", &StreamError{Err: ErrMissingBoundary}
	}
	return boundary, nil
}

// Interceptor decodes multipart/form-data requests into sessions and lets
// every other request through untouched.
type Interceptor struct {
	opts   Options
	raw    []Option
	logger log.Logger
}

// NewInterceptor returns an interceptor configured with opts. Decoder
// options are applied to every request it decodes.
func NewInterceptor(opts ...Option) *Interceptor {
	o := processOptions(opts...)
	return &Interceptor{
		opts:   o,
		raw:    opts,
		logger: log.With(o.Logger, "component", "formkit"),
	}
}

// RequestField returns the key sessions are attached under
func (i *Interceptor) RequestField() string {
	return i.opts.RequestField
}

// HandleRequest decodes r when its Content-Type is multipart/form-data.
// ok is false, with no error, when the request is passed through.
func (i *Interceptor) HandleRequest(r *http.Request) (session *Session, ok bool, err error) {
	contentType := r.Header.Get("Content-Type")
	if !IsMultipart(contentType) {
		return nil, false, nil
	}

	boundary, err := Boundary(contentType)
	if err != nil {
		level.Error(i.logger).Log("msg", "multipart decode failed", "err", err)
		return nil, true, err
	}

	ctx := context.WithValue(r.Context(), requestKey{}, r)
	dec := NewDecoder(r.Body, boundary, i.raw...)
	rec, err := dec.Decode(ctx)
	if err != nil {
		level.Error(i.logger).Log("msg", "multipart decode failed", "err", err)
		return nil, true, err
	}

	stats := dec.Stats()
	level.Debug(i.logger).Log(
		"msg", "multipart decoded",
		"fields", stats.Fields,
		"files", stats.Files,
		"skipped", stats.Skipped,
		"size", humanize.Bytes(uint64(stats.Bytes)),
	)

	strategy := i.opts.Strategy
	if strategy == nil {
		// sessions stay unbound when the process default cannot be built
		if strategy, err = Default(); err != nil {
			level.Error(i.logger).Log("msg", "default strategy unavailable", "err", err)
			strategy = nil
		}
	}
	session = NewSession(ctx, strategy, rec)
	session.stats = stats
	return session, true, nil
}

// Middleware wraps next so that it sees the decoded session of every
// multipart request. Requests that fail to decode are answered by the
// error handler and never reach next.
func (i *Interceptor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok, err := i.HandleRequest(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			i.opts.ErrorHandler(w, r, err)
			return
		}
		ctx := context.WithValue(session.Context(), sessionKey{i.opts.RequestField}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Session returns the session attached to r by this interceptor.
func (i *Interceptor) Session(r *http.Request) (*Session, bool) {
	return SessionFromContext(r.Context(), i.opts.RequestField)
}

// SessionFromRequest returns the session attached under DefaultRequestField.
func SessionFromRequest(r *http.Request) (*Session, bool) {
	return SessionFromContext(r.Context(), DefaultRequestField)
}

// SessionFromContext returns the session attached under field.
func SessionFromContext(ctx context.Context, field string) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{field}).(*Session)
	return s, ok
}

// RequestFromContext returns the request being decoded. Rename, directory
// and name functions receive a context carrying it.
func RequestFromContext(ctx context.Context) (*http.Request, bool) {
	r, ok := ctx.Value(requestKey{}).(*http.Request)
	return r, ok
}

// StatusCode maps a decode error to an HTTP status.
func StatusCode(err error) int {
	var maxBytes *http.MaxBytesError
	var se *StreamError
	var fe *FieldError
	switch {
	case IsTooLarge(err), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case errors.As(err, &se), errors.As(err, &fe):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// DefaultErrorHandler answers with StatusCode(err) and the error text.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	http.Error(w, err.Error(), StatusCode(err))
}
