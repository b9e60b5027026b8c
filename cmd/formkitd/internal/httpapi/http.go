package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/gobeaver/formkit"
	"github.com/gobeaver/formkit/cmd/formkitd/internal/config"
)

func NewHTTPServer(conf config.Api, interceptor *formkit.Interceptor, logger log.Logger) *http.Server {
	var h http.Handler = NewRouter(interceptor, conf.MaxBodyBytes(), logger)
	if len(conf.CORS.AllowedOrigins) > 0 {
		h = handlers.CORS(corsOptions(conf.CORS)...)(h)
	}
	return &http.Server{
		Addr:         conf.HTTPAddr,
		Handler:      WithRecovery(h, logger),
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
	}
}

// NewRouter serves uploads through interceptor. Bodies larger than
// maxBody bytes are refused when maxBody is positive.
func NewRouter(interceptor *formkit.Interceptor, maxBody int64, logger log.Logger) http.Handler {
	var upload http.Handler = interceptor.Middleware(UploadHandler(logger))
	if maxBody > 0 {
		upload = http.MaxBytesHandler(upload, maxBody)
	}

	r := mux.NewRouter()
	r.Handle("/upload", upload).Methods(http.MethodPost)
	r.HandleFunc("/healthz", HealthHandler(logger)).Methods(http.MethodGet)
	return r
}

// WithRecovery answers 500 when h panics and logs the panic.
func WithRecovery(h http.Handler, logger log.Logger) http.Handler {
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{logger}))(h)
}

func corsOptions(c config.CORS) []handlers.CORSOption {
	opts := []handlers.CORSOption{handlers.AllowedOrigins(c.AllowedOrigins)}
	if len(c.AllowedMethods) > 0 {
		opts = append(opts, handlers.AllowedMethods(c.AllowedMethods))
	}
	if len(c.AllowedHeaders) > 0 {
		opts = append(opts, handlers.AllowedHeaders(c.AllowedHeaders))
	}
	if c.MaxAge > 0 {
		opts = append(opts, handlers.MaxAge(c.MaxAge))
	}
	if c.AllowCredentials {
		opts = append(opts, handlers.AllowCredentials())
	}
	return opts
}

type recoveryLogger struct {
	logger log.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	level.Error(l.logger).Log("msg", "handler panic", "err", fmt.Sprint(v...))
}
