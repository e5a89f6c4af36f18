// Package httpcontext bridges fasthttp request contexts to the stdlib
// context.Context the use cases expect, bounding every sync and repository
// call with the configured request deadline.
package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	appLogger "github.com/planbeam/taskboard/pkg/logger"
)

// Key identifies request metadata stashed in the derived context.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeyUserAgent  Key = "user_agent"
)

// Adapter derives deadline-bound contexts from incoming board API requests.
type Adapter struct {
	timeout time.Duration
}

func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{timeout: timeout}
}

// Attach returns a context carrying the request deadline, the request ID,
// and caller metadata. It also echoes the request ID back on the response
// so clients can quote it when reporting sync problems.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	derived, cancel := context.WithTimeout(context.Background(), a.timeout)

	requestID := requestIDFrom(ctx)
	derived = appLogger.ContextWithRequestID(derived, requestID)
	ctx.Response.Header.Set("X-Request-ID", requestID)

	if addr := ctx.RemoteAddr(); addr != nil {
		derived = context.WithValue(derived, KeyRemoteAddr, addr.String())
	}
	if agent := string(ctx.Request.Header.UserAgent()); agent != "" {
		derived = context.WithValue(derived, KeyUserAgent, agent)
	}
	return derived, cancel
}

// requestIDFrom honors a client-supplied X-Request-ID and generates one
// otherwise.
func requestIDFrom(ctx *fasthttp.RequestCtx) string {
	if ctx != nil {
		if id := strings.TrimSpace(string(ctx.Request.Header.Peek("X-Request-ID"))); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
