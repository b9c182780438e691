package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danmuck/schemakit/internal/apperr"
	"github.com/danmuck/schemakit/internal/auth"
	"github.com/danmuck/schemakit/internal/observability"
	"github.com/danmuck/schemakit/internal/ratelimit"
)

// request carries what the pipeline resolved before the handler runs.
type request struct {
	id       string
	ip       string
	userID   string
	schemaID string
}

// result is a handler's successful outcome. Either json or raw is set.
type result struct {
	status      int
	json        gin.H
	raw         []byte
	contentType string
}

type handlerFunc func(c *gin.Context, req *request) (result, error)

type endpoint struct {
	method    string
	path      string
	operation string
	rule      ratelimit.Rule
	protected bool
	handle    handlerFunc
}

func (ep endpoint) route() string {
	return ep.method + " " + ep.path
}

// pipeline runs one endpoint: identify the caller, rate limit, authenticate,
// handle, then write the envelope and exactly one log entry.
func (s *Server) pipeline(ep endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()
		req := &request{
			id: uuid.NewString(),
			ip: clientIdentity(c),
		}
		c.Header("X-Request-ID", req.id)

		res, err := s.run(c, ep, req)
		if err != nil {
			s.fail(c, ep, req, start, err)
			return
		}

		switch {
		case res.raw != nil:
			c.Data(res.status, res.contentType, res.raw)
		default:
			res.json["success"] = true
			c.JSON(res.status, res.json)
		}
		observability.RecordAPIResult(ep.route(), res.status, "OK")
		s.logEvent(s.log.Info(), c, ep, req, res.status, start).Msg("api_request")
	}
}

func (s *Server) run(c *gin.Context, ep endpoint, req *request) (result, error) {
	if err := s.limit(c, ep, req); err != nil {
		return result{}, err
	}
	if ep.protected {
		user, err := s.authenticate(c)
		if err != nil {
			return result{}, err
		}
		req.userID = user
	}

	started := time.Now()
	res, err := ep.handle(c, req)
	observability.RecordOperation(ep.operation, time.Since(started), err == nil)
	return res, err
}

// limit applies ep's rule on the key METHOD:identity and sets the
// X-RateLimit-* headers. A failing limiter backend admits the request.
func (s *Server) limit(c *gin.Context, ep endpoint, req *request) error {
	if !ep.rule.Enabled() || s.deps.Limiter == nil {
		return nil
	}
	key := c.Request.Method + ":" + req.ip
	d, err := s.deps.Limiter.Check(c.Request.Context(), key, ep.rule.Limit, ep.rule.Window)
	if err != nil {
		s.log.Warn().Err(err).Str("request_id", req.id).Str("key", key).Msg("rate_limit_unavailable")
		return nil
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	observability.RecordRateLimit(ep.route(), d.Admitted)
	if d.Admitted {
		return nil
	}
	retry := ratelimit.RetryAfter(d, s.now())
	c.Header("Retry-After", strconv.Itoa(retry))
	return apperr.RateLimited(retry)
}

func (s *Server) authenticate(c *gin.Context) (string, error) {
	token, ok := auth.BearerToken(c.GetHeader("Authorization"))
	if !ok || s.deps.Auth == nil {
		return "", apperr.Unauthorized("Authentication required")
	}
	user, err := s.deps.Auth.Resolve(c.Request.Context(), token)
	if err != nil || user == "" {
		return "", &apperr.Error{Kind: apperr.KindUnauthorized, Message: "Authentication required", Err: err}
	}
	return user, nil
}

func (s *Server) fail(c *gin.Context, ep endpoint, req *request, start time.Time, err error) {
	appErr := apperr.From(err)
	status := appErr.Status()
	body := gin.H{
		"success": false,
		"error":   appErr.PublicMessage(),
		"code":    appErr.Code(),
	}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	if appErr.RetryAfter > 0 {
		body["retryAfter"] = appErr.RetryAfter
	}
	c.JSON(status, body)
	observability.RecordAPIResult(ep.route(), status, appErr.Code())

	event := s.log.Warn()
	if status >= http.StatusInternalServerError {
		event = s.log.Error()
	}
	if appErr.Err != nil {
		event = event.AnErr("cause", appErr.Err)
	}
	s.logEvent(event, c, ep, req, status, start).
		Str("kind", appErr.Kind.String()).
		Str("code", appErr.Code()).
		Msg("api_error")
}

func (s *Server) logEvent(event *zerolog.Event, c *gin.Context, ep endpoint, req *request, status int, start time.Time) *zerolog.Event {
	return event.
		Str("request_id", req.id).
		Str("method", ep.method).
		Str("endpoint", ep.path).
		Str("user_id", req.userID).
		Str("schema_id", req.schemaID).
		Int("status", status).
		Dur("duration", s.now().Sub(start)).
		Str("ip", req.ip).
		Str("user_agent", c.Request.UserAgent())
}

// clientIdentity resolves the caller's network identity through gin's
// ClientIP, which reads X-Forwarded-For and X-Real-IP only when the socket
// peer is a trusted proxy. A peer it cannot parse is "unknown".
func clientIdentity(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}
