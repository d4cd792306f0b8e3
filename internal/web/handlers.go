package web

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	tempmail "github.com/tempmailkit/tempmail-go"
)

const (
	msgNoDomains     = "Unable to fetch domains. Please try again later."
	msgGenerateFirst = "Please generate an email address from the Generate Email tab first."
	msgInvalidName   = "Invalid email name. Only letters, numbers, underscores, or hyphens are allowed."
)

// sessionView is the payload of every session endpoint.
type sessionView struct {
	Session tempmail.Snapshot `json:"session"`
	Notices []tempmail.Notice `json:"notices"`
}

type domainsView struct {
	Domains   []string          `json:"domains"`
	Preferred string            `json:"preferred"`
	Notices   []tempmail.Notice `json:"notices"`
}

type generateRequest struct {
	Domain string `json:"domain" binding:"required"`
	Name   string `json:"name"`
	Length *int   `json:"length"`
}

func viewOf(e *entry) sessionView {
	return sessionView{Session: e.session.Snapshot(), Notices: e.notifier.drain()}
}

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) listDomains(c *gin.Context) {
	e := currentEntry(c)
	domains := e.session.Domains(c.Request.Context())
	if len(domains) == 0 {
		fail(c, http.StatusServiceUnavailable, msgNoDomains, gin.H{"notices": e.notifier.drain()})
		return
	}
	success(c, domainsView{
		Domains:   tempmail.DomainNames(domains),
		Preferred: tempmail.PreferredDomain(domains, e.session.Address()),
		Notices:   e.notifier.drain(),
	})
}

func (s *Server) generateEmail(c *gin.Context) {
	e := currentEntry(c)

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "domain is required", nil)
		return
	}
	if req.Length != nil {
		e.session.SetNameLength(*req.Length)
	}

	ctx := c.Request.Context()
	domains := e.session.Domains(ctx)
	if len(domains) == 0 {
		fail(c, http.StatusServiceUnavailable, msgNoDomains, gin.H{"notices": e.notifier.drain()})
		return
	}
	if !slices.Contains(tempmail.DomainNames(domains), req.Domain) {
		fail(c, http.StatusBadRequest, "Unknown domain: "+req.Domain, nil)
		return
	}

	address, err := e.session.Generate(ctx, req.Domain, req.Name)
	if err != nil {
		var verr *tempmail.ValidationError
		if errors.As(err, &verr) {
			fail(c, http.StatusBadRequest, msgInvalidName, viewOf(e))
			return
		}
		s.logger.Warn("generate email", zap.String("session", e.session.ID()), zap.Error(err))
		fail(c, http.StatusBadGateway, "Error generating email: "+err.Error(), viewOf(e))
		return
	}
	created(c, "Generated Temp Email: "+address, viewOf(e))
}

func (s *Server) getSession(c *gin.Context) {
	success(c, viewOf(currentEntry(c)))
}

func (s *Server) startPolling(c *gin.Context) {
	e := currentEntry(c)

	started, err := e.session.StartPolling(s.baseCtx)
	switch {
	case errors.Is(err, tempmail.ErrNoAddress):
		fail(c, http.StatusConflict, msgGenerateFirst, nil)
	case errors.Is(err, tempmail.ErrPollInProgress):
		accepted(c, "polling in progress", viewOf(e))
	case err != nil:
		fail(c, http.StatusInternalServerError, err.Error(), nil)
	case started:
		accepted(c, "polling started", viewOf(e))
	default:
		success(c, viewOf(e))
	}
}

func (s *Server) checkMessages(c *gin.Context) {
	e := currentEntry(c)
	if e.session.Address() == "" {
		fail(c, http.StatusConflict, msgGenerateFirst, nil)
		return
	}
	e.session.CheckNow(c.Request.Context())
	success(c, viewOf(e))
}

func (s *Server) events(c *gin.Context) {
	e := currentEntry(c)
	snap := e.session.Snapshot()
	first := &Event{Type: EventSnapshot, Session: &snap}
	if err := s.hub.Serve(c.Writer, c.Request, e.session.ID(), first); err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
	}
}
