package api

import (
	"github.com/emersion/go-message/mail"
)

// Domain is a mail domain the remote service accepts for new addresses.
type Domain struct {
	Name string `json:"name"`
}

// Message is one message of a remote mailbox as returned by
// GET /email/{address}/messages.
type Message struct {
	From     string `json:"from"`
	Subject  string `json:"subject"`
	BodyText string `json:"body_text"`
}

// Sender parses the From field. It returns nil when the field is not a valid
// RFC 5322 address.
func (m Message) Sender() *mail.Address {
	addr, err := mail.ParseAddress(m.From)
	if err != nil {
		return nil
	}
	return addr
}

// domainsResponse represents the GET /domains response.
type domainsResponse struct {
	Domains []Domain `json:"domains"`
}

// CreateEmailRequest represents the POST /email/new request. Token is
// reserved by the remote API and always sent empty.
type CreateEmailRequest struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}

// createEmailResponse represents the POST /email/new response.
type createEmailResponse struct {
	Email string `json:"email"`
}
