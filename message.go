package tempmail

import (
	"github.com/tempmailkit/tempmail-go/internal/api"
	"github.com/tempmailkit/tempmail-go/internal/delivery"
)

// Domain is a mail domain accepted by the remote service.
type Domain = api.Domain

// Message is a message held by the remote mailbox. Sender parses its From
// field.
type Message = api.Message

// PollState is the polling state of the current address.
type PollState = delivery.State

// Polling states.
const (
	PollIdle      = delivery.StateIdle
	PollPolling   = delivery.StatePolling
	PollFound     = delivery.StateFound
	PollExhausted = delivery.StateExhausted
)

// DomainNames returns the names of domains in order.
func DomainNames(domains []Domain) []string {
	names := make([]string, 0, len(domains))
	for _, d := range domains {
		names = append(names, d.Name)
	}
	return names
}
