// Package tempmail provides a Go client and session model for a remote
// disposable-email API.
//
// The remote service owns everything: domains, address allocation, mailbox
// storage and inbound mail. This package lists domains (memoized for an
// hour), mints temporary addresses and polls the remote inbox a bounded
// number of times.
//
// Basic usage:
//
//	client, err := tempmail.New("https://mail.example.com/api")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session := tempmail.NewSession(client)
//	domains := session.Domains(ctx)
//	if len(domains) == 0 {
//	    log.Fatal("no domains available")
//	}
//
//	// Mint an address with a random local-part
//	address, err := session.Generate(ctx, domains[0].Name, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Poll up to six times, five seconds apart
//	if err := session.Poll(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, msg := range session.Snapshot().Messages {
//	    fmt.Println("Subject:", msg.Subject)
//	}
package tempmail
