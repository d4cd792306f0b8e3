package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const (
	domainsPath     = "/domains"
	createEmailPath = "/email/new"
)

// ListDomains returns the domains available for address creation.
func (c *Client) ListDomains(ctx context.Context) ([]Domain, error) {
	var result domainsResponse
	if err := c.Do(ctx, http.MethodGet, domainsPath, nil, &result); err != nil {
		return nil, err
	}
	if result.Domains == nil {
		return []Domain{}, nil
	}
	return result.Domains, nil
}

// CreateEmail allocates a new mailbox and returns its full address.
func (c *Client) CreateEmail(ctx context.Context, domain, name string) (string, error) {
	req := CreateEmailRequest{
		Domain: domain,
		Name:   name,
		Token:  "",
	}
	var result createEmailResponse
	if err := c.Do(ctx, http.MethodPost, createEmailPath, req, &result); err != nil {
		return "", err
	}
	if result.Email == "" {
		return "", fmt.Errorf("%w: missing email field", ErrInvalidResponse)
	}
	return result.Email, nil
}

// ListMessages returns the messages currently held for address.
func (c *Client) ListMessages(ctx context.Context, address string) ([]Message, error) {
	path := fmt.Sprintf("/email/%s/messages", url.PathEscape(address))
	var result []Message
	if err := c.Do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return []Message{}, nil
	}
	return result, nil
}
