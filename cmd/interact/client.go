package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/adherence/internal/interactions"
	"github.com/JaimeStill/adherence/intervention"
)

// apiError is an error response from the server.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

type client struct {
	base string
	http *http.Client
}

func newAPIClient(base string, timeout time.Duration) *client {
	return &client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *client) begin(ctx context.Context) (interactions.Interaction, error) {
	var v interactions.Interaction
	err := c.do(ctx, http.MethodPost, "/interactions", nil, &v)
	return v, err
}

func (c *client) respond(ctx context.Context, id uuid.UUID, in intervention.Input) (interactions.Response, error) {
	var v interactions.Response
	err := c.do(ctx, http.MethodPost, "/interactions/"+id.String()+"/responses", in, &v)
	return v, err
}

func (c *client) save(ctx context.Context, id uuid.UUID) (interactions.Interaction, error) {
	var v interactions.Interaction
	err := c.do(ctx, http.MethodPost, "/interactions/"+id.String()+"/save", nil, &v)
	return v, err
}

func (c *client) abandon(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/interactions/"+id.String(), nil, nil)
}

func (c *client) patientSessions(ctx context.Context, patientID string) ([]intervention.Session, error) {
	var v []intervention.Session
	err := c.do(ctx, http.MethodGet, "/patients/"+url.PathEscape(patientID)+"/sessions", nil, &v)
	return v, err
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = "request failed"
		}
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// retryable reports whether err is a server-side persistence failure that a
// later save may clear.
func retryable(err error) bool {
	var e *apiError
	return errors.As(err, &e) && e.Status == http.StatusServiceUnavailable
}
