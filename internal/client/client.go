// Package client is a Go client for the freight auction HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"greendrake/freight/internal/models"
)

// Error is returned for any non-2xx response.
type Error struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("freight api error: status=%d message=%s", e.StatusCode, e.Message)
}

// VerificationError reports that an assignment was accepted but the auction
// did not reflect it when read back.
type VerificationError struct {
	AuctionID int64
	Expected  int
	Actual    int
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("auction %d: expected %d assigned participants, found %d", e.AuctionID, e.Expected, e.Actual)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for the API rooted at baseURL, e.g. "http://localhost:8080/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token in use.
func (c *Client) Token() string {
	return c.token
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

type Assignment struct {
	AuctionID     int64                   `json:"auctionId"`
	ParticipantID int64                   `json:"participantId"`
	Status        models.AssignmentStatus `json:"status"`
}

// AssignParticipants replaces the participant set of an auction.
func (c *Client) AssignParticipants(ctx context.Context, auctionID int64, participantIDs []int64) ([]Assignment, error) {
	var out []Assignment
	body := map[string][]int64{"participantIds": participantIDs}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/auctions/%d/participants", auctionID), body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAuction(ctx context.Context, auctionID int64) (*models.AuctionView, error) {
	var out models.AuctionView
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/auctions/%d", auctionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignAndVerify assigns participants, then reads the auction back and
// checks that exactly the distinct requested participants are attached.
// It does not retry.
func (c *Client) AssignAndVerify(ctx context.Context, auctionID int64, participantIDs []int64) (*models.AuctionView, error) {
	if _, err := c.AssignParticipants(ctx, auctionID, participantIDs); err != nil {
		return nil, err
	}
	view, err := c.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	distinct := make(map[int64]struct{}, len(participantIDs))
	for _, id := range participantIDs {
		distinct[id] = struct{}{}
	}
	if len(view.Participants) == 0 || len(view.Participants) != len(distinct) {
		return view, &VerificationError{AuctionID: auctionID, Expected: len(distinct), Actual: len(view.Participants)}
	}
	return view, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func parseError(status int, body []byte) error {
	out := &Error{StatusCode: status}
	var obj struct {
		Error   string          `json:"error"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		out.Message = strings.TrimSpace(string(body))
	} else {
		out.Message = obj.Error
		out.Details = obj.Details
	}
	if out.Message == "" {
		out.Message = http.StatusText(status)
	}
	return out
}
