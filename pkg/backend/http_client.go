package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient talks to the hosted QA backend over JSON POST endpoints.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient builds the client. The timeout bounds every call including
// retrieval, which can legitimately run tens of seconds; zero disables it.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend %s: status %d: %s", path, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *HTTPClient) Retrieve(ctx context.Context, req *RetrieveRequest) (*RetrieveResponse, error) {
	// The backend has answered in two envelopes over time: the payload
	// directly, or wrapped in {success, data}. Accept both.
	var wire struct {
		Response string          `json:"response"`
		Answer   string          `json:"answer"`
		Metadata json.RawMessage `json:"metadata"`
		Success  bool            `json:"success"`
		Data     *struct {
			Answer   string          `json:"answer"`
			Metadata json.RawMessage `json:"metadata"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/response", req, &wire); err != nil {
		return nil, err
	}

	res := &RetrieveResponse{Response: wire.Response, Metadata: wire.Metadata}
	if res.Response == "" {
		res.Response = wire.Answer
	}
	if wire.Data != nil {
		if res.Response == "" {
			res.Response = wire.Data.Answer
		}
		if len(res.Metadata) == 0 {
			res.Metadata = wire.Data.Metadata
		}
	}
	if res.Response == "" {
		return nil, fmt.Errorf("backend /response: empty answer in payload")
	}
	return res, nil
}

func (c *HTTPClient) AddChatMessage(ctx context.Context, identity, conversationId, sender, message string) error {
	body := map[string]string{
		"auth_id":    identity,
		"session_id": conversationId,
		"sender":     sender,
		"message":    message,
	}
	return c.post(ctx, "/add_chat_message", body, nil)
}

func (c *HTTPClient) GetChatHistory(ctx context.Context, identity, conversationId string) ([][]string, error) {
	body := map[string]string{
		"auth_id":    identity,
		"session_id": conversationId,
	}
	var wire struct {
		Data [][]string `json:"data"`
	}
	if err := c.post(ctx, "/get_chat_history", body, &wire); err != nil {
		return nil, err
	}
	return wire.Data, nil
}

func (c *HTTPClient) UserSessions(ctx context.Context, identity string) ([]SessionPayload, error) {
	var wire struct {
		Sessions []SessionPayload `json:"sessions"`
	}
	if err := c.post(ctx, "/user_sessions", map[string]string{"auth_id": identity}, &wire); err != nil {
		return nil, err
	}
	return wire.Sessions, nil
}

func (c *HTTPClient) FetchPremium(ctx context.Context, identity string) (bool, error) {
	// The user record is positional: the premium flag sits at offset 3.
	// Anything missing or oddly shaped reads as non-premium.
	var wire struct {
		UserData [][]json.RawMessage `json:"user_data"`
		Data     []json.RawMessage   `json:"data"`
	}
	if err := c.post(ctx, "/get_user", map[string]string{"auth_id": identity}, &wire); err != nil {
		return false, err
	}

	record := wire.Data
	if len(wire.UserData) > 0 {
		record = wire.UserData[0]
	}
	if len(record) <= 3 {
		return false, nil
	}
	var premium bool
	if err := json.Unmarshal(record[3], &premium); err != nil {
		return false, nil
	}
	return premium, nil
}

func (c *HTTPClient) RegisterUser(ctx context.Context, identity string) error {
	return c.post(ctx, "/add_user", map[string]string{"auth_id": identity}, nil)
}

func (c *HTTPClient) MakeUserPremium(ctx context.Context, identity string) error {
	return c.post(ctx, "/make_user_premium", map[string]string{"auth_id": identity}, nil)
}

func (c *HTTPClient) AppendContextHistory(ctx context.Context, identity, conversationId string, ids []string) error {
	body := map[string]any{
		"auth_id": identity,
		"chat_id": conversationId,
		"context": ids,
	}
	return c.post(ctx, "/append_context_history", body, nil)
}
