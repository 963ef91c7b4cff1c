// Package apiclient implements the REST client for the messaging data
// service. Every method maps transport and HTTP failures onto the shared
// error taxonomy in pkg/types.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"messenger/internal/metrics"
	"messenger/pkg/interfaces"
	"messenger/pkg/types"
)

var _ interfaces.DataService = (*Client)(nil)

// Client talks to the messaging data service over JSON/HTTP.
// Implements interfaces.DataService.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a data service client. baseURL must not end in a slash.
func NewClient(baseURL, token string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "apiclient").Logger(),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// doJSON performs one round trip. body may be nil; out may be nil for
// endpoints whose response body is irrelevant.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", types.ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.roundTrip(req, out)
}

func (c *Client) roundTrip(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.APIErrors.WithLabelValues("network").Inc()
		return fmt.Errorf("%w: %s %s: %v", types.ErrNetwork, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errResp errorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil {
			apiErr.Message = errResp.Error
		}
		metrics.APIErrors.WithLabelValues(errorClass(apiErr)).Inc()
		c.log.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", resp.StatusCode).
			Msg("data service rejected request")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.APIErrors.WithLabelValues("network").Inc()
		return fmt.Errorf("%w: decode response: %v", types.ErrNetwork, err)
	}
	return nil
}

// ListConversations returns all conversations for the authenticated user.
func (c *Client) ListConversations(ctx context.Context) ([]*types.Conversation, error) {
	var convs []*types.Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// MessageHistory fetches the ordered message list for a conversation.
func (c *Client) MessageHistory(ctx context.Context, conversationID string) ([]types.Message, error) {
	var msgs []types.Message
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].Delivery = types.DeliveryConfirmed
	}
	return msgs, nil
}

// SendMessage delivers a composed message and returns the server record.
func (c *Client) SendMessage(ctx context.Context, req types.SendMessageRequest) (*types.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var msg types.Message
	if err := c.doJSON(ctx, http.MethodPost, "/messages", req, &msg); err != nil {
		return nil, err
	}
	msg.Delivery = types.DeliveryConfirmed
	return &msg, nil
}

// UploadAttachment stores a file via multipart upload.
func (c *Client) UploadAttachment(ctx context.Context, up types.AttachmentUpload) (*types.AttachmentMeta, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", up.Filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(up.Data); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if up.MIME != "" {
		if err := writer.WriteField("mime", up.MIME); err != nil {
			return nil, fmt.Errorf("build multipart: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/attachments", &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", types.ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var meta types.AttachmentMeta
	if err := c.roundTrip(req, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// CompanyUsers returns the contact directory.
func (c *Client) CompanyUsers(ctx context.Context) ([]types.ParticipantInfo, error) {
	var users []types.ParticipantInfo
	if err := c.doJSON(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// StartConversation finds or creates the 1:1 conversation with a user.
func (c *Client) StartConversation(ctx context.Context, otherUserID string) (*types.Conversation, error) {
	body := map[string]string{"other_user_id": otherUserID}
	var conv types.Conversation
	if err := c.doJSON(ctx, http.MethodPost, "/conversations/direct", body, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateGroup creates a group conversation with the caller as admin.
func (c *Client) CreateGroup(ctx context.Context, name string, memberIDs []string) (*types.Conversation, error) {
	body := map[string]any{"name": name, "member_ids": memberIDs}
	var conv types.Conversation
	if err := c.doJSON(ctx, http.MethodPost, "/groups", body, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// GroupMembers returns the authoritative member list.
func (c *Client) GroupMembers(ctx context.Context, conversationID string) ([]types.ParticipantInfo, error) {
	var members []types.ParticipantInfo
	path := "/groups/" + url.PathEscape(conversationID) + "/members"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// AddGroupMembers adds users to a group.
func (c *Client) AddGroupMembers(ctx context.Context, conversationID string, userIDs []string) error {
	body := map[string][]string{"user_ids": userIDs}
	path := "/groups/" + url.PathEscape(conversationID) + "/members"
	return c.doJSON(ctx, http.MethodPost, path, body, nil)
}

// RemoveGroupMember removes a single member from a group.
func (c *Client) RemoveGroupMember(ctx context.Context, conversationID, userID string) error {
	path := "/groups/" + url.PathEscape(conversationID) + "/members/" + url.PathEscape(userID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// RenameGroup updates the group display name.
func (c *Client) RenameGroup(ctx context.Context, conversationID, name string) error {
	body := map[string]string{"name": name}
	path := "/groups/" + url.PathEscape(conversationID)
	return c.doJSON(ctx, http.MethodPatch, path, body, nil)
}

// LeaveGroup removes the authenticated user from a group.
func (c *Client) LeaveGroup(ctx context.Context, conversationID string) error {
	path := "/groups/" + url.PathEscape(conversationID) + "/leave"
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// ArchiveConversation soft-removes a conversation for this user.
func (c *Client) ArchiveConversation(ctx context.Context, conversationID string) error {
	path := "/conversations/" + url.PathEscape(conversationID) + "/archive"
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// DeleteConversation hard-removes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	path := "/conversations/" + url.PathEscape(conversationID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// ClearChat deletes all messages in a conversation, keeping the thread.
func (c *Client) ClearChat(ctx context.Context, conversationID string) error {
	path := "/conversations/" + url.PathEscape(conversationID) + "/clear"
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}
