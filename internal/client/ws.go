package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/streampulse/notify/internal/domain"
)

// WSDialer connects to the gateway's /ws endpoint.
type WSDialer struct {
	// BaseURL is the gateway root, e.g. "ws://gateway:8080".
	BaseURL string

	// Dialer overrides websocket.DefaultDialer when set.
	Dialer *websocket.Dialer
}

func (d *WSDialer) Dial(ctx context.Context, userID string) (Conn, error) {
	wd := d.Dialer
	if wd == nil {
		wd = websocket.DefaultDialer
	}
	u := d.BaseURL + "/ws?user=" + url.QueryEscape(userID)
	ws, _, err := wd.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) Send(ctx context.Context, action, topic string) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetWriteDeadline(deadline)
	} else {
		_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	}
	return c.ws.WriteJSON(map[string]string{"action": action, "topic": topic})
}

func (c *wsConn) Receive(_ context.Context) (*domain.EnrichedMessage, error) {
	var msg domain.EnrichedMessage
	if err := c.ws.ReadJSON(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *wsConn) Close() error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}

// HTTPAPI talks to the gateway's notification endpoints.
type HTTPAPI struct {
	// BaseURL is the gateway root, e.g. "http://gateway:8080".
	BaseURL string
	Client  *http.Client
}

func (a *HTTPAPI) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

func (a *HTTPAPI) List(ctx context.Context, userID string, filter domain.ListFilter) ([]*domain.Notification, error) {
	q := url.Values{"user": {userID}}
	if filter.Type != nil {
		q.Set("type", string(*filter.Type))
	}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.BaseURL+"/api/v1/notifications?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list notifications: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Data []*domain.Notification `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return body.Data, nil
}

func (a *HTTPAPI) Clear(ctx context.Context, userID string, kind *domain.EventKind) (int64, error) {
	q := url.Values{"user": {userID}}
	if kind != nil {
		q.Set("type", string(*kind))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		a.BaseURL+"/api/v1/notifications?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := a.httpClient().Do(req)
	if err != nil {
		return 0, fmt.Errorf("clear notifications: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("clear notifications: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode clear response: %w", err)
	}
	return body.Deleted, nil
}
