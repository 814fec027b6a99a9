package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RESTClient speaks the RouterOS v7 REST API: POST /rest/<path>/<command>
// with a JSON body and HTTP Basic authentication. It is stateless per
// request; Connect only verifies reachability and credentials.
type RESTClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewRESTClient creates a REST transport for the given base URL
// (e.g. https://192.168.88.1). The /rest prefix is appended internally.
func NewRESTClient(baseURL, username, password string) *RESTClient {
	return &RESTClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Connect probes /system/resource to confirm the router is reachable and
// the credentials are accepted.
func (c *RESTClient) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/rest/system/resource", nil)
	if err != nil {
		return &ConnectionError{Addr: c.baseURL, Err: err}
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{Addr: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &ConnectionError{Addr: c.baseURL, Err: fmt.Errorf("authentication rejected")}
	}
	if resp.StatusCode != http.StatusOK {
		return &ConnectionError{Addr: c.baseURL, Err: fmt.Errorf("probe returned status %d", resp.StatusCode)}
	}
	return nil
}

// Read lists records under path via the print command, filtered by query.
func (c *RESTClient) Read(ctx context.Context, path string, query map[string]string) ([]Row, error) {
	body := map[string]interface{}{}
	if len(query) > 0 {
		var terms []string
		for _, k := range sortedKeys(query) {
			terms = append(terms, k+"="+query[k])
		}
		body[".query"] = terms
	}

	respBody, err := c.post(ctx, path+"/print", body)
	if err != nil {
		return nil, err
	}

	var rows []Row
	if err := json.Unmarshal(respBody, &rows); err != nil {
		return nil, fmt.Errorf("decode %s reply: %w (body: %s)", path, err, string(respBody))
	}
	return rows, nil
}

// Write executes a mutating command; path carries the verb (/add, /set, ...).
func (c *RESTClient) Write(ctx context.Context, path string, params map[string]string) (Row, error) {
	body := make(map[string]interface{}, len(params))
	for k, v := range params {
		body[k] = v
	}

	respBody, err := c.post(ctx, path, body)
	if err != nil {
		return nil, err
	}

	row := Row{}
	if len(respBody) > 0 && respBody[0] == '{' {
		if err := json.Unmarshal(respBody, &row); err != nil {
			return nil, fmt.Errorf("decode %s reply: %w (body: %s)", path, err, string(respBody))
		}
	}
	return row, nil
}

// Remove deletes the record with the given vendor id under path.
func (c *RESTClient) Remove(ctx context.Context, path string, id string) error {
	_, err := c.post(ctx, path+"/remove", map[string]interface{}{".id": id})
	return err
}

// Disconnect drops any idle keep-alive connections.
func (c *RESTClient) Disconnect() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *RESTClient) post(ctx context.Context, path string, body map[string]interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/rest" + path
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConnectionError{Addr: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &ConnectionError{Addr: c.baseURL, Err: fmt.Errorf("authentication rejected")}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		// RouterOS returns {"error":..,"message":..} on command failures
		var routerErr struct {
			Message string `json:"message"`
			Detail  string `json:"detail"`
		}
		_ = json.Unmarshal(respBody, &routerErr)
		msg := routerErr.Detail
		if msg == "" {
			msg = routerErr.Message
		}
		if msg == "" {
			msg = string(respBody)
		}
		return nil, fmt.Errorf("%s: router returned status %d: %s", path, resp.StatusCode, msg)
	}

	return respBody, nil
}
