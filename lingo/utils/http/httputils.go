// lingo/utils/http/httputils.go
package httputils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody caps how much of a failed response ends up in the error.
const maxErrorBody = 4096

// PostStreamWithAuth posts body as JSON with a bearer token and returns the
// open response body. Non-200 responses are read and returned as errors.
func PostStreamWithAuth(ctx context.Context, client *http.Client, url, apiKey string, body interface{}) (io.ReadCloser, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	r, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if r.StatusCode != http.StatusOK {
		defer r.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(r.Body, maxErrorBody))
		return nil, fmt.Errorf("bad status: %s - %s", r.Status, string(b))
	}
	return r.Body, nil
}

// PostJSON posts body and decodes a 200 JSON response into out.
func PostJSON(ctx context.Context, client *http.Client, url string, body, out interface{}) error {
	rc, err := PostStreamWithAuth(ctx, client, url, "", body)
	if err != nil {
		return err
	}
	defer rc.Close()
	return json.NewDecoder(rc).Decode(out)
}
