// Package fastpath implements a SOAP 1.1 client for the FastPath FeedRecord
// operation, the remote service that accepts single fixed-width records.
package fastpath

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/aspect-export/internal/pkg/logger"
)

const soapAction = "FeedRecord"

// Client sends FeedRecord calls. It is safe for concurrent use; per-call
// timeouts come from the caller via FeedRecord's timeout argument.
type Client struct {
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a FastPath client. The underlying transport has no
// default timeout of its own; every call must supply one.
func NewClient(log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		log:        log,
	}
}

// FeedRecord performs one synchronous round trip to the given endpoint. The
// returned CallResult always carries the serialized request body; the
// response body is present whenever the wire read succeeded. Remote faults
// are reported in CallResult.Fault with a nil error; transport and decoding
// problems are returned as errors alongside whatever bodies were captured.
func (c *Client) FeedRecord(ctx context.Context, endpoint string, msg *FeedRecordMsg, timeout time.Duration) (*CallResult, error) {
	envelope := soapEnvelope{
		Body: soapBody{FeedRecord: &feedRecordElement{FeedRecordMsg: *msg}},
	}

	payload, err := xml.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return &CallResult{}, fmt.Errorf("marshal SOAP envelope: %w", err)
	}
	requestBody := xml.Header + string(payload)
	result := &CallResult{RequestBody: requestBody}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte(requestBody)))
	if err != nil {
		return result, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapAction)

	c.log.Debug("fastpath: sending SOAP request",
		"endpoint", endpoint,
		"message_id", msg.MessageID,
		"fast_list", msg.FastList,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, fmt.Errorf("read response: %w", err)
	}
	result.ResponseBody = string(body)

	var decoded responseEnvelope
	if err := xml.Unmarshal(body, &decoded); err != nil {
		return result, fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}

	if decoded.Body.Fault != nil {
		result.Fault = &Fault{
			Code:    decoded.Body.Fault.Code,
			Message: decoded.Body.Fault.String,
		}
		return result, nil
	}

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}

	return result, nil
}
