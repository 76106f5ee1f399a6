// FilePath: internal/dispatch/direct.go
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/models"
)

// DirectCaller delivers commands over plain HTTP to devices that expose a
// local command endpoint. It is the fallback path for devices without a live
// channel, typically gateways on the same LAN as the hub.
type DirectCaller struct {
	client    *resty.Client
	urlFormat string
}

// NewDirectCaller builds the HTTP fallback. urlFormat must contain one %s
// verb for the device id, e.g. "http://%s.local:8085/command".
func NewDirectCaller(urlFormat string, timeout time.Duration) *DirectCaller {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &DirectCaller{client: client, urlFormat: urlFormat}
}

func (d *DirectCaller) Call(ctx context.Context, deviceID string, msg models.CommandMessage) error {
	url := fmt.Sprintf(d.urlFormat, deviceID)

	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(msg).
		Post(url)
	if err != nil {
		return errors.NewInternalError("direct command call failed for "+deviceID, err)
	}
	if resp.IsError() {
		return errors.NewInternalError(
			fmt.Sprintf("device %s rejected command: %s", deviceID, resp.Status()), nil)
	}
	return nil
}
