package transport

import (
	"context"
	"time"

	"github.com/nerrad567/homepanel-core/internal/device"
)

// previewLen bounds ProbeResult.Preview.
const previewLen = 120

// ProbeResult is the outcome of a successful Probe.
type ProbeResult struct {
	Address string        `json:"address"`
	Latency time.Duration `json:"latency_ns"`
	Preview string        `json:"preview"`
}

// Requester is satisfied by *Client.
type Requester interface {
	Request(ctx context.Context, address, path string) (string, error)
}

// Probe sends one STATUS request to address and reports the round trip.
// It has no side effects, so the panel can test an address before
// switching its session over to it.
func Probe(ctx context.Context, r Requester, address string) (ProbeResult, error) {
	start := time.Now()
	body, err := r.Request(ctx, address, device.EncodeCommand(device.RequestStatus{}))
	if err != nil {
		return ProbeResult{}, err
	}

	if len(body) > previewLen {
		body = body[:previewLen]
	}
	return ProbeResult{
		Address: address,
		Latency: time.Since(start),
		Preview: body,
	}, nil
}
