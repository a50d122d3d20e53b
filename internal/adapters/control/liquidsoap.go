// Package control talks to the media engine's telnet command interface.
//
// Liquidsoap exposes two network surfaces: the harbor input that receives
// the live audio stream, and a plaintext telnet listener for commands.
// Stopping the harbor input by name kicks the connected streamer.
package control

import (
	"context"
	"fmt"
	"net"
	"time"
)

const defaultInputID = "live"

// LiquidsoapClient issues commands over the telnet control connection.
// Commands are fire-and-forget: the client writes and disconnects without
// reading the engine's reply.
type LiquidsoapClient struct {
	addr    string
	inputID string
	timeout time.Duration
}

func NewLiquidsoapClient(addr, inputID string, timeout time.Duration) *LiquidsoapClient {
	if inputID == "" {
		inputID = defaultInputID
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &LiquidsoapClient{addr: addr, inputID: inputID, timeout: timeout}
}

// StopLive sends "<input>.stop" followed by "quit". The stop command does
// not wait for the engine's welcome banner or response.
func (c *LiquidsoapClient) StopLive(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial control channel %s: %w", c.addr, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("set control write deadline: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "%s.stop\n", c.inputID); err != nil {
		return fmt.Errorf("send stop command: %w", err)
	}
	if _, err := conn.Write([]byte("quit\n")); err != nil {
		return fmt.Errorf("close control session: %w", err)
	}
	return nil
}
