package lan

import "net"

// Client is the companion side of the LAN transport: one connection,
// strict request/response. Used by tests and companion tooling.
type Client struct {
	conn net.Conn
}

// Dial connects to a device's LAN provisioning transport.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// RoundTrip sends one frame and reads the response frame.
func (c *Client) RoundTrip(frame []byte) ([]byte, error) {
	if err := writeFrame(c.conn, frame); err != nil {
		return nil, err
	}
	return readFrame(c.conn)
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
