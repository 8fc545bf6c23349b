package core

const (
	clientCommandBuffer = 16
	clientEventBuffer   = 64
)

// Client is a single live connection as seen by the core layer.
// The unexported fields are owned by the hub goroutine.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	email    string
	nickname string
	current  string
	rooms    map[string]struct{}
	done     chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, clientCommandBuffer),
		Events:   make(chan *Event, clientEventBuffer),
		rooms:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

func (c *Client) bound() bool {
	return c.email != ""
}
