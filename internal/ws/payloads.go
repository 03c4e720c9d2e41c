package ws

// Envelope is every frame sent over the socket.
type Envelope struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}
