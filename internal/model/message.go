package model

// InboundMessage is one SMS received from the gateway. It is written
// verbatim as a JSON file into the inbox directory for the agent to
// pick up.
type InboundMessage struct {
	From      string `json:"from"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
	JID       string `json:"jid"`
}

// OutboundMessage is one queued SMS to send, read from an outbox file
// written by the external agent.
type OutboundMessage struct {
	To   string `json:"to"`
	Body string `json:"body"`
}
