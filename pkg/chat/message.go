package chat

// Direction tags a message as sent by the user or shown to the user.
type Direction string

const (
	Outgoing Direction = "outgoing"
	Incoming Direction = "incoming"
)

func (d Direction) Valid() bool {
	return d == Outgoing || d == Incoming
}

// Message is one chat line. Values are never mutated after creation.
type Message struct {
	Content string    `json:"content"`
	Class   Direction `json:"class"`
}

func NewOutgoing(content string) Message { return Message{Content: content, Class: Outgoing} }

func NewIncoming(content string) Message { return Message{Content: content, Class: Incoming} }
