package journal

// Topics used across the core.
const (
	TopicOrder     = "order"
	TopicInventory = "inventory"
	TopicBilling   = "billing"
	TopicSupply    = "supply"
	TopicStation   = "station"
	TopicActivity  = "activity"
)

// Sink receives fire-and-forget activity lines. Implementations must not block.
type Sink interface {
	Log(topic, message string)
}

// Discard drops every line.
var Discard Sink = discard{}

type discard struct{}

func (discard) Log(string, string) {}

// SinkFunc adapts a function to Sink.
type SinkFunc func(topic, message string)

func (f SinkFunc) Log(topic, message string) { f(topic, message) }
