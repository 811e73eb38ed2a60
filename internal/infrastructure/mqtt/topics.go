package mqtt

import "strings"

// TopicRoot is the first level of every home panel topic.
const TopicRoot = "homepanel"

// Command names accepted under homepanel/<node>/command/<name>.
const (
	CommandLamp      = "lamp"
	CommandToggle    = "toggle"
	CommandPlug      = "plug"
	CommandThreshold = "threshold"
	CommandAlarm     = "alarm"
	CommandStatus    = "status"
)

// Topics builds the topic hierarchy for one node:
//
//	homepanel/<node>/status          retained online/offline, LWT
//	homepanel/<node>/state           retained device state JSON
//	homepanel/<node>/activity        door activity entries
//	homepanel/<node>/command/<name>  inbound intents
type Topics struct {
	Node string
}

func (t Topics) base() string {
	return TopicRoot + "/" + t.Node
}

// Status returns the retained availability topic, also used as the LWT.
func (t Topics) Status() string {
	return t.base() + "/status"
}

// State returns the retained device state topic.
func (t Topics) State() string {
	return t.base() + "/state"
}

// Activity returns the topic carrying one message per activity entry.
func (t Topics) Activity() string {
	return t.base() + "/activity"
}

// Command returns the inbound topic for a single command name.
func (t Topics) Command(name string) string {
	return t.base() + "/command/" + name
}

// AllCommands returns the wildcard subscription for every command of the node.
func (t Topics) AllCommands() string {
	return t.Command("+")
}

// ParseCommand extracts the command name from a topic received on
// AllCommands. ok is false if the topic belongs to another node or shape.
func (t Topics) ParseCommand(topic string) (name string, ok bool) {
	name, found := strings.CutPrefix(topic, t.base()+"/command/")
	if !found || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
