package tui

import tea "github.com/charmbracelet/bubbletea"

type Topic string

const (
	TopicRefreshProviders Topic = "refresh-providers"
	TopicRefreshModels    Topic = "refresh-models"
	TopicOpenAddProvider  Topic = "open-add-provider"
)

// Handler reacts to a published topic from inside Update and may return a
// command to run.
type Handler func() tea.Cmd

type Subscription struct {
	topic Topic
	id    uint64
}

type subscriber struct {
	id uint64
	fn Handler
}

// Bus decouples the parts of the shell that invalidate data from the parts
// that own it. It is only touched from the Update loop; other goroutines
// publish by sending TopicMsg to the program.
type Bus struct {
	next uint64
	subs map[Topic][]subscriber
}

// TopicMsg asks the shell to publish Topic on its bus.
type TopicMsg struct {
	Topic Topic
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]subscriber)}
}

func (b *Bus) Subscribe(topic Topic, fn Handler) Subscription {
	b.next++
	b.subs[topic] = append(b.subs[topic], subscriber{id: b.next, fn: fn})
	return Subscription{topic: topic, id: b.next}
}

func (b *Bus) Unsubscribe(sub Subscription) {
	list := b.subs[sub.topic]
	for i, s := range list {
		if s.id == sub.id {
			b.subs[sub.topic] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Publish runs every handler for topic in subscription order and batches the
// commands they return.
func (b *Bus) Publish(topic Topic) tea.Cmd {
	list := append([]subscriber(nil), b.subs[topic]...)
	cmds := make([]tea.Cmd, 0, len(list))
	for _, s := range list {
		cmds = append(cmds, s.fn())
	}
	return tea.Batch(cmds...)
}

func (b *Bus) Subscribers(topic Topic) int {
	return len(b.subs[topic])
}

// PublishCmd defers a publish to the next Update pass.
func PublishCmd(topic Topic) tea.Cmd {
	return func() tea.Msg { return TopicMsg{Topic: topic} }
}
