// Package realtime pushes grievance events to connected websocket clients.
// Events are addressed either to a user channel or to a grievance topic.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"grievancedesk/backend/internal/logger"
	"grievancedesk/backend/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	channelPrefix      = "grievance:"
	userChannelPrefix  = channelPrefix + "user:"
	topicChannelPrefix = channelPrefix + "topic:"

	// ChannelPattern matches every channel the hub routes.
	ChannelPattern = channelPrefix + "*"
)

// UserChannel is the per-user queue for notifications.
func UserChannel(externalID string) string {
	return userChannelPrefix + externalID
}

// TopicChannel is the broadcast channel for one grievance.
func TopicChannel(grievanceID uint) string {
	return topicChannelPrefix + strconv.FormatUint(uint64(grievanceID), 10)
}

// Publisher delivers events to users and grievance topics.
type Publisher interface {
	PublishToUser(ctx context.Context, externalID string, ev models.Event) error
	Broadcast(ctx context.Context, grievanceID uint, ev models.Event) error
}

type subscription struct {
	client      Client
	grievanceID uint
	subscribe   bool
}

// ErrHubStopped is returned once Run has exited.
var ErrHubStopped = errors.New("realtime hub stopped")

type delivery struct {
	channel string
	event   models.Event
}

// Hub owns every local connection. All state is confined to the Run goroutine.
type Hub struct {
	clients map[string]map[Client]struct{}
	topics  map[uint]map[Client]struct{}

	registerCh   chan Client
	unregisterCh chan Client
	subscribeCh  chan subscription
	deliverCh    chan delivery
	done         chan struct{}

	log logrus.FieldLogger
}

var _ Publisher = (*Hub)(nil)

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:      make(map[string]map[Client]struct{}),
		topics:       make(map[uint]map[Client]struct{}),
		registerCh:   make(chan Client),
		unregisterCh: make(chan Client),
		subscribeCh:  make(chan subscription),
		deliverCh:    make(chan delivery, 256),
		done:         make(chan struct{}),
		log:          logger.Or(log).WithField("component", "realtime_hub"),
	}
}

// Run processes hub commands until ctx is cancelled, then closes every client.
// Run must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					c.Close()
				}
			}
			h.clients = make(map[string]map[Client]struct{})
			h.topics = make(map[uint]map[Client]struct{})
			return

		case c := <-h.registerCh:
			set, ok := h.clients[c.GetUserID()]
			if !ok {
				set = make(map[Client]struct{})
				h.clients[c.GetUserID()] = set
			}
			set[c] = struct{}{}
			h.log.WithField("user", c.GetUserID()).Debug("client registered")

		case c := <-h.unregisterCh:
			h.remove(c)

		case sub := <-h.subscribeCh:
			if !h.registered(sub.client) {
				continue
			}
			if sub.subscribe {
				set, ok := h.topics[sub.grievanceID]
				if !ok {
					set = make(map[Client]struct{})
					h.topics[sub.grievanceID] = set
				}
				set[sub.client] = struct{}{}
			} else {
				h.leaveTopic(sub.client, sub.grievanceID)
			}

		case d := <-h.deliverCh:
			h.route(d)
		}
	}
}

func (h *Hub) registered(c Client) bool {
	_, ok := h.clients[c.GetUserID()][c]
	return ok
}

func (h *Hub) leaveTopic(c Client, grievanceID uint) {
	set := h.topics[grievanceID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.topics, grievanceID)
	}
}

// remove drops c from every index and closes it once.
func (h *Hub) remove(c Client) {
	if !h.registered(c) {
		return
	}
	set := h.clients[c.GetUserID()]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.GetUserID())
	}
	for id := range h.topics {
		h.leaveTopic(c, id)
	}
	c.Close()
	h.log.WithField("user", c.GetUserID()).Debug("client unregistered")
}

func (h *Hub) route(d delivery) {
	var targets map[Client]struct{}
	switch {
	case strings.HasPrefix(d.channel, userChannelPrefix):
		targets = h.clients[strings.TrimPrefix(d.channel, userChannelPrefix)]
	case strings.HasPrefix(d.channel, topicChannelPrefix):
		id, err := strconv.ParseUint(strings.TrimPrefix(d.channel, topicChannelPrefix), 10, 64)
		if err != nil {
			h.log.WithField("channel", d.channel).Warn("malformed topic channel")
			return
		}
		targets = h.topics[uint(id)]
	default:
		h.log.WithField("channel", d.channel).Warn("unroutable channel")
		return
	}

	var slow []Client
	for c := range targets {
		select {
		case c.GetSendChannel() <- d.event:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.log.WithField("user", c.GetUserID()).Warn("dropping slow client")
		h.remove(c)
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Register adds c to the hub. It reports false if the hub has stopped, in
// which case the caller still owns c.
func (h *Hub) Register(c Client) bool {
	select {
	case h.registerCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes and closes c. It is a no-op for unknown clients and
// after the hub has stopped.
func (h *Hub) Unregister(c Client) {
	select {
	case h.unregisterCh <- c:
	case <-h.done:
	}
}

// Subscribe adds c to a grievance topic.
func (h *Hub) Subscribe(c Client, grievanceID uint) {
	h.command(subscription{client: c, grievanceID: grievanceID, subscribe: true})
}

func (h *Hub) Unsubscribe(c Client, grievanceID uint) {
	h.command(subscription{client: c, grievanceID: grievanceID})
}

func (h *Hub) command(sub subscription) {
	select {
	case h.subscribeCh <- sub:
	case <-h.done:
	}
}

// Deliver routes an event that arrived on channel to local clients.
func (h *Hub) Deliver(ctx context.Context, channel string, ev models.Event) error {
	select {
	case <-h.done:
		return fmt.Errorf("deliver to %s: %w", channel, ErrHubStopped)
	default:
	}
	select {
	case h.deliverCh <- delivery{channel: channel, event: ev}:
		return nil
	case <-h.done:
		return fmt.Errorf("deliver to %s: %w", channel, ErrHubStopped)
	case <-ctx.Done():
		return fmt.Errorf("deliver to %s: %w", channel, ctx.Err())
	}
}

func (h *Hub) PublishToUser(ctx context.Context, externalID string, ev models.Event) error {
	return h.Deliver(ctx, UserChannel(externalID), ev)
}

func (h *Hub) Broadcast(ctx context.Context, grievanceID uint, ev models.Event) error {
	return h.Deliver(ctx, TopicChannel(grievanceID), ev)
}
