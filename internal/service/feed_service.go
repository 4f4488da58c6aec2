package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/labelgrid/labelgrid-api/internal/history"
	"github.com/labelgrid/labelgrid-api/internal/observability"
)

const feedBufferSize = 32

// FeedService fans recorded annotation actions out to admin feed
// subscribers. Events are bridged over Redis pub/sub and NATS so every
// API node sees actions recorded on its peers.
type FeedService interface {
	ActionPublisher
	Subscribe() (<-chan history.AnnotationAction, func())
	Start(ctx context.Context)
}

type feedService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *feedBroker
	nodeID       string
}

type feedEvent struct {
	Source string         `json:"source"`
	Action map[string]any `json:"action"`
	SentAt time.Time      `json:"sent_at"`
}

type feedBroker struct {
	mu          sync.RWMutex
	subscribers map[chan history.AnnotationAction]struct{}
}

// NewFeedService constructs the feed service. channelBase scopes the
// Redis channel and NATS subject so several deployments can share one
// broker.
func NewFeedService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) FeedService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":actions"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".actions"
	}

	return &feedService{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "feed_service").Logger(),
		broker: &feedBroker{
			subscribers: make(map[chan history.AnnotationAction]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *feedService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// Publish delivers an action to local subscribers and forwards it to
// the cross-node brokers.
func (s *feedService) Publish(ctx context.Context, action history.AnnotationAction) {
	s.broker.broadcast(action)
	observability.ActionsPublishedTotal().WithLabelValues(action.ActionType).Inc()

	event := feedEvent{
		Source: s.nodeID,
		Action: action.MarshalMap(),
		SentAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode feed event")
		return
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish feed event to redis")
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish feed event to nats")
		}
	}
}

func (s *feedService) Subscribe() (<-chan history.AnnotationAction, func()) {
	channel := make(chan history.AnnotationAction, feedBufferSize)

	s.broker.subscribe(channel)
	observability.FeedClientsActive().Inc()

	cleanup := func() {
		s.broker.unsubscribe(channel)
		observability.FeedClientsActive().Dec()
	}

	return channel, cleanup
}

func (s *feedService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("feed redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *feedService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "labelgrid-feed", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats feed subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain feed nats subscription")
		}
	}()
}

func (s *feedService) handleEvent(payload []byte) {
	var event feedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid feed event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	action, err := history.ActionFromMap(event.Action)
	if err != nil {
		s.logger.Warn().Err(err).Msg("invalid action in feed event")
		return
	}

	observability.ActionsPublishedTotal().WithLabelValues(action.ActionType).Inc()
	s.broker.broadcast(action)
}

func (b *feedBroker) subscribe(ch chan history.AnnotationAction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[ch] = struct{}{}
}

func (b *feedBroker) unsubscribe(ch chan history.AnnotationAction) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

func (b *feedBroker) broadcast(action history.AnnotationAction) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- action:
		default:
		}
	}
}
