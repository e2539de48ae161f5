package mq

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/septivank/lte-signal-map/internal/logging"
	"go.uber.org/zap"
)

// MessageHandler is a function that processes a message
type MessageHandler func(ctx context.Context, topic string, body []byte) error

// Subscriber consumes telemetry readings from an MQTT topic and hands them
// to the message handler. Delivery is QoS 0: a handler failure is logged
// and the message dropped.
type Subscriber struct {
	client  mqtt.Client
	topic   string
	logger  *zap.Logger
	handler MessageHandler

	ctx    context.Context
	cancel context.CancelFunc
}

// SubscriberConfig holds subscriber configuration
type SubscriberConfig struct {
	URL      string
	Username string
	Password string
	Topic    string
	Logger   *zap.Logger
	Handler  MessageHandler
}

// NewSubscriber creates a new MQTT subscriber. The subscription is
// (re)established on every connect so broker restarts recover on their own.
func NewSubscriber(cfg SubscriberConfig) *Subscriber {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Subscriber{
		topic:   cfg.Topic,
		logger:  cfg.Logger,
		handler: cfg.Handler,
		ctx:     ctx,
		cancel:  cancel,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(60 * time.Second).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(3 * time.Second).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			cfg.Logger.Warn("mqtt connection lost", zap.Error(err))
		})

	s.client = mqtt.NewClient(opts)
	return s
}

// Start connects to the broker; the subscription happens in onConnect
func (s *Subscriber) Start(_ context.Context) error {
	token := s.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("[MQTT CONNECTION FAILED] cannot connect to broker. Please check: 1) Broker is running, 2) MQTT_URL is correct, 3) Credentials are valid. Error: %w", token.Error())
	}
	s.logger.Info("mqtt connected")
	return nil
}

// Close stops message handling and disconnects from the broker
func (s *Subscriber) Close() error {
	s.cancel()
	s.client.Disconnect(250)
	s.logger.Info("mqtt disconnected")
	return nil
}

func (s *Subscriber) onConnect(client mqtt.Client) {
	token := client.Subscribe(s.topic, 0, s.onMessage)
	if token.Wait() && token.Error() != nil {
		s.logger.Error("mqtt subscribe error", zap.String("topic", s.topic), zap.Error(token.Error()))
		return
	}
	s.logger.Info("subscribed to topic", zap.String("topic", s.topic))
}

func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	msgLogger := logging.WithRequestID(s.logger, uuid.NewString())

	msgLogger.Info("received message",
		zap.String("topic", msg.Topic()),
		zap.Int("body_size", len(msg.Payload())),
	)

	// At-most-once from the pipeline's perspective: validation and
	// persistence failures alike are logged, the message is dropped.
	if err := s.handler(s.ctx, msg.Topic(), msg.Payload()); err != nil {
		msgLogger.Error("mqtt message handling error",
			zap.Error(err),
			zap.String("topic", msg.Topic()),
		)
		return
	}

	msgLogger.Debug("message processed successfully", zap.String("topic", msg.Topic()))
}
