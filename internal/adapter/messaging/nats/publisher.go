package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("plotsure/nats-publisher")

// Envelope wraps every published domain event.
type Envelope struct {
	ID         string          `json:"id"`
	Subject    string          `json:"subject"`
	Source     string          `json:"source"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type Publisher struct {
	conn   *nats.Conn
	source string
	logger *logger.Logger
	now    func() time.Time
}

func NewPublisher(url string, log *logger.Logger, appName string) (*Publisher, error) {
	pubLog := log.Named("NATSPublisher")
	pubLog.Info("Connecting to NATS", zap.String("url", url))

	opts := []nats.Option{
		nats.Name(fmt.Sprintf("%s NATS Publisher", appName)),
		nats.Timeout(10 * time.Second),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			fields := []zap.Field{zap.Error(err)}
			if sub != nil {
				fields = append(fields, zap.String("subject", sub.Subject))
			}
			pubLog.Error("NATS error", fields...)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			pubLog.Info("NATS connection closed")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			pubLog.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			pubLog.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		pubLog.Error("Failed to connect to NATS", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	pubLog.Info("Connected to NATS", zap.String("url", conn.ConnectedUrl()))

	return &Publisher{conn: conn, source: appName, logger: pubLog, now: time.Now}, nil
}

// Publish sends data as the payload of an Envelope on subject. The span
// context of ctx travels in the message headers.
func (p *Publisher) Publish(ctx context.Context, subject string, data interface{}) error {
	ctx, span := tracer.Start(ctx, "NATS.Publish "+subject, trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	msg, err := p.buildMsg(ctx, subject, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal failed")
		p.logger.Error("Failed to marshal event", zap.String("subject", subject), zap.Error(err))
		return err
	}
	span.SetAttributes(
		attribute.String("messaging.system", "nats"),
		attribute.String("messaging.destination.name", subject),
		attribute.Int("messaging.message.body.size", len(msg.Data)),
	)

	if err := p.conn.PublishMsg(msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		p.logger.Error("Failed to publish event", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to publish message to subject %s: %w", subject, err)
	}

	p.logger.Debug("Event published", zap.String("subject", subject), zap.Int("data_size_bytes", len(msg.Data)))
	return nil
}

func (p *Publisher) buildMsg(ctx context.Context, subject string, data interface{}) (*nats.Msg, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data for subject %s: %w", subject, err)
	}
	env := Envelope{
		ID:         uuid.NewString(),
		Subject:    subject,
		Source:     p.source,
		OccurredAt: p.now().UTC(),
		Data:       payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope for subject %s: %w", subject, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = body
	msg.Header.Set(nats.MsgIdHdr, env.ID)
	otel.GetTextMapPropagator().Inject(ctx, NATSHeaderCarrier(msg.Header))
	return msg, nil
}

// Ping reports whether the connection is usable.
func (p *Publisher) Ping() error {
	if p.conn == nil || !p.conn.IsConnected() {
		return fmt.Errorf("nats is not connected")
	}
	return nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.conn == nil || p.conn.IsClosed() {
		return
	}
	p.logger.Info("Draining NATS connection")
	if err := p.conn.Drain(); err != nil {
		p.logger.Error("Failed to drain NATS connection", zap.Error(err))
		p.conn.Close()
	}
}

// NATSHeaderCarrier adapts nats.Header to the OpenTelemetry TextMapCarrier.
type NATSHeaderCarrier nats.Header

func (c NATSHeaderCarrier) Get(key string) string {
	return nats.Header(c).Get(key)
}

func (c NATSHeaderCarrier) Set(key string, value string) {
	nats.Header(c).Set(key, value)
}

func (c NATSHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// NopPublisher drops events. It stands in when NATS is not reachable at start-up.
type NopPublisher struct {
	logger *logger.Logger
}

func NewNopPublisher(log *logger.Logger) *NopPublisher {
	return &NopPublisher{logger: log.Named("NopPublisher")}
}

func (p *NopPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	p.logger.Debug("Event dropped, no broker configured", zap.String("subject", subject))
	return nil
}
