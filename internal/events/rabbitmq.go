package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig 描述 RabbitMQ 交换机的连接参数。
type RabbitMQConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// RabbitMQPublisher 将事件投递到 topic 交换机，路由键为 <routing_key>.<event type>。
type RabbitMQPublisher struct {
	mu         sync.Mutex
	conn       *amqp.Connection
	ch         *amqp.Channel
	exchange   string
	routingKey string
}

// NewRabbitMQPublisher 创建 RabbitMQ 发布器。
func NewRabbitMQPublisher(cfg RabbitMQConfig) (*RabbitMQPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("RabbitMQ URL 不能为空")
	}
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "proofbench.consent"
	}
	routingKey := cfg.RoutingKey
	if routingKey == "" {
		routingKey = "proofbench"
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建 RabbitMQ channel 失败: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("声明 RabbitMQ 交换机失败: %w", err)
	}
	return &RabbitMQPublisher{conn: conn, ch: ch, exchange: exchange, routingKey: routingKey}, nil
}

// RoutingKey 返回事件对应的路由键。
func RoutingKey(prefix string, t Type) string {
	return prefix + "." + string(t)
}

// Publish 实现 Publisher 接口。amqp.Channel 不支持并发发布，因此串行化。
func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.ch == nil {
		return errors.New("RabbitMQ 发布器未初始化")
	}
	payload, err := event.Encode()
	if err != nil {
		return fmt.Errorf("编码事件失败: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(p.routingKey, event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         payload,
	})
}

// Name 实现 Publisher 接口。
func (p *RabbitMQPublisher) Name() string { return "rabbitmq" }

// Close 关闭 RabbitMQ 连接。
func (p *RabbitMQPublisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
