package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultExchange is used when mq.exchange is not configured.
	DefaultExchange = "events"

	connectionName = "projecthub"
)

// NewConnection dials RabbitMQ. The connection is labelled "projecthub" in the
// broker's management UI.
func NewConnection(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.DialConfig(url, dialConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

func dialConfig() amqp091.Config {
	props := amqp091.NewConnectionProperties()
	props.SetClientConnectionName(connectionName)
	return amqp091.Config{
		Properties: props,
		Locale:     "en_US",
	}
}

// exchangeName 为空时回退到默认交换机
func exchangeName(name string) string {
	if name == "" {
		return DefaultExchange
	}
	return name
}

// DeclareExchange declares the durable topic exchange project events go to.
// Consumers bind queues with patterns such as "project.*".
func DeclareExchange(ch *amqp091.Channel, name string) error {
	if err := ch.ExchangeDeclare(
		name,
		amqp091.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %q: %w", name, err)
	}
	return nil
}
