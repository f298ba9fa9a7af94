// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Publisher sends payloads to topics.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Subscriber delivers payloads from topics to handlers.
type Subscriber interface {
	Subscribe(topic string, handler func(payload []byte)) error
}

// MQTTClient is a connected paho client. Messages are published retained at
// QoS 0.
type MQTTClient struct {
	client mqtt.Client
	log    *zap.SugaredLogger
}

// ConnectMQTT connects to broker with the given client id.
func ConnectMQTT(broker, clientID string, logger *zap.SugaredLogger) (*MQTTClient, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warnf("mqtt: connection lost: %v", err)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "mqtt connect %s", broker)
	}
	logger.Infof("mqtt: connected to %s as %s", broker, clientID)
	return &MQTTClient{client: client, log: logger}, nil
}

// Publish implements Publisher.
func (c *MQTTClient) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return errors.Errorf("mqtt publish %s: timeout", topic)
	}
	return errors.Wrapf(token.Error(), "mqtt publish %s", topic)
}

// Subscribe implements Subscriber.
func (c *MQTTClient) Subscribe(topic string, handler func(payload []byte)) error {
	token := c.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return errors.Wrapf(token.Error(), "mqtt subscribe %s", topic)
	}
	c.log.Infof("mqtt: subscribed to %s", topic)
	return nil
}

// Close disconnects, waiting up to 250ms for in flight work.
func (c *MQTTClient) Close() {
	c.client.Disconnect(250)
}
