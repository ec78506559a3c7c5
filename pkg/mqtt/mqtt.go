// Package mqtt provides MQTT communication capabilities for the bot.
// Case events are published for external consumers and a small
// request/response layer answers queries over the broker.
package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

// Topic prefixes
const (
	CasesTopicPrefix   = "valeriyya/cases/"
	RequestTopicPrefix = "valeriyya/request/"
	ResponseTopicBase  = "valeriyya/response/"
)

var (
	ErrNotConnected = errors.New("mqtt client not connected")
	ErrTimeout      = errors.New("mqtt operation timed out")
)

const publishTimeout = 5 * time.Second

// MqttRequest represents an MQTT request message
type MqttRequest struct {
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload,omitempty"`
}

// MqttResponse represents an MQTT response message
type MqttResponse struct {
	CorrelationID string      `json:"correlationId"`
	Data          interface{} `json:"data"`
	Error         string      `json:"error,omitempty"`
}

// CaseEvent is published every time a moderation case is recorded
type CaseEvent struct {
	EventID string      `json:"eventId"`
	GuildID string      `json:"guildId"`
	Case    models.Case `json:"case"`
	SentAt  time.Time   `json:"sentAt"`
}

// MqttCommunicator handles MQTT communication
type MqttCommunicator struct {
	client   mqtt.Client
	clientID string

	mu       sync.Mutex
	handlers map[string]RequestHandler
}

var (
	communicator *MqttCommunicator
	once         sync.Once
)

// Init initializes the global MQTT communicator
func Init(broker, username, password, clientID string) *MqttCommunicator {
	once.Do(func() {
		communicator = NewMqttCommunicator(broker, username, password, clientID)
	})
	return communicator
}

// Get returns the global MQTT communicator
func Get() *MqttCommunicator {
	return communicator
}

// NewMqttCommunicator creates a new MQTT communicator and starts connecting.
// Paho keeps retrying in the background when the broker is down.
func NewMqttCommunicator(broker, username, password, clientID string) *MqttCommunicator {
	uniqueID := fmt.Sprintf("%s_%s", clientID, uuid.New().String())

	var mc *MqttCommunicator
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(uniqueID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Connected to the MQTT broker as %s", clientID), "MQTT")
			// A clean session forgets subscriptions on every reconnect
			go mc.resubscribe()
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("MQTT connection lost: %v", err), "MQTT")
		})

	mc = newWithClient(mqtt.NewClient(opts), clientID)

	token := mc.client.Connect()
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		logger.Error(fmt.Sprintf("MQTT connection error: %v", token.Error()), "MQTT")
	}

	return mc
}

func newWithClient(client mqtt.Client, clientID string) *MqttCommunicator {
	return &MqttCommunicator{
		client:   client,
		clientID: clientID,
		handlers: make(map[string]RequestHandler),
	}
}

// Destroy closes the MQTT connection
func (mc *MqttCommunicator) Destroy() {
	if mc.IsConnected() {
		mc.client.Disconnect(250)
		logger.System("MQTT connection closed.", "MQTT")
	} else {
		logger.Warn("MQTT client was not connected, nothing to close.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (mc *MqttCommunicator) IsConnected() bool {
	return mc != nil && mc.client != nil && mc.client.IsConnected()
}

// Publish sends a JSON encoded message to a topic
func (mc *MqttCommunicator) Publish(topic string, payload interface{}) error {
	if !mc.IsConnected() {
		return ErrNotConnected
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := mc.client.Publish(topic, 0, false, jsonData)
	if !token.WaitTimeout(publishTimeout) {
		return ErrTimeout
	}
	return token.Error()
}

// PublishCase announces a recorded case on valeriyya/cases/<guild>
func (mc *MqttCommunicator) PublishCase(guildID string, c models.Case) error {
	return mc.Publish(CasesTopicPrefix+guildID, CaseEvent{
		EventID: uuid.New().String(),
		GuildID: guildID,
		Case:    c,
		SentAt:  time.Now().UTC(),
	})
}

// RequestHandler is a function type for handling MQTT requests
type RequestHandler func(payload map[string]interface{}) (interface{}, error)

// On registers a handler for valeriyya/request/<topic>. The answer goes to
// valeriyya/response/<topic>/<correlationId>. Handlers registered while
// disconnected are subscribed once the client connects.
func (mc *MqttCommunicator) On(requestTopic string, callback RequestHandler) error {
	mc.mu.Lock()
	mc.handlers[requestTopic] = callback
	mc.mu.Unlock()

	if !mc.IsConnected() {
		return nil
	}
	return mc.subscribe(requestTopic, callback)
}

func (mc *MqttCommunicator) subscribe(requestTopic string, callback RequestHandler) error {
	topic := RequestTopicPrefix + requestTopic

	// handlers may wait on guild locks, keep the paho router free
	token := mc.client.Subscribe(topic, 0, func(c mqtt.Client, msg mqtt.Message) {
		go mc.handleRequest(msg.Topic(), msg.Payload(), callback)
	})
	if !token.WaitTimeout(publishTimeout) {
		return ErrTimeout
	}
	if err := token.Error(); err != nil {
		logger.Error(fmt.Sprintf("Error subscribing to topic %s: %v", topic, err), "MQTT")
		return err
	}
	return nil
}

func (mc *MqttCommunicator) resubscribe() {
	mc.mu.Lock()
	handlers := make(map[string]RequestHandler, len(mc.handlers))
	for topic, h := range mc.handlers {
		handlers[topic] = h
	}
	mc.mu.Unlock()

	for topic, h := range handlers {
		_ = mc.subscribe(topic, h)
	}
}

func (mc *MqttCommunicator) handleRequest(receivedTopic string, raw []byte, callback RequestHandler) {
	var request MqttRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		logger.Error(fmt.Sprintf("Error parsing MQTT request: %v", err), "MQTT")
		return
	}

	actualTopic := strings.TrimPrefix(receivedTopic, RequestTopicPrefix)
	responseTopic := fmt.Sprintf("%s%s/%s", ResponseTopicBase, actualTopic, request.CorrelationID)

	payloadMap := make(map[string]interface{})
	if pm, ok := request.Payload.(map[string]interface{}); ok {
		payloadMap = pm
	}
	payloadMap["_topic"] = actualTopic

	response := MqttResponse{CorrelationID: request.CorrelationID}
	if data, err := callback(payloadMap); err != nil {
		response.Error = err.Error()
	} else {
		response.Data = data
	}

	if err := mc.Publish(responseTopic, response); err != nil {
		logger.Warn(fmt.Sprintf("Failed to answer %s: %v", responseTopic, err), "MQTT")
	}
}
