package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/battrelay/battrelay/core/events"
	"github.com/battrelay/battrelay/core/model"
	"github.com/battrelay/battrelay/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker       string          `json:"broker"`
	ClientID     string          `json:"client_id"`
	Username     string          `json:"username"`
	Password     string          `json:"password"`
	AuthMethod   string          `json:"auth_method"`
	UseTLS       bool            `json:"use_tls"`
	ClientCert   string          `json:"client_cert"`
	ClientKey    string          `json:"client_key"`
	CABundle     string          `json:"ca_bundle"`
	StatusTopic  string          `json:"status_topic"`
	AlertTopic   string          `json:"alert_topic"`
	SampleTopic  string          `json:"sample_topic"`
	RetainStatus bool            `json:"retain_status"`
	QoS          map[string]byte `json:"qos"`
	LWTTopic     string          `json:"lwt_topic"`
	LWTPayload   string          `json:"lwt_payload"`
	LWTQoS       byte            `json:"lwt_qos"`
	LWTRetain    bool            `json:"lwt_retain"`
	MaxRetries   int             `json:"max_retries"`
	BackoffMS    int             `json:"backoff_ms"`
	TLSConfig    *tls.Config     `json:"-"`
}

// SetDefaults fills in the stock topics and publish behaviour.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "battrelay-" + uuid.NewString()[:8]
	}
	if c.StatusTopic == "" {
		c.StatusTopic = "battery/status"
	}
	if c.AlertTopic == "" {
		c.AlertTopic = "battery/alert"
	}
	if c.SampleTopic == "" {
		c.SampleTopic = "battery/raw"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient publishes battery states and alerts and delivers raw
// samples from the telemetry topic. It implements monitor.StatePublisher.
type PahoClient struct {
	cli     pahoClient
	cfg     Config
	samples chan model.RawSample
	log     logger.Logger
	backoff time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the broker and subscribes to the sample topic.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		cfg:     cfg,
		samples: make(chan model.RawSample, 16),
		log:     log,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		qos := pc.qos("sample")
		if token := c.Subscribe(cfg.SampleTopic, qos, pc.onSample); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// sampleWire is the raw sensor payload. Pointer fields let a missing
// measurement be told apart from a zero reading.
type sampleWire struct {
	Voltage   *float64 `json:"voltage"`
	Current   *float64 `json:"current"`
	Timestamp *int64   `json:"timestamp"` // unix milliseconds, optional
}

func (p *PahoClient) onSample(_ paho.Client, msg paho.Message) {
	var w sampleWire
	s := model.RawSample{Voltage: math.NaN(), Current: math.NaN(), Timestamp: time.Now()}
	if err := json.Unmarshal(msg.Payload(), &w); err != nil {
		p.log.Errorf("failed to decode sample: %v", err)
		// Forward the invalid sample so the pipeline counts it.
	} else {
		if w.Voltage != nil {
			s.Voltage = *w.Voltage
		}
		if w.Current != nil {
			s.Current = *w.Current
		}
		if w.Timestamp != nil {
			s.Timestamp = time.UnixMilli(*w.Timestamp)
		}
	}
	select {
	case p.samples <- s:
	default:
		p.log.Warnf("sample channel full, dropping reading")
	}
}

// Samples returns the channel of decoded raw samples.
func (p *PahoClient) Samples() <-chan model.RawSample { return p.samples }

// PublishState publishes the wire form of the state to the status topic.
// The message is retained when configured so late subscribers receive
// the last known state immediately.
func (p *PahoClient) PublishState(st model.BatteryState) error {
	payload, err := json.Marshal(st.Wire())
	if err != nil {
		return err
	}
	return p.publish(p.cfg.StatusTopic, p.qos("status"), p.cfg.RetainStatus, payload)
}

// alertWire is the notification payload sent on alert transitions.
type alertWire struct {
	EventID     string              `json:"event_id"`
	Kind        string              `json:"kind"`
	Subscribers []string            `json:"subscribers"`
	State       model.StatusMessage `json:"state"`
	Timestamp   int64               `json:"timestamp"`
}

// NotifyAlert publishes a fired or cleared event to the alert topic.
func (p *PahoClient) NotifyAlert(ev events.AlertEvent) error {
	payload, err := json.Marshal(alertWire{
		EventID:     ev.ID,
		Kind:        string(ev.Kind),
		Subscribers: ev.Subscribers,
		State:       ev.State.Wire(),
		Timestamp:   ev.Time.UnixMilli(),
	})
	if err != nil {
		return err
	}
	return p.publish(p.cfg.AlertTopic, p.qos("alert"), false, payload)
}

func (p *PahoClient) publish(topic string, qos byte, retain bool, payload []byte) error {
	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		p.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(p.backoff * time.Duration(1<<attempt))
	}
	return publishErr
}

func (p *PahoClient) qos(key string) byte {
	if q, ok := p.cfg.QoS[key]; ok {
		return q
	}
	return 0
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
