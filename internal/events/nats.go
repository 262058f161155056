package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const SUBJECT_PREFIX = "mdiboard.events."

// Publisher is the part of a NATS connection the recorder needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes every event on a subject named after its kind
type NATS struct {
	publisher Publisher
	conn      *nats.Conn
}

// ConnectNATS dials the server and returns a recorder owning the connection
func ConnectNATS(url string) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("mdiboard"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			log.Info().Str("url", conn.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATS{publisher: conn, conn: conn}, nil
}

func NewNATS(publisher Publisher) *NATS {
	return &NATS{publisher: publisher}
}

func Subject(kind Kind) string {
	return SUBJECT_PREFIX + string(kind)
}

// Record never fails the caller, publishing problems are only logged
func (n *NATS) Record(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Could not encode event")
		return
	}
	if err := n.publisher.Publish(Subject(event.Kind), data); err != nil {
		log.Warn().Err(err).Str("kind", string(event.Kind)).Msg("Could not publish event")
	}
}

// Close drains the connection if the recorder owns one
func (n *NATS) Close() {
	if n.conn == nil {
		return
	}
	if err := n.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("Could not drain NATS connection")
		n.conn.Close()
	}
}
