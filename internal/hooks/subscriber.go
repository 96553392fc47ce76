package hooks

import (
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"
)

// Subscriber receives hook messages for the topics it subscribed to.
type Subscriber interface {
	Subscribe(topic string) error
	Recv() (Message, error)
	Close() error
}

// Dialer connects a Subscriber to a ZeroMQ endpoint.
type Dialer func(ctx context.Context, endpoint string) (Subscriber, error)

type zmqSubscriber struct {
	sock zmq4.Socket
}

// DialZMQ opens a SUB socket connected to endpoint.
func DialZMQ(ctx context.Context, endpoint string) (Subscriber, error) {
	sock := zmq4.NewSub(ctx)
	if err := sock.Dial(endpoint); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}
	return &zmqSubscriber{sock: sock}, nil
}

func (s *zmqSubscriber) Subscribe(topic string) error {
	return s.sock.SetOption(zmq4.OptionSubscribe, topic)
}

func (s *zmqSubscriber) Recv() (Message, error) {
	msg, err := s.sock.Recv()
	if err != nil {
		return Message{}, err
	}

	var out Message
	if len(msg.Frames) > 0 {
		out.Topic = string(msg.Frames[0])
	}
	if len(msg.Frames) > 1 {
		out.Payload = msg.Frames[1]
	}
	return out, nil
}

func (s *zmqSubscriber) Close() error {
	return s.sock.Close()
}
