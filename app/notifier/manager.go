package notifier

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"

	"atm/app/metrics"
	"atm/app/models"
	"atm/pkg/log"
)

const (
	// time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// time allowed to read the next pong message from the peer
	pongWait = 30 * time.Second

	// send pings to peer with this period, must be less than pongWait
	pingPeriod = (pongWait * 8) / 10

	// messages queued per subscriber before new ones are dropped
	sendBuffer = 32
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
)

type unsubscribeHandler func(*subscription)

type subscription struct {
	id            string
	conn          *websocket.Conn
	send          chan *models.Notification
	onUnsubscribe unsubscribeHandler
}

func (s *subscription) read() {
	defer func() {
		if s.onUnsubscribe != nil {
			s.onUnsubscribe(s)
		}
		_ = s.conn.Close()
	}()

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, _, err := s.conn.ReadMessage()
		if err != nil { // failed to read pong or other message
			break
		}
	}
}

func (s *subscription) write() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok { // the channel was closed by notifier
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

// Manager broadcasts notifications to every websocket subscriber.
type Manager struct {
	subs          map[string]*subscription
	notifications chan *models.Notification
	register      chan *subscription
	unregister    chan *subscription
	done          chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		subs:          make(map[string]*subscription),
		notifications: make(chan *models.Notification),
		register:      make(chan *subscription),
		unregister:    make(chan *subscription),
		done:          make(chan struct{}),
	}
}

func (m *Manager) Subscribe(ctx context.Context, sub *models.NewSubscription) error {
	conn, err := upgrader.Upgrade(sub.ResponseWriter, sub.Request, nil)
	if err != nil {
		return errors.Wrap(err, "failed to upgrade a connection")
	}

	s := &subscription{
		id:   ksuid.New().String(),
		conn: conn,
		send: make(chan *models.Notification, sendBuffer),
		onUnsubscribe: func(s *subscription) {
			select {
			case m.unregister <- s:
			case <-m.done:
			}
		},
	}
	log.AddFields(ctx, "subscription", s.id)
	if sub.Greeting != nil {
		s.send <- sub.Greeting
	}

	select {
	case m.register <- s:
		return nil
	case <-m.done:
		_ = conn.Close()
		return errors.New("notifier is stopped")
	}
}

func (m *Manager) Notify(ctx context.Context, notification *models.Notification) {
	log.Debugw("notify by ws", "topic", notification.Topic)
	select {
	case m.notifications <- notification:
	case <-m.done:
	}
}

// Render pushes a chart to the subscribers.
func (m *Manager) Render(ctx context.Context, chart *models.Chart) {
	m.Notify(ctx, &models.Notification{Topic: models.TopicChart, Message: chart})
}

// Forward publishes session events until the channel is closed.
func (m *Manager) Forward(ctx context.Context, events <-chan *models.SessionEvent) {
	for event := range events {
		m.Notify(ctx, &models.Notification{Topic: models.TopicSession, Message: event})
	}
}

// Start runs the hub until ctx is done, then closes every subscription.
func (m *Manager) Start(ctx context.Context) {
	log.Info("starting notifier service")
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			for id, sub := range m.subs {
				delete(m.subs, id)
				close(sub.send)
			}
			log.Info("notifier service stopped")
			return
		case sub := <-m.register:
			m.subs[sub.id] = sub
			metrics.RecordSubscribers(1)
			go sub.read()
			go sub.write()
		case sub := <-m.unregister:
			if _, ok := m.subs[sub.id]; ok {
				delete(m.subs, sub.id)
				close(sub.send)
				metrics.RecordSubscribers(-1)
			}
		case notification := <-m.notifications:
			for _, s := range m.subs {
				select {
				case s.send <- notification:
				default:
					log.Warnw("subscriber is too slow, notification dropped", "subscription", s.id, "topic", notification.Topic)
				}
			}
		}
	}
}
