package live

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/presensia/presensia-client/internal/model"
	"github.com/presensia/presensia-client/internal/status"
)

// Snapshot is one resolved view of the session, emitted per pushed update.
type Snapshot struct {
	Session model.AttendanceSession
	Record  model.AttendanceRecord
	State   status.DisplayState
}

// update is the wire shape the server pushes on the live feed.
type update struct {
	Session model.AttendanceSession `json:"session"`
	Record  model.AttendanceRecord  `json:"record"`
}

// Feed is a WebSocket subscription to a session's record updates. Every
// pushed update re-runs the status resolver, so the emitted snapshot always
// carries the freshly derived display state.
type Feed struct {
	conn      *websocket.Conn
	resolver  *status.Resolver
	log       zerolog.Logger
	snapshots chan Snapshot
	done      chan struct{}
	closeOnce sync.Once
}

// Subscribe dials the live feed for a session. baseURL is the backend HTTP
// base URL; the ws scheme is derived from it. The token travels as a query
// parameter because WebSocket upgrades cannot carry custom headers from
// every client platform.
func Subscribe(ctx context.Context, baseURL, sessionID, token string, resolver *status.Resolver, log zerolog.Logger) (*Feed, error) {
	wsURL, err := feedURL(baseURL, sessionID, token)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial live feed: %w", err)
	}

	f := &Feed{
		conn:      conn,
		resolver:  resolver,
		log:       log.With().Str("component", "live_feed").Str("session_id", sessionID).Logger(),
		snapshots: make(chan Snapshot, 8),
		done:      make(chan struct{}),
	}
	go f.run()

	f.log.Info().Msg("Live feed connected")
	return f, nil
}

// Snapshots delivers resolved updates. The channel is closed when the feed
// ends, whether by Close or by the server going away.
func (f *Feed) Snapshots() <-chan Snapshot {
	return f.snapshots
}

// Close tears the feed down. Updates already in flight are discarded, not
// delivered to a consumer that is gone.
func (f *Feed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		err = f.conn.Close()
	})
	return err
}

func (f *Feed) run() {
	defer close(f.snapshots)

	for {
		var upd update
		if err := f.conn.ReadJSON(&upd); err != nil {
			select {
			case <-f.done:
				f.log.Debug().Msg("Live feed closed")
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					f.log.Warn().Err(err).Msg("Live feed dropped")
				} else {
					f.log.Debug().Msg("Live feed ended")
				}
			}
			return
		}

		snap := Snapshot{
			Session: upd.Session,
			Record:  upd.Record,
			State:   f.resolver.Resolve(&upd.Session, &upd.Record, time.Now()),
		}

		select {
		case f.snapshots <- snap:
		case <-f.done:
			// Consumer is gone; a late update is simply dropped.
			return
		}
	}
}

func feedURL(baseURL, sessionID, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u = u.JoinPath("attendance", "live", sessionID)
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
