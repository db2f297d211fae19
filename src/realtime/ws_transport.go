package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"coindash/src/helpers"
	"coindash/src/interfaces"
	"coindash/src/logger"
	"coindash/src/models"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait        = 2 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	handshakeTimeout = 10 * time.Second
)

// -----------------------------------------------------------------------------
// WSTransport implements ITransport over gorilla/websocket against the edge
// hub. One Open is one dialed connection carrying one subscribe command.
// -----------------------------------------------------------------------------

type WSTransport struct {
	URL    string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewWSTransport(url string, l *logger.Logger) *WSTransport {
	return &WSTransport{URL: url, Logger: l}
}

// -----------------------------------------------------------------------------

func (t *WSTransport) Open(assetID, rng, currency string,
	onEvent func(*models.MSeriesEvent),
	onStatus func(status string)) (interfaces.IChannelHandle, error) {

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.Dial(t.URL, nil)
	if err != nil {
		return nil, helpers.NewTransportError("websocket dial failed", err)
	}

	cmd := models.MSubscribeCommand{
		Command:  "subscribe",
		AssetID:  assetID,
		Range:    rng,
		Currency: currency,
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(cmd); err != nil {
		conn.Close()
		return nil, helpers.NewTransportError("subscribe send failed", err)
	}

	h := &wsHandle{conn: conn, done: make(chan struct{}), logger: t.Logger}
	go h.readPump(onEvent, onStatus)
	go h.pingPump()

	return h, nil
}

// -----------------------------------------------------------------------------
// wsHandle
// -----------------------------------------------------------------------------

type wsHandle struct {
	conn    *websocket.Conn
	logger  *logger.Logger
	done    chan struct{}
	writeMu sync.Mutex
	once    sync.Once
}

// -----------------------------------------------------------------------------

// readPump delivers events until the connection dies, then reports the
// terminal status. The subscribed transition is reported from here so Open
// never invokes callbacks synchronously.
func (h *wsHandle) readPump(onEvent func(*models.MSeriesEvent), onStatus func(string)) {
	onStatus(interfaces.StatusSubscribed)

	h.conn.SetReadDeadline(time.Now().Add(pongWait))
	h.conn.SetPongHandler(func(string) error {
		h.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	h.conn.SetPingHandler(func(appData string) error {
		h.conn.SetReadDeadline(time.Now().Add(pongWait))
		h.writeMu.Lock()
		defer h.writeMu.Unlock()
		return h.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		var ev models.MSeriesEvent
		if err := h.conn.ReadJSON(&ev); err != nil {
			select {
			case <-h.done:
				// Closed locally, no status to report.
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					onStatus(interfaces.StatusClosed)
				} else {
					h.logger.Debug("Websocket read failed: %v", err)
					onStatus(interfaces.StatusChannelError)
				}
			}
			h.Close()
			return
		}
		onEvent(&ev)
	}
}

// -----------------------------------------------------------------------------

func (h *wsHandle) pingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.writeMu.Lock()
			h.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := h.conn.WriteMessage(websocket.PingMessage, nil)
			h.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (h *wsHandle) Close() error {
	h.once.Do(func() {
		close(h.done)
		h.conn.Close()
	})
	return nil
}
