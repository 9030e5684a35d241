package rpc

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"savedanalysis/internal/gateway/service/loader"
)

const (
	upgradeWSWriteWait = 10 * time.Second
	upgradeWSPongWait  = 60 * time.Second
	upgradeWSPingEvery = (upgradeWSPongWait * 9) / 10
	upgradeWSMaxFrame  = 32 << 20
)

var upgradeWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type upgradeWSInbound struct {
	ID       string          `json:"id"`
	Document json.RawMessage `json:"document"`
}

type upgradeWSOutbound struct {
	ID       string          `json:"id,omitempty"`
	Document json.RawMessage `json:"document,omitempty"`
	Upgraded bool            `json:"upgraded,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// HandleUpgradeWS upgrades saved analyses streamed by a notebook front end.
// Every text frame carries one document and gets exactly one reply with the
// same id, in order.
func HandleUpgradeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgradeWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(upgradeWSMaxFrame)
	if err := conn.SetReadDeadline(time.Now().Add(upgradeWSPongWait)); err != nil {
		log.Printf("upgrade ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(upgradeWSPongWait))
	})

	writeCh := make(chan upgradeWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(upgradeWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(upgradeWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(upgradeWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("upgrade ws read failed: %v", err)
			}
			break
		}
		if err := conn.SetReadDeadline(time.Now().Add(upgradeWSPongWait)); err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		out := upgradeFrame(payload)
		select {
		case writeCh <- out:
		case <-writerDone:
			return
		}
	}
	cancel()
	<-writerDone
}

func upgradeFrame(payload []byte) upgradeWSOutbound {
	var in upgradeWSInbound
	if err := json.Unmarshal(payload, &in); err != nil {
		return upgradeWSOutbound{Error: "invalid frame: " + err.Error()}
	}
	if len(in.Document) == 0 {
		return upgradeWSOutbound{ID: in.ID, Error: "document is required"}
	}
	doc, upgraded, err := loader.UpgradeBytes(in.Document)
	if err != nil {
		return upgradeWSOutbound{ID: in.ID, Error: err.Error()}
	}
	return upgradeWSOutbound{ID: in.ID, Document: json.RawMessage(doc), Upgraded: upgraded}
}
