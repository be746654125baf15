// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jcodagnone/afyamap/geolocation"
	"github.com/jcodagnone/afyamap/spatial"
	"github.com/jcodagnone/afyamap/viewer"
)

const writeWait = 10 * time.Second

// ClientMessage is an interaction reported by the page.
type ClientMessage struct {
	Type string `json:"type"`

	FacilityType string `json:"facility_type,omitempty"`
	Region       string `json:"region,omitempty"`
	Query        string `json:"query,omitempty"`
	Key          string `json:"key,omitempty"`
	Index        int    `json:"index,omitempty"`

	// answers to a locate request
	RequestID string  `json:"request_id,omitempty"`
	Lat       float64 `json:"lat,omitempty"`
	Lng       float64 `json:"lng,omitempty"`
	Code      int     `json:"code,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// ServerMessage is pushed to the page.
type ServerMessage struct {
	Type    string               `json:"type"`
	View    *viewer.View         `json:"view,omitempty"`
	Request *geolocation.Request `json:"request,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type session struct {
	conn   *websocket.Conn
	app    *viewer.App
	remote *geolocation.Remote

	// gorilla connections allow a single concurrent writer
	wmu sync.Mutex
}

func (s *session) write(msg ServerMessage) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))

	return s.conn.WriteJSON(msg)
}

func (s *session) sendView(v viewer.View) {
	if err := s.write(ServerMessage{Type: "view", View: &v}); err != nil {
		log.Printf("ws: sending view: %v", err)
	}
}

func (s *session) sendRequest(req geolocation.Request) error {
	return s.write(ServerMessage{Type: "locate", Request: &req})
}

func (s *Server) session(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)

		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{conn: conn}
	sess.remote = geolocation.NewRemote(sess.sendRequest)
	sess.app = viewer.New(
		viewer.NewScene(viewer.DefaultCenter, viewer.DefaultZoom),
		&geolocation.Cached{Locator: sess.remote},
		viewer.WithOnUpdate(sess.sendView),
		viewer.WithLocateOptions(s.opts.LocateOptions),
	)

	defer func() {
		cancel()
		sess.remote.Close()
		conn.Close()
		log.Printf("ws: session from %s closed", c.ClientIP())
	}()

	log.Printf("ws: session from %s opened", c.ClientIP())
	sess.app.Init(s.store)

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read error: %v", err)
			}

			return
		}

		sess.dispatch(ctx, &msg)
	}
}

func (s *session) dispatch(ctx context.Context, msg *ClientMessage) {
	switch msg.Type {
	case "set_type":
		s.app.SetType(msg.FacilityType)
	case "set_region":
		s.app.SetRegion(msg.Region)
	case "input":
		s.app.Input(msg.Query)
	case "key":
		s.app.KeyDown(msg.Key)
	case "select":
		if err := s.app.ClickResult(msg.Index); err != nil {
			s.sendError(err)
		}
	case "click_outside":
		s.app.ClickOutside()
	case "dismiss_alert":
		s.app.DismissAlert()
	case "locate":
		// the answer arrives through this same read loop
		go func() {
			if _, err := s.app.Locate(ctx); errors.Is(err, viewer.ErrLocating) {
				s.sendError(err)
			}
		}()
	case "position":
		s.remote.Resolve(msg.RequestID, spatial.Point{Lat: msg.Lat, Lng: msg.Lng})
	case "position_error":
		s.remote.Reject(msg.RequestID, geolocation.ErrorCode(msg.Code), msg.Message)
	default:
		s.sendError(errors.New("unknown message type " + msg.Type))
	}
}

func (s *session) sendError(err error) {
	if werr := s.write(ServerMessage{Type: "error", Error: err.Error()}); werr != nil {
		log.Printf("ws: sending error: %v", werr)
	}
}
