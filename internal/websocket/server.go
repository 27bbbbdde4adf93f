package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/astral-smp/astralbot/internal/mcbridge"
	"github.com/astral-smp/astralbot/internal/shared/logging"
)

// Server accepts the websocket connection from the Minecraft server
// and hands it to the bridge.
type Server struct {
	addr   string
	bridge *mcbridge.Bridge
}

func NewServer(addr string, bridge *mcbridge.Bridge) *Server {
	return &Server{addr: addr, bridge: bridge}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func (s *Server) handleMinecraft(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.L().Error("mc upgrade failed", "err", err)
		return
	}
	logging.L().Info("minecraft connected", "remote", r.RemoteAddr)
	s.bridge.Attach(c)
}

func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/mc", s.handleMinecraft)
	logging.L().Info("websocket listening", "addr", s.addr)
	return http.ListenAndServe(s.addr, mux)
}
