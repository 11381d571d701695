package app

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/mocap_retarget/internal/config"
	"github.com/relabs-tech/mocap_retarget/internal/pose"
)

// viewer is the browser page served at /.
//
//go:embed web
var viewer embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the rig viewer is served from anywhere on the LAN
	},
}

const wsWriteTimeout = 2 * time.Second

// wsCommand is what a viewer may send over /ws/pose.
type wsCommand struct {
	Action string `json:"action"` // "animation"
	Active bool   `json:"active"`
}

type wsStatus struct {
	Type    string `json:"type"` // "hello", "ack", "error"
	Session string `json:"session,omitempty"`
	Message string `json:"message,omitempty"`
}

// webServer serves the newest retargeted pose. signal forwards animation
// start/stop requests; it may be nil.
type webServer struct {
	snap   *pose.Snapshot
	signal func(active bool) error
}

func (s *webServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/pose", s.handlePose)
	mux.HandleFunc("/api/animation", s.handleAnimation)
	mux.HandleFunc("/ws/pose", s.handlePoseWS)
	static, _ := fs.Sub(viewer, "web")
	mux.Handle("/", http.FileServer(http.FS(static)))
	return mux
}

// handlePose returns the latest pose frame as JSON.
func (s *webServer) handlePose(w http.ResponseWriter, r *http.Request) {
	f, ok := s.snap.Latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(f); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleAnimation takes POST with body 1/0/true/false/start/stop.
func (s *webServer) handleAnimation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.signal == nil {
		http.Error(w, "animation control disabled", http.StatusNotImplemented)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 64))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	active, err := parseAnimationSignal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.signal(active); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePoseWS streams every pose frame to the viewer and accepts
// animation commands back.
func (s *webServer) handlePoseWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	log.Printf("web: viewer %s connected from %s", session, r.RemoteAddr)
	defer log.Printf("web: viewer %s disconnected", session)

	frames, cancel := s.snap.Subscribe(8)
	defer cancel()

	// Only this goroutine writes to conn.
	replies := make(chan wsStatus, 4)
	replies <- wsStatus{Type: "hello", Session: session}
	if f, ok := s.snap.Latest(); ok {
		if err := writeJSON(conn, f); err != nil {
			return
		}
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket error: %v", err)
				}
				return
			}
			select {
			case replies <- s.command(cmd):
			default:
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case st := <-replies:
			if err := writeJSON(conn, st); err != nil {
				return
			}
		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := writeJSON(conn, f); err != nil {
				return
			}
		}
	}
}

func (s *webServer) command(cmd wsCommand) wsStatus {
	switch cmd.Action {
	case "animation":
		if s.signal == nil {
			return wsStatus{Type: "error", Message: "animation control disabled"}
		}
		if err := s.signal(cmd.Active); err != nil {
			return wsStatus{Type: "error", Message: err.Error()}
		}
		return wsStatus{Type: "ack", Message: "animation " + animationPayload(cmd.Active)}
	default:
		return wsStatus{Type: "error", Message: fmt.Sprintf("unknown action %q", cmd.Action)}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v)
}

// RunWeb subscribes to TOPIC_POSE and serves the newest frame on
// /api/pose and as a live feed on /ws/pose.
func RunWeb() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("web: config not initialized")
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	snap := pose.NewSnapshot()
	token := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		f, err := pose.DecodeFrame(msg.Payload())
		if err != nil {
			log.Printf("web: pose unmarshal error: %v", err)
			return
		}
		snap.Store(f)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to MQTT topic %s", cfg.TopicPose)

	srv := &webServer{
		snap: snap,
		signal: func(active bool) error {
			t := client.Publish(cfg.TopicAnimation, 1, false, animationPayload(active))
			if !t.WaitTimeout(time.Second) {
				return fmt.Errorf("publish %s: timed out", cfg.TopicAnimation)
			}
			return t.Error()
		},
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Printf("web server listening on %s", httpSrv.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Println("web: shutting down")
	return nil
}
