package main

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"

	"github.com/PaulBabatuyi/chatsync/internal/auth"
	"github.com/PaulBabatuyi/chatsync/internal/data"
	"github.com/PaulBabatuyi/chatsync/internal/middleware"
	"github.com/PaulBabatuyi/chatsync/internal/normalize"
	"github.com/PaulBabatuyi/chatsync/internal/observability"
	v1 "github.com/PaulBabatuyi/chatsync/rpc/chatsync/v1"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// mediaOpener streams stored media by path.
type mediaOpener interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// opsServer is the HTTP side of the service: health, metrics, media
// downloads and the websocket observe endpoint.
type opsServer struct {
	media   mediaOpener
	auth    *auth.JWTManager
	hub     *ConnectionHub
	limiter *middleware.LimiterStore
	ping    func(context.Context) error
	log     *log.Logger
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (o *opsServer) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware("chatsync-ops"), observability.HTTPMetricsMiddleware())

	r.GET("/healthz", o.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/media/*path", o.serveMedia)
	if o.limiter != nil {
		r.GET("/ws", middleware.RateLimitHandler(o.limiter), o.websocket)
	} else {
		r.GET("/ws", o.websocket)
	}
	return r
}

func (o *opsServer) healthz(c *gin.Context) {
	if o.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := o.ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (o *opsServer) serveMedia(c *gin.Context) {
	p := strings.TrimPrefix(c.Param("path"), "/")
	if p == "" || strings.Contains(p, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid path"})
		return
	}

	rc, err := o.media.Open(c.Request.Context(), p)
	if errors.Is(err, data.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		o.log.Error("open media failed", "path", p, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(p))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}

// websocket authenticates with ?token= or an Authorization header, then
// pushes the caller's events as JSON text frames until the peer goes away.
func (o *opsServer) websocket(c *gin.Context) {
	ctx, span := otel.Tracer("chatsync/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("token")
	}
	claims, err := o.auth.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	safe := normalize.SafeEmail(claims.Email)
	sender := &serialSender{next: &wsSender{conn: conn}}
	id := o.hub.Register(safe, sender)
	o.log.Debug("websocket connected", "user", safe, "conn", id)

	go o.wsPump(conn, sender, func() {
		o.hub.Unregister(safe, id)
		_ = conn.Close()
		o.log.Debug("websocket closed", "user", safe, "conn", id)
	})
}

// wsPump reads (and discards) client frames so pongs and close frames are
// processed, and pings the peer so dead connections are noticed.
func (o *opsServer) wsPump(conn *websocket.Conn, sender *serialSender, done func()) {
	defer done()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sender.mu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
				sender.mu.Unlock()
				if err != nil {
					return
				}
			case <-stop:
				return
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				o.log.Debug("websocket read failed", "err", err)
			}
			return
		}
	}
}

type wsSender struct {
	conn *websocket.Conn
}

func (w *wsSender) Send(ev *v1.Event) error {
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.conn.WriteJSON(ev)
}

func (w *wsSender) Kind() string { return "ws" }
