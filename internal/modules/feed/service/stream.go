package service

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"momentum_bot/pkg/logger"
)

// Run держит соединение до отмены ctx, переподключаясь с экспоненциальной паузой.
func (c *Client) Run(ctx context.Context) {
	backoff := c.cfg.ReconnectMin
	for {
		started := c.now()
		err := c.session(ctx)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("feed: connection lost: %v", err)

		// долгая живая сессия сбрасывает паузу
		if c.now().Sub(started) > c.cfg.ReconnectMax {
			backoff = c.cfg.ReconnectMin
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.cfg.ReconnectMax {
			backoff = c.cfg.ReconnectMax
		}
	}
}

func (c *Client) session(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	c.setConn(conn)
	defer c.setConn(nil)
	logger.Info("feed: connected to %s", c.cfg.URL)

	if syms := c.subscribed(); len(syms) > 0 {
		if err := c.write(subscribeFrame(syms)); err != nil {
			return errors.Wrap(err, "subscribe")
		}
	}

	stop := make(chan struct{})
	defer close(stop)
	go c.pingLoop(ctx, stop)

	// закрываем сокет по отмене, чтобы разблокировать ReadMessage
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "read")
		}
		quotes, err := decodeFrame(msg)
		if err != nil {
			logger.Debug("feed: bad frame: %v", err)
			continue
		}
		c.store(quotes)
	}
}

func (c *Client) pingLoop(ctx context.Context, stop <-chan struct{}) {
	t := time.NewTicker(c.cfg.PingEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-t.C:
			if err := c.write(pingFrame()); err != nil {
				return
			}
		}
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	old := c.conn
	c.conn = conn
	c.connected = conn != nil
	c.connMu.Unlock()

	if old != nil && conn == nil {
		_ = old.Close()
	}
	if c.state != nil {
		c.state.SetFeedConnected(conn != nil)
	}
}

func (c *Client) write(b []byte, err error) error {
	if err != nil {
		return err
	}
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}
