package ratelimit

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTimeout = 2 * time.Second

	defaultPort    = "6379"
	defaultTLSPort = "6380"
)

// RedisCounter keeps fixed-window counters on a RESP-speaking server. Every
// Consume opens its own connection, runs AUTH and SELECT pipelined with
// INCR, then sets or reads the key's expiry.
type RedisCounter struct {
	addr       string
	useTLS     bool
	serverName string
	username   string
	password   string
	db         string
	timeout    time.Duration
}

// NewRedisCounter parses redis://[user:pass@]host[:port][/db] or the rediss://
// form, which uses TLS.
func NewRedisCounter(rawURL string, timeout time.Duration) (*RedisCounter, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse redis url: %w", err)
	}

	c := &RedisCounter{timeout: timeout}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}

	port := defaultPort
	switch u.Scheme {
	case "redis":
	case "rediss":
		c.useTLS = true
		port = defaultTLSPort
	default:
		return nil, fmt.Errorf("ratelimit: unsupported redis url scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("ratelimit: redis url has no host")
	}
	if p := u.Port(); p != "" {
		port = p
	}
	c.addr = net.JoinHostPort(host, port)
	c.serverName = host

	if u.User != nil {
		c.username = u.User.Username()
		c.password, _ = u.User.Password()
	}

	if db := strings.Trim(u.Path, "/"); db != "" {
		if _, err := strconv.Atoi(db); err != nil {
			return nil, fmt.Errorf("ratelimit: redis database %q is not a number", db)
		}
		c.db = db
	}
	return c, nil
}

func (c *RedisCounter) Addr() string { return c.addr }

func (c *RedisCounter) Consume(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	if limit <= 0 || window <= 0 {
		return Result{}, ErrInvalidArgument
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: dial %s: %w", c.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	r := bufio.NewReader(conn)
	windowMs := strconv.FormatInt(max(window.Milliseconds(), 1), 10)

	replies, err := exchange(conn, r, append(c.setup(), []string{"INCR", key})...)
	if err != nil {
		return Result{}, err
	}
	count, err := replies[len(replies)-1].integer()
	if err != nil {
		return Result{}, err
	}

	ttl := window
	if count == 1 {
		if _, err := exchange(conn, r, []string{"PEXPIRE", key, windowMs}); err != nil {
			return Result{}, err
		}
	} else {
		replies, err := exchange(conn, r, []string{"PTTL", key})
		if err != nil {
			return Result{}, err
		}
		pttl, err := replies[0].integer()
		if err != nil {
			return Result{}, err
		}
		switch {
		case pttl == -1:
			// Counter without expiry would block the key forever.
			if _, err := exchange(conn, r, []string{"PEXPIRE", key, windowMs}); err != nil {
				return Result{}, err
			}
		case pttl > 0:
			ttl = time.Duration(pttl) * time.Millisecond
		default:
			ttl = time.Second
		}
	}

	return Result{
		Allowed:           count <= int64(limit),
		RetryAfterSeconds: retryAfter(ttl),
		Remaining:         max(limit-int(count), 0),
	}, nil
}

func (c *RedisCounter) setup() [][]string {
	var cmds [][]string
	if c.password != "" {
		if c.username != "" {
			cmds = append(cmds, []string{"AUTH", c.username, c.password})
		} else {
			cmds = append(cmds, []string{"AUTH", c.password})
		}
	}
	if c.db != "" {
		cmds = append(cmds, []string{"SELECT", c.db})
	}
	return cmds
}

func (c *RedisCounter) dial(ctx context.Context) (net.Conn, error) {
	if c.useTLS {
		d := &tls.Dialer{Config: &tls.Config{
			ServerName: c.serverName,
			MinVersion: tls.VersionTLS12,
		}}
		return d.DialContext(ctx, "tcp", c.addr)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", c.addr)
}
