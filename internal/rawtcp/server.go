// Package rawtcp implements the raw text ingestion port: a client pipes
// text into a plain TCP connection (e.g. `ls -la | nc host 9999`) and gets
// back the share and delete URLs once it closes its write side.
//
// Each connection is handled by its own goroutine and goes through
//
//	AWAIT_INPUT → (VALIDATE → STORE → RESPOND) | REJECT → CLOSE
//
// Input ends at EOF, at the content cap (one extra byte is read to detect
// overflow) or when the client stays silent for IdleTimeout. Storage goes
// through the same OutputService.Create used by the HTTP API, so both
// channels share one set of validation rules.
package rawtcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/fetchbin/internal/domain"
	"github.com/tbourn/fetchbin/internal/http/middleware"
	"github.com/tbourn/fetchbin/internal/services"
)

// ErrProtocolMismatch is reported when a client speaks HTTP to the raw port.
var ErrProtocolMismatch = errors.New("http request on raw text port")

// Replies written to clients. Each one is the whole response.
const (
	msgEmpty    = "Error: Content cannot be empty.\n"
	msgTooLarge = "Error: Content exceeds the 1 MiB limit.\n"
	msgInternal = "Error: An internal error occurred, please try again later.\n"
	msgLimited  = "Error: Too many submissions, please try again later.\n"
	msgBusy     = "Error: Server is busy, please try again later.\n"

	msgHTTP = "HTTP/1.1 400 Bad Request\r\n" +
		"Content-Type: text/plain\r\n" +
		"Connection: close\r\n" +
		"\r\n" +
		"Error: This port is for raw text submissions only (e.g., via netcat).\n" +
		"It does not speak HTTP.\n"
)

// httpMethods are the request-line prefixes that identify an HTTP client.
var httpMethods = []string{
	"GET ", "POST ", "PUT ", "DELETE ", "HEAD ",
	"OPTIONS ", "PATCH ", "CONNECT ", "TRACE ",
}

const (
	defaultIdleTimeout = 5 * time.Second
	defaultMaxConns    = 256
	writeTimeout       = 10 * time.Second
	refuseLinger       = 2 * time.Second
	readChunk          = 32 << 10
)

// Creator stores a submission. *services.OutputService satisfies it.
type Creator interface {
	Create(ctx context.Context, p services.CreateParams) (*domain.Output, error)
}

// Limiter decides whether a client may submit. *middleware.RateLimiter
// satisfies it.
type Limiter interface {
	Allow(key string) bool
}

// Server accepts raw text submissions.
type Server struct {
	// Addr is the host:port to listen on (used by ListenAndServe).
	Addr string
	// Outputs stores accepted submissions.
	Outputs Creator
	// PublicURL is the base of the URLs returned to clients.
	PublicURL string
	// IdleTimeout ends input after this much client silence. Default 5s.
	IdleTimeout time.Duration
	// MaxConns caps concurrently handled connections. Default 256.
	MaxConns int
	// Limiter, when set, throttles connections per source IP.
	Limiter Limiter

	nextID atomic.Uint64
	wg     sync.WaitGroup

	mu sync.Mutex
	ln net.Listener
}

// ListenAndServe listens on s.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("rawtcp listen %s: %w", s.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// ListenAddr returns the bound address once serving, or nil.
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections on ln until ctx is cancelled, then closes the
// listener and waits for in-flight connections. In-flight reads are cut
// short and their submissions are dropped unstored. It returns nil on a
// cancellation-driven stop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	maxConns := s.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	slots := make(chan struct{}, maxConns)

	log.Info().Str("addr", ln.Addr().String()).Msg("raw tcp listener started")

	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				// Transient accept failure.
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else if tempDelay *= 2; tempDelay > time.Second {
					tempDelay = time.Second
				}
				time.Sleep(tempDelay)
				continue
			}
			s.wg.Wait()
			return fmt.Errorf("rawtcp accept: %w", err)
		}
		tempDelay = 0

		lg := log.With().
			Uint64("conn_id", s.nextID.Add(1)).
			Str("remote", conn.RemoteAddr().String()).
			Logger()

		if s.Limiter != nil && !s.Limiter.Allow("ip:"+remoteIP(conn)) {
			lg.Warn().Msg("raw tcp connection rate limited")
			s.refuse(ctx, conn, msgLimited, outcomeRateLimited)
			continue
		}

		select {
		case slots <- struct{}{}:
		default:
			lg.Warn().Int("max_conns", maxConns).Msg("raw tcp connection refused: at capacity")
			s.refuse(ctx, conn, msgBusy, outcomeBusy)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-slots }()
			s.handle(ctx, conn, lg)
		}()
	}

	s.wg.Wait()
	log.Info().Msg("raw tcp listener stopped")
	return nil
}

// refuse answers a connection that will not be served: the reply, a
// half-close, then up to refuseLinger of draining so unread input does not
// turn the close into a reset. It runs off the accept loop and is waited
// for on shutdown.
func (s *Server) refuse(ctx context.Context, conn net.Conn, msg, outcome string) {
	connsTotal.WithLabelValues(outcome).Inc()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer conn.Close()

		_ = conn.SetDeadline(time.Now().Add(refuseLinger))
		stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
		defer stop()

		if _, err := io.WriteString(conn, msg); err != nil {
			return
		}
		if hc, ok := conn.(interface{ CloseWrite() error }); ok {
			_ = hc.CloseWrite()
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(conn, domain.MaxContentBytes+1))
	}()
}

func (s *Server) handle(ctx context.Context, conn net.Conn, lg zerolog.Logger) {
	activeConns.Inc()
	defer activeConns.Dec()
	defer conn.Close()

	// Unblock a pending read as soon as the server is shutting down.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	data, overflow, err := s.readInput(ctx, conn)
	if ctx.Err() != nil {
		lg.Info().Int("bytes", len(data)).Msg("raw tcp submission abandoned: shutting down")
		connsTotal.WithLabelValues(outcomeAborted).Inc()
		return
	}
	if err != nil {
		lg.Warn().Err(err).Msg("raw tcp read failed")
		connsTotal.WithLabelValues(outcomeReadError).Inc()
		return
	}

	reply, outcome := s.process(ctx, data, overflow, lg)
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := io.WriteString(conn, reply); err != nil {
		lg.Warn().Err(err).Msg("raw tcp write failed")
	}
	connsTotal.WithLabelValues(outcome).Inc()
}

// readInput reads until EOF, the idle timeout or one byte past the content
// cap. overflow reports that the cap was exceeded.
func (s *Server) readInput(ctx context.Context, conn net.Conn) (data []byte, overflow bool, err error) {
	idle := s.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	buf := make([]byte, readChunk)
	for {
		if err := ctx.Err(); err != nil {
			return data, false, err
		}
		if err := conn.SetReadDeadline(time.Now().Add(idle)); err != nil {
			return data, false, err
		}
		want := min(len(buf), domain.MaxContentBytes+1-len(data))
		n, rerr := conn.Read(buf[:want])
		data = append(data, buf[:n]...)
		if len(data) > domain.MaxContentBytes {
			return data, true, nil
		}
		if rerr == nil {
			continue
		}
		if errors.Is(rerr, io.EOF) {
			return data, false, nil
		}
		var ne net.Error
		if errors.As(rerr, &ne) && ne.Timeout() {
			// Silence ends the submission; whatever arrived is the content.
			return data, false, nil
		}
		return data, false, rerr
	}
}

// process validates and stores one submission and returns the reply.
func (s *Server) process(ctx context.Context, data []byte, overflow bool, lg zerolog.Logger) (reply, outcome string) {
	ctx, span := otel.Tracer("rawtcp/Server").Start(ctx, "Submission",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.Int("content.bytes", len(data)),
			attribute.Bool("overflow", overflow),
		),
	)
	defer func() {
		span.SetAttributes(attribute.String("outcome", outcome))
		if outcome == outcomeError {
			span.SetStatus(codes.Error, "store failed")
		}
		span.End()
	}()

	if overflow {
		lg.Warn().Msg("raw tcp submission rejected: too large")
		return msgTooLarge, outcomeTooLarge
	}

	content := strings.ToValidUTF8(string(data), "\uFFFD")
	if err := checkProtocol(content); err != nil {
		lg.Warn().Err(err).Msg("raw tcp submission rejected")
		return msgHTTP, outcomeHTTP
	}
	// Trailing newlines from the pipe are noise; leading indentation is content.
	content = strings.TrimRight(content, " \t\r\n")

	o, err := s.Outputs.Create(ctx, services.CreateParams{
		Content: content,
		Channel: services.ChannelTCP,
	})
	switch {
	case err == nil:
	case errors.Is(err, services.ErrEmptyContent):
		lg.Info().Msg("raw tcp submission rejected: empty")
		return msgEmpty, outcomeEmpty
	case errors.Is(err, services.ErrContentTooLarge):
		return msgTooLarge, outcomeTooLarge
	default:
		lg.Error().Err(err).Msg("raw tcp submission failed")
		return msgInternal, outcomeError
	}

	lg.Info().Str("public_id", o.PublicID).Int("bytes", len(content)).Msg("raw tcp submission stored")
	return SuccessMessage(s.PublicURL, o), outcomeStored
}

// checkProtocol returns ErrProtocolMismatch when content starts (after
// leading whitespace) with an HTTP request line.
func checkProtocol(content string) error {
	head := strings.TrimLeft(content, " \t\r\n")
	for _, m := range httpMethods {
		if strings.HasPrefix(head, m) {
			return fmt.Errorf("%w: %q", ErrProtocolMismatch, strings.TrimSpace(m))
		}
	}
	return nil
}

// SuccessMessage is the reply sent after a submission is stored.
func SuccessMessage(base string, o *domain.Output) string {
	return "Success! Your output has been shared.\n" +
		"URL: " + services.ViewURL(base, o.PublicID) + "\n" +
		"Delete URL: " + services.DeleteURL(base, o.DeleteToken) + "\n"
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	if ip, ok := middleware.NormalizeIP(host); ok {
		return ip
	}
	return host
}
