// Package display stands in for the excluded display/font-rendering
// collaborator: it advertises a waterfall/S-meter service over mDNS
// and streams rendered lines to connected viewers over TCP.
package display

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/brutella/dnssd"
	"github.com/lestrrat-go/strftime"

	"github.com/VDowbensky/geckokapula/dsp"
	"github.com/VDowbensky/geckokapula/internal/logging"
)

var log = logging.For("display")

/*-------------------------------------------------------------------
 *
 * Name:	Server
 *
 * Purpose:	Accepts TCP connections from waterfall viewers and fans
 *		out waterfall lines and S-meter updates to all of them.
 *		The UI/display task (spec's blocking-on-semaphore role)
 *		maps onto one goroutine per connection, each blocking on
 *		its own outbound channel.
 *
 *---------------------------------------------------------------*/

type Server struct {
	mu       sync.Mutex
	viewers  map[chan []byte]struct{}
	dumpDir  string
	dumpFmt  *strftime.Strftime
}

func NewServer(dumpDir string) (*Server, error) {
	s := &Server{
		viewers: make(map[chan []byte]struct{}),
		dumpDir: dumpDir,
	}
	if dumpDir != "" {
		f, err := strftime.New("waterfall-%Y%m%d-%H%M%S.rgb")
		if err != nil {
			return nil, fmt.Errorf("display: compiling dump filename format: %w", err)
		}
		s.dumpFmt = f
	}
	return s, nil
}

// Listen accepts connections on addr until the listener is closed.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serveConn(conn)
		}
	}()
	return nil
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	ch := make(chan []byte, 8)

	s.mu.Lock()
	s.viewers[ch] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.viewers, ch)
		s.mu.Unlock()
	}()

	for buf := range ch {
		var lenPrefix [4]byte
		binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(buf)))
		if _, err := conn.Write(lenPrefix[:]); err != nil {
			return
		}
		if _, err := conn.Write(buf); err != nil {
			return
		}
	}
}

func (s *Server) broadcast(buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.viewers {
		select {
		case ch <- buf:
		default:
			// Slow viewer: drop this line rather than block the
			// waterfall task on it.
		}
	}
}

// EmitWaterfallLine broadcasts one rendered line and, if a dump
// directory was configured, appends it to a timestamped raw file.
func (s *Server) EmitWaterfallLine(line dsp.WaterfallLine) {
	s.broadcast(append([]byte{'W'}, line...))
	s.dumpLine(line)
}

// EmitSMeter broadcasts an S-meter reading.
func (s *Server) EmitSMeter(v uint32) {
	var buf [5]byte
	buf[0] = 'S'
	binary.BigEndian.PutUint32(buf[1:], v)
	s.broadcast(buf[:])
}

func (s *Server) dumpLine(line dsp.WaterfallLine) {
	if s.dumpFmt == nil {
		return
	}
	name := s.dumpFmt.FormatString(time.Now())
	path := filepath.Join(s.dumpDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warn("opening waterfall dump file failed", "err", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil && err != io.EOF {
		log.Warn("writing waterfall dump failed", "err", err)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	Advertise
 *
 * Purpose:	Publish an mDNS service so viewers on the local network
 *		can discover the running transceiver without a configured
 *		address.
 *
 *---------------------------------------------------------------*/

func Advertise(instanceName string, port int) (func(), error) {
	cfg := dnssd.Config{
		Name: instanceName,
		Type: "_kapula-waterfall._tcp",
		Port: port,
	}
	service, err := dnssd.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("display: creating mDNS service: %w", err)
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("display: creating mDNS responder: %w", err)
	}
	handle, err := responder.Add(service)
	if err != nil {
		return nil, fmt.Errorf("display: advertising mDNS service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = responder.Respond(ctx)
	}()

	return func() {
		responder.Remove(handle)
		cancel()
	}, nil
}
