package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/semaphore"

	"github.com/haven-chat/warden/automod/event"
)

// RunConsumer subscribes to the platform gateway and feeds events through the
// engine. Worker concurrency is bounded by a semaphore: when all workers are
// busy, reads from the socket stall and backpressure propagates upstream.
func (s *Server) RunConsumer(ctx context.Context) error {

	cur, err := s.ReadLastCursor(ctx)
	if err != nil {
		return err
	}

	dialer := websocket.DefaultDialer
	u, err := url.Parse(s.gatewayHost)
	if err != nil {
		return fmt.Errorf("invalid gateway URI: %w", err)
	}
	u.Path = "/gateway/subscribe"
	if cur != 0 {
		u.RawQuery = fmt.Sprintf("cursor=%d", cur)
	}
	s.logger.Info("subscribing to gateway event stream", "upstream", s.gatewayHost, "cursor", cur)
	con, _, err := dialer.Dial(u.String(), http.Header{
		"User-Agent": []string{fmt.Sprintf("warden/%s", versioninfo.Short())},
	})
	if err != nil {
		return fmt.Errorf("subscribing to gateway failed (dialing): %w", err)
	}
	defer con.Close()

	go func() {
		<-ctx.Done()
		con.Close()
	}()

	sem := semaphore.NewWeighted(s.workers)
	var wg sync.WaitGroup
	for {
		var raw event.RawGatewayEvent
		if err := con.ReadJSON(&raw); err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				s.logger.Info("gateway consumer shutting down")
				return nil
			}
			return fmt.Errorf("reading from gateway stream: %w", err)
		}
		eventsReceived.Inc()
		atomic.StoreInt64(&s.lastSeq, raw.Seq)
		currentSeq.Set(float64(raw.Seq))

		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil
		}
		wg.Add(1)
		go func(raw event.RawGatewayEvent) {
			defer wg.Done()
			defer sem.Release(1)
			s.handleRawEvent(ctx, &raw)
		}(raw)
	}
}

// handleRawEvent normalizes and processes one gateway frame. Never returns an
// error: malformed events are dropped, processing failures are logged and
// counted; the stream itself must keep moving.
func (s *Server) handleRawEvent(ctx context.Context, raw *event.RawGatewayEvent) {
	ctx, cancel := context.WithTimeout(ctx, s.eventTimeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "handleRawEvent")
	defer span.End()

	evt, err := event.Normalize(raw)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrUnhandledEventType):
			eventsSkipped.Inc()
		case errors.Is(err, event.ErrMalformedEvent):
			eventsMalformed.Inc()
			s.logger.Warn("dropping malformed gateway event", "seq", raw.Seq, "type", raw.Type, "err", err)
		default:
			eventsFailed.Inc()
			s.logger.Error("normalizing gateway event failed", "seq", raw.Seq, "err", err)
		}
		return
	}

	if err := s.processWithRetry(ctx, evt); err != nil {
		eventsFailed.Inc()
		s.logger.Error("engine failed to process event", "eventID", evt.EventID, "kind", evt.Kind, "err", err)
		return
	}
	eventsProcessed.Inc()
}

// processWithRetry re-runs the engine on transient failures (storage outage,
// a dependency mid-restart) before giving the event up. The engine marks an
// event seen only after a fully successful pass, so a retried event redoes
// no enforcement.
func (s *Server) processWithRetry(ctx context.Context, evt *event.InspectionEvent) error {
	ceiling := s.retryCeiling
	if ceiling < 1 {
		ceiling = 1
	}
	delay := s.retryBase
	var err error
	for attempt := 0; attempt < ceiling; attempt++ {
		if attempt > 0 {
			eventsRetried.Inc()
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return err
			}
			delay *= 4
		}
		switch evt.Kind {
		case event.KindMemberJoin:
			err = s.engine.ProcessJoin(ctx, *evt)
		default:
			err = s.engine.ProcessMessage(ctx, *evt)
		}
		if err == nil {
			return nil
		}
	}
	return err
}
