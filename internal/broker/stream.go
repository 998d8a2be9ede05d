package broker

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// TickEvent is one price update from the broker stream.
type TickEvent struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price,string"`
	Time   int64   `json:"time"`
}

// PriceStream maintains a websocket subscription to the broker's tick
// stream and fans ticks out to a callback. It reconnects with backoff
// until stopped.
type PriceStream struct {
	mu sync.RWMutex

	url       string
	symbol    string
	conn      *websocket.Conn
	isRunning bool
	stopChan  chan struct{}
	onTick    func(TickEvent)
	lastPrice float64
	logger    zerolog.Logger
}

// NewPriceStream creates a stream for one symbol.
func NewPriceStream(url, symbol string, onTick func(TickEvent)) *PriceStream {
	return &PriceStream{
		url:    url,
		symbol: symbol,
		onTick: onTick,
		logger: zerolog.New(os.Stdout).With().Timestamp().Str("component", "price_stream").Logger(),
	}
}

// Start connects and begins reading in a background goroutine.
func (s *PriceStream) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.stopChan = make(chan struct{})
	s.isRunning = true
	s.mu.Unlock()

	if err := s.connect(); err != nil {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}

	go s.readLoop()
	return nil
}

// Stop closes the stream.
func (s *PriceStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	s.isRunning = false
	close(s.stopChan)
	if s.conn != nil {
		s.conn.Close()
	}
}

// LastPrice returns the most recent tick price, 0 before the first tick.
func (s *PriceStream) LastPrice() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPrice
}

// SnapshotInvalidator drops a cached bar snapshot so the next fetch
// pulls a fresh history.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, symbol, interval string) error
}

// BarWatcher turns the tick stream into new-bar notifications: when a
// tick lands in a new bar bucket it invalidates the cached history, so
// the rolling snapshot always includes the just-closed bar.
type BarWatcher struct {
	cache    SnapshotInvalidator
	symbol   string
	interval string
	barMs    int64

	mu     sync.Mutex
	bucket int64
}

// NewBarWatcher creates a watcher for one symbol and interval. An
// unparseable interval yields a watcher that never fires.
func NewBarWatcher(cache SnapshotInvalidator, symbol, interval string) *BarWatcher {
	return &BarWatcher{
		cache:    cache,
		symbol:   symbol,
		interval: interval,
		barMs:    intervalDuration(interval).Milliseconds(),
	}
}

// OnTick is the PriceStream callback. The first tick only primes the
// bucket; later ticks invalidate once per bar boundary crossed.
func (w *BarWatcher) OnTick(ev TickEvent) {
	if w.barMs <= 0 || w.cache == nil {
		return
	}
	bucket := ev.Time / w.barMs

	w.mu.Lock()
	primed := w.bucket != 0
	crossed := primed && bucket != w.bucket
	w.bucket = bucket
	w.mu.Unlock()

	if !crossed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = w.cache.Invalidate(ctx, w.symbol, w.interval)
}

// intervalDuration parses bar intervals of the "1m"/"4h"/"1d" form.
func intervalDuration(interval string) time.Duration {
	if len(interval) < 2 {
		return 0
	}
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 0
	}
	switch interval[len(interval)-1] {
	case 'm':
		return time.Duration(n) * time.Minute
	case 'h':
		return time.Duration(n) * time.Hour
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	}
	return 0
}

func (s *PriceStream) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url+"/stream/"+s.symbol, nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.logger.Info().Str("symbol", s.symbol).Msg("Price stream connected")
	return nil
}

func (s *PriceStream) readLoop() {
	backoff := time.Second
	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopChan:
				return
			default:
			}

			s.logger.Warn().Err(err).Msg("Price stream read failed, reconnecting")
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			if err := s.connect(); err != nil {
				s.logger.Error().Err(err).Msg("Price stream reconnect failed")
			}
			continue
		}
		backoff = time.Second

		var tick TickEvent
		if err := json.Unmarshal(message, &tick); err != nil {
			s.logger.Warn().Err(err).Msg("Malformed tick message")
			continue
		}

		s.mu.Lock()
		s.lastPrice = tick.Price
		s.mu.Unlock()

		if s.onTick != nil {
			s.onTick(tick)
		}
	}
}
