package channel

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/dlt/decoder"
	"github.com/rs/zerolog/log"
)

// Mux maps channel keys to channels. All channels share one framing and one
// set of decoder options, so a catalogue passed through decoder.WithFrames is
// shared read-only between them.
type Mux struct {
	framing dlt.Framing
	opts    []decoder.Option

	mu    sync.RWMutex
	items map[string]*Channel
}

func NewMux(f dlt.Framing, opts ...decoder.Option) *Mux {
	return &Mux{
		framing: f,
		opts:    opts,
		items:   make(map[string]*Channel),
	}
}

func (m *Mux) Framing() dlt.Framing { return m.framing }

// Open returns the channel for key, creating it on first use. The second
// result reports whether the channel was created by this call.
func (m *Mux) Open(key string) (*Channel, bool) {
	key = strings.TrimSpace(key)
	m.mu.RLock()
	c, ok := m.items[key]
	m.mu.RUnlock()
	if ok {
		return c, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.items[key]; ok {
		return c, false
	}
	c = newChannel(key, decoder.New(m.framing, m.opts...), time.Now())
	m.items[key] = c
	log.Debug().Str("channel", key).Str("framing", m.framing.String()).Msg("channel opened")
	return c, true
}

func (m *Mux) Get(key string) (*Channel, bool) {
	key = strings.TrimSpace(key)
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.items[key]
	return c, ok
}

// Remove drops the channel from the mux without flushing it.
func (m *Mux) Remove(key string) (*Channel, bool) {
	key = strings.TrimSpace(key)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[key]
	if ok {
		delete(m.items, key)
	}
	return c, ok
}

func (m *Mux) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Channels returns the registered channels ordered by key.
func (m *Mux) Channels() []*Channel {
	m.mu.RLock()
	out := make([]*Channel, 0, len(m.items))
	for _, c := range m.items {
		out = append(out, c)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].key < out[j].key
	})
	return out
}

// List returns stats of every channel ordered by key.
func (m *Mux) List() []Stats {
	chans := m.Channels()
	out := make([]Stats, 0, len(chans))
	for _, c := range chans {
		out = append(out, c.Stats())
	}
	return out
}
