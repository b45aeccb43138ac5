package catalogue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/dltctl/internal/dlt"
)

var ErrFrameNotFound = errors.New("catalogue: frame not found")

// PDU describes one signal of a frame. A PDU with a description is rendered
// as that text and consumes no payload bytes.
type PDU struct {
	Type        string
	Length      int
	Description string
}

// Frame is the layout of a non-verbose message. AppID, CtxID and EcuID may be
// empty, in which case the frame is registered without that scope. The
// application/context scope needs both ids; a frame with only one of them
// goes to the id map alone.
type Frame struct {
	ID    uint32
	AppID string
	CtxID string
	EcuID string
	Type  dlt.MessageType
	PDUs  []PDU
}

func (f Frame) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "EcuID=%s AppId=%s CtxId=%s %d (%s)", f.EcuID, f.AppID, f.CtxID, f.ID, f.Type)
	for _, p := range f.PDUs {
		sb.WriteByte(' ')
		if p.Description != "" {
			sb.WriteString(p.Description)
			continue
		}
		fmt.Fprintf(&sb, "%s(%d)", p.Type, p.Length)
	}
	return sb.String()
}

type appCtx struct {
	app string
	ctx string
}

// layer maps message ids to frames. byID keeps the first frame seen for an id
// regardless of its application and context.
type layer struct {
	byID     map[uint32]Frame
	byAppCtx map[appCtx]map[uint32]Frame
}

func newLayer() *layer {
	return &layer{
		byID:     make(map[uint32]Frame),
		byAppCtx: make(map[appCtx]map[uint32]Frame),
	}
}

func (l *layer) add(f Frame) bool {
	_, dup := l.byID[f.ID]
	if !dup {
		l.byID[f.ID] = f
	}
	if f.AppID == "" || f.CtxID == "" {
		return !dup
	}

	key := appCtx{app: f.AppID, ctx: f.CtxID}
	sub, ok := l.byAppCtx[key]
	if !ok {
		sub = make(map[uint32]Frame)
		l.byAppCtx[key] = sub
	}
	if _, ok := sub[f.ID]; ok {
		return false
	}
	sub[f.ID] = f
	return true
}

func (l *layer) lookup(id uint32, app, ctx string) (Frame, bool) {
	if app != "" && ctx != "" {
		if sub, ok := l.byAppCtx[appCtx{app: app, ctx: ctx}]; ok {
			if f, ok := sub[id]; ok {
				return f, true
			}
		}
	}
	f, ok := l.byID[id]
	return f, ok
}

func (l *layer) len() int {
	return len(l.byID)
}

// Catalogue is a layered frame map. Frames registered with an ECU id are also
// kept in an overlay for that ECU, which is searched first.
type Catalogue struct {
	global *layer
	ecus   map[string]*layer
	frames int
}

func New() *Catalogue {
	return &Catalogue{
		global: newLayer(),
		ecus:   make(map[string]*layer),
	}
}

// Add registers f. The first frame for a key wins; Add reports false without
// changing anything visible for the key when the exact (id, app, ctx, ecu)
// combination is already known.
func (c *Catalogue) Add(f Frame) bool {
	added := c.global.add(f)
	if f.EcuID != "" {
		l, ok := c.ecus[f.EcuID]
		if !ok {
			l = newLayer()
			c.ecus[f.EcuID] = l
		}
		added = l.add(f)
	}
	if added {
		c.frames++
	}
	return added
}

// Lookup finds the frame for a message id. Empty identifiers are treated as
// absent. Search order: ECU overlay, application/context sub-map, then the
// first frame ever registered for the id.
func (c *Catalogue) Lookup(id uint32, app, ctx, ecu string) (Frame, bool) {
	if ecu != "" {
		if l, ok := c.ecus[ecu]; ok {
			if f, ok := l.lookup(id, app, ctx); ok {
				return f, true
			}
		}
	}
	return c.global.lookup(id, app, ctx)
}

// Get is Lookup returning ErrFrameNotFound on a miss.
func (c *Catalogue) Get(id uint32, app, ctx, ecu string) (Frame, error) {
	f, ok := c.Lookup(id, app, ctx, ecu)
	if !ok {
		return Frame{}, fmt.Errorf("%w: id=%d app=%q ctx=%q ecu=%q", ErrFrameNotFound, id, app, ctx, ecu)
	}
	return f, nil
}

// Len returns the number of successful registrations.
func (c *Catalogue) Len() int {
	return c.frames
}

// IDs returns the number of distinct message ids.
func (c *Catalogue) IDs() int {
	return c.global.len()
}
