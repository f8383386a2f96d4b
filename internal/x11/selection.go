package x11

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/windowkit/internal/mime"
	"github.com/1broseidon/windowkit/internal/platform"
	"github.com/1broseidon/windowkit/internal/selection"
)

var (
	// ErrConversionRefused is returned when the owner cannot convert to the
	// requested type.
	ErrConversionRefused = errors.New("x11: selection conversion refused")
	// ErrIncrUnsupported is returned for transfers the owner sends in chunks.
	ErrIncrUnsupported = errors.New("x11: incremental selection transfer not supported")
	errClosed          = errors.New("x11: backend closed")
)

const (
	readTimeout = 5 * time.Second
	// GetProperty length is in 32-bit units.
	maxPropertyWords = 1 << 24
	propertyName     = "WINDOWKIT_SELECTION"
)

// Targets that describe the transfer rather than content.
var metaTargets = map[string]bool{
	"TARGETS":      true,
	"MULTIPLE":     true,
	"TIMESTAMP":    true,
	"SAVE_TARGETS": true,
	"DELETE":       true,
}

type atoms struct {
	clipboard   xproto.Atom
	primary     xproto.Atom
	targets     xproto.Atom
	incr        xproto.Atom
	property    xproto.Atom
	manager     xproto.Atom
	saveTargets xproto.Atom
}

// handover holds clipboard content while a clipboard manager copies it.
type handover struct {
	types []string
	data  map[string][]byte
	timer *time.Timer
}

// selections implements both X selections on a hidden window.
type selections struct {
	conn   *Connection
	logger *slog.Logger
	post   func(func()) bool
	win    *xwindow.Window
	atoms  atoms
	xfixes bool

	// Loop only.
	owned    map[selection.Kind][]string
	handover *handover

	// readMu serializes conversions on the shared property.
	readMu sync.Mutex
	notify chan xproto.SelectionNotifyEvent

	// mu guards names, the atom name each canonical type was offered
	// under by the current foreign owner.
	mu    sync.Mutex
	names map[string]string

	closed    chan struct{}
	closeOnce sync.Once
}

func newSelections(conn *Connection, logger *slog.Logger, post func(func()) bool) (*selections, error) {
	win, err := xwindow.Generate(conn.XUtil)
	if err != nil {
		return nil, fmt.Errorf("generate selection window: %w", err)
	}
	if err := win.CreateChecked(conn.Root, -10, -10, 1, 1, xproto.CwEventMask, xproto.EventMaskPropertyChange); err != nil {
		return nil, fmt.Errorf("create selection window: %w", err)
	}

	s := &selections{
		conn:   conn,
		logger: logger,
		post:   post,
		win:    win,
		owned:  make(map[selection.Kind][]string),
		notify: make(chan xproto.SelectionNotifyEvent, 1),
		names:  make(map[string]string),
		closed: make(chan struct{}),
	}
	for _, a := range []struct {
		dst  *xproto.Atom
		name string
	}{
		{&s.atoms.clipboard, "CLIPBOARD"},
		{&s.atoms.primary, "PRIMARY"},
		{&s.atoms.targets, "TARGETS"},
		{&s.atoms.incr, "INCR"},
		{&s.atoms.property, propertyName},
		{&s.atoms.manager, "CLIPBOARD_MANAGER"},
		{&s.atoms.saveTargets, "SAVE_TARGETS"},
	} {
		atom, err := conn.Atom(a.name)
		if err != nil {
			win.Destroy()
			return nil, err
		}
		*a.dst = atom
	}

	if err := s.watchOwners(); err != nil {
		logger.Warn("xfixes unavailable, foreign selection owners will not be tracked", "error", err)
	} else {
		s.xfixes = true
	}
	return s, nil
}

// watchOwners subscribes to owner changes of both selections.
func (s *selections) watchOwners() error {
	c := s.conn.Conn()
	if err := xfixes.Init(c); err != nil {
		return err
	}
	if _, err := xfixes.QueryVersion(c, 5, 0).Reply(); err != nil {
		return err
	}
	mask := uint32(xfixes.SelectionEventMaskSetSelectionOwner |
		xfixes.SelectionEventMaskSelectionWindowDestroy |
		xfixes.SelectionEventMaskSelectionClientClose)
	for _, atom := range []xproto.Atom{s.atoms.clipboard, s.atoms.primary} {
		if err := xfixes.SelectSelectionInputChecked(c, s.win.Id, atom, mask).Check(); err != nil {
			return err
		}
	}
	return nil
}

func (s *selections) atom(kind selection.Kind) xproto.Atom {
	if kind == selection.Primary {
		return s.atoms.primary
	}
	return s.atoms.clipboard
}

func (s *selections) kindOf(atom xproto.Atom) (selection.Kind, bool) {
	switch atom {
	case s.atoms.clipboard:
		return selection.Clipboard, true
	case s.atoms.primary:
		return selection.Primary, true
	}
	return selection.Clipboard, false
}

// own takes ownership of kind.
func (s *selections) own(kind selection.Kind, types []string) error {
	if kind == selection.Clipboard && s.handover != nil {
		s.handover.timer.Stop()
		s.handover = nil
	}
	sel := s.atom(kind)
	c := s.conn.Conn()
	if err := xproto.SetSelectionOwnerChecked(c, s.win.Id, sel, xproto.TimeCurrentTime).Check(); err != nil {
		return fmt.Errorf("set %s owner: %w", kind, err)
	}
	reply, err := xproto.GetSelectionOwner(c, sel).Reply()
	if err != nil {
		return fmt.Errorf("get %s owner: %w", kind, err)
	}
	if reply.Owner != s.win.Id {
		return fmt.Errorf("%s ownership refused", kind)
	}
	s.owned[kind] = mime.Copy(types)
	return nil
}

// clear gives up ownership. A running clipboard manager gets a snapshot of
// the content and up to timeout to copy it.
func (s *selections) clear(kind selection.Kind, timeout time.Duration, sink platform.Sink) error {
	types, ok := s.owned[kind]
	if !ok {
		return nil
	}
	if kind != selection.Clipboard || timeout <= 0 || !s.managerRunning() {
		return s.release(kind)
	}

	h := &handover{types: types, data: make(map[string][]byte, len(types))}
	for _, t := range types {
		data, err := sink.SelectionData(kind, t)
		if err != nil {
			s.logger.Debug("handover snapshot skipped type", "mime", t, "error", err)
			continue
		}
		h.data[t] = data
	}
	err := xproto.ConvertSelectionChecked(s.conn.Conn(), s.win.Id, s.atoms.manager,
		s.atoms.saveTargets, s.atoms.property, xproto.TimeCurrentTime).Check()
	if err != nil {
		s.logger.Warn("clipboard manager handover failed", "error", err)
		return s.release(kind)
	}
	s.handover = h
	h.timer = time.AfterFunc(timeout, func() {
		s.post(func() { s.finishHandover(h) })
	})
	return nil
}

func (s *selections) managerRunning() bool {
	reply, err := xproto.GetSelectionOwner(s.conn.Conn(), s.atoms.manager).Reply()
	return err == nil && reply.Owner != xproto.WindowNone
}

func (s *selections) release(kind selection.Kind) error {
	delete(s.owned, kind)
	err := xproto.SetSelectionOwnerChecked(s.conn.Conn(), xproto.WindowNone, s.atom(kind), xproto.TimeCurrentTime).Check()
	if err != nil {
		return fmt.Errorf("release %s: %w", kind, err)
	}
	return nil
}

// handoverDone is the manager's reply to SAVE_TARGETS.
func (s *selections) handoverDone(e xproto.SelectionNotifyEvent) {
	if s.handover == nil || e.Target != s.atoms.saveTargets {
		return
	}
	s.finishHandover(s.handover)
}

func (s *selections) finishHandover(h *handover) {
	if s.handover != h {
		return
	}
	h.timer.Stop()
	s.handover = nil
	if err := s.release(selection.Clipboard); err != nil {
		s.logger.Warn("release clipboard after handover failed", "error", err)
	}
}

// content returns the bytes for an owned type, from the handover snapshot
// while one is running.
func (s *selections) content(kind selection.Kind, t string, sink platform.Sink) ([]byte, error) {
	if kind == selection.Clipboard && s.handover != nil {
		data, ok := s.handover.data[t]
		if !ok {
			return nil, selection.ErrNotOwned
		}
		return data, nil
	}
	return sink.SelectionData(kind, t)
}

// serve answers a peer's SelectionRequest.
func (s *selections) serve(e xproto.SelectionRequestEvent, sink platform.Sink) {
	reply := xproto.SelectionNotifyEvent{
		Time:      e.Time,
		Requestor: e.Requestor,
		Selection: e.Selection,
		Target:    e.Target,
		Property:  xproto.AtomNone,
	}
	property := e.Property
	if property == xproto.AtomNone {
		// Obsolete clients.
		property = e.Target
	}

	if kind, ok := s.kindOf(e.Selection); ok {
		if types, owned := s.owned[kind]; owned {
			if err := s.convertFor(e.Requestor, property, e.Target, kind, types, sink); err != nil {
				s.logger.Debug("selection request refused", "selection", kind, "error", err)
			} else {
				reply.Property = property
			}
		}
	}

	err := xproto.SendEventChecked(s.conn.Conn(), false, e.Requestor, xproto.EventMaskNoEvent, string(reply.Bytes())).Check()
	if err != nil {
		s.logger.Debug("selection notify failed", "requestor", e.Requestor, "error", err)
	}
}

func (s *selections) convertFor(requestor xproto.Window, property, target xproto.Atom, kind selection.Kind, types []string, sink platform.Sink) error {
	c := s.conn.Conn()
	if target == s.atoms.targets {
		names := advertisedTargets(types)
		list := make([]xproto.Atom, 0, len(names))
		for _, name := range names {
			a, err := s.conn.Atom(name)
			if err != nil {
				return err
			}
			list = append(list, a)
		}
		return xproto.ChangePropertyChecked(c, xproto.PropModeReplace, requestor, property,
			xproto.AtomAtom, 32, uint32(len(list)), encodeAtoms(list)).Check()
	}

	name, err := s.conn.AtomName(target)
	if err != nil {
		return err
	}
	if metaTargets[name] {
		return fmt.Errorf("target %s: %w", name, platform.ErrUnsupported)
	}
	t, ok := matchTarget(types, name)
	if !ok {
		return fmt.Errorf("target %s not offered", name)
	}
	data, err := s.content(kind, t, sink)
	if err != nil {
		return err
	}
	return xproto.ChangePropertyChecked(c, xproto.PropModeReplace, requestor, property,
		target, 8, uint32(len(data)), data).Check()
}

// cleared is another client taking a selection we owned.
func (s *selections) cleared(e xproto.SelectionClearEvent, sink platform.Sink) {
	kind, ok := s.kindOf(e.Selection)
	if !ok || e.Owner != s.win.Id {
		return
	}
	if kind == selection.Clipboard && s.handover != nil {
		s.handover.timer.Stop()
		s.handover = nil
	}
	delete(s.owned, kind)
	if !s.xfixes {
		s.refresh(kind, sink)
	}
}

// ownerChanged handles XFIXES owner notifications.
func (s *selections) ownerChanged(e xfixes.SelectionNotifyEvent, sink platform.Sink) {
	kind, ok := s.kindOf(e.Selection)
	if !ok || e.Owner == s.win.Id {
		return
	}
	if e.Owner == xproto.WindowNone {
		if _, owned := s.owned[kind]; !owned {
			sink.SelectionOffer(kind, nil)
		}
		return
	}
	s.refresh(kind, sink)
}

// refresh fetches the foreign owner's types off the loop and reports them.
func (s *selections) refresh(kind selection.Kind, sink platform.Sink) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		types, err := s.targets(ctx, kind)
		if err != nil {
			s.logger.Debug("fetch selection targets failed", "selection", kind, "error", err)
			types = []string{}
		}
		s.post(func() {
			if _, owned := s.owned[kind]; owned {
				return
			}
			sink.SelectionOffer(kind, types)
		})
	}()
}

// targets asks the owner for TARGETS and returns the content types as
// canonical mime types.
func (s *selections) targets(ctx context.Context, kind selection.Kind) ([]string, error) {
	data, err := s.convert(ctx, kind, s.atoms.targets)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, a := range decodeAtoms(data) {
		name, err := s.conn.AtomName(a)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	types, byType := offeredTypes(names)

	s.mu.Lock()
	s.names = byType
	s.mu.Unlock()
	return types, nil
}

// read fetches content of mimeType from the foreign owner. It blocks and
// runs on bridge workers.
func (s *selections) read(ctx context.Context, kind selection.Kind, mimeType string) ([]byte, error) {
	s.mu.Lock()
	name, ok := s.names[mime.Canonical(mimeType)]
	s.mu.Unlock()
	if !ok {
		name = mimeType
	}
	target, err := s.conn.Atom(name)
	if err != nil {
		return nil, err
	}
	return s.convert(ctx, kind, target)
}

// convert runs one ConvertSelection round trip on the hidden window.
func (s *selections) convert(ctx context.Context, kind selection.Kind, target xproto.Atom) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	s.readMu.Lock()
	defer s.readMu.Unlock()

	// Drop a reply left over from a conversion that timed out.
	select {
	case <-s.notify:
	default:
	}

	c := s.conn.Conn()
	sel := s.atom(kind)
	err := xproto.ConvertSelectionChecked(c, s.win.Id, sel, target, s.atoms.property, xproto.TimeCurrentTime).Check()
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", kind, err)
	}

	for {
		select {
		case ev := <-s.notify:
			if ev.Selection != sel || ev.Target != target {
				continue
			}
			if ev.Property == xproto.AtomNone {
				return nil, ErrConversionRefused
			}
			return s.takeProperty()
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.closed:
			return nil, errClosed
		}
	}
}

func (s *selections) takeProperty() ([]byte, error) {
	reply, err := xproto.GetProperty(s.conn.Conn(), true, s.win.Id, s.atoms.property,
		xproto.GetPropertyTypeAny, 0, maxPropertyWords).Reply()
	if err != nil {
		return nil, fmt.Errorf("read selection property: %w", err)
	}
	if reply.Type == s.atoms.incr {
		return nil, ErrIncrUnsupported
	}
	return reply.Value, nil
}

// notified runs on the reader goroutine and claims replies to our own
// conversions. The manager's SAVE_TARGETS reply goes to the loop.
func (s *selections) notified(ev xproto.SelectionNotifyEvent) bool {
	if ev.Requestor != s.win.Id || ev.Target == s.atoms.saveTargets {
		return false
	}
	select {
	case s.notify <- ev:
	default:
		s.logger.Debug("dropped unexpected selection notify", "target", ev.Target)
	}
	return true
}

func (s *selections) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.handover != nil {
			s.handover.timer.Stop()
			s.handover = nil
		}
		s.win.Destroy()
	})
}

// advertisedTargets lists the atom names we answer TARGETS with.
func advertisedTargets(types []string) []string {
	names := []string{"TARGETS"}
	utf8 := false
	for _, t := range types {
		names = append(names, t)
		if mime.Equal(t, mime.TextPlainUTF8) {
			utf8 = true
		}
	}
	if utf8 {
		names = append(names, "UTF8_STRING")
	}
	return names
}

// matchTarget finds the offered type a requested target name refers to.
func matchTarget(types []string, name string) (string, bool) {
	for _, t := range types {
		if mime.Equal(t, name) {
			return t, true
		}
	}
	return "", false
}

// offeredTypes turns a foreign owner's target names into canonical mime
// types in offered order, and remembers which name to request each by.
// A real mime name wins over an X alias of the same type.
func offeredTypes(names []string) ([]string, map[string]string) {
	var types []string
	byType := make(map[string]string)
	for _, name := range names {
		if metaTargets[name] {
			continue
		}
		canon := mime.Canonical(name)
		if mime.Validate(canon) != nil {
			continue
		}
		prev, seen := byType[canon]
		if !seen {
			types = append(types, canon)
			byType[canon] = name
			continue
		}
		if name == canon && prev != canon {
			byType[canon] = name
		}
	}
	return types, byType
}

func encodeAtoms(list []xproto.Atom) []byte {
	buf := make([]byte, 4*len(list))
	for i, a := range list {
		xgb.Put32(buf[4*i:], uint32(a))
	}
	return buf
}

func decodeAtoms(data []byte) []xproto.Atom {
	list := make([]xproto.Atom, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		list = append(list, xproto.Atom(xgb.Get32(data[i:])))
	}
	return list
}

func (b *Backend) SelectionAvailable(selection.Kind) bool { return true }

func (b *Backend) OwnSelection(kind selection.Kind, mimeTypes []string) error {
	return b.sel.own(kind, mimeTypes)
}

func (b *Backend) ClearSelection(kind selection.Kind, handover time.Duration) error {
	return b.sel.clear(kind, handover, b.sink)
}

func (b *Backend) ReadSelection(ctx context.Context, kind selection.Kind, mimeType string) ([]byte, error) {
	return b.sel.read(ctx, kind, mimeType)
}
