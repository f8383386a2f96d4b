package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xprop"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection connects to display, or $DISPLAY when empty, and loads the
// keyboard mapping.
func NewConnection(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, err
	}

	// Initialize keybind module (required for keysym lookup)
	keybind.Initialize(xu)

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// Conn returns the raw protocol connection.
func (c *Connection) Conn() *xgb.Conn {
	return c.XUtil.Conn()
}

// Atom interns name. xprop caches the result.
func (c *Connection) Atom(name string) (xproto.Atom, error) {
	a, err := xprop.Atm(c.XUtil, name)
	if err != nil {
		return 0, fmt.Errorf("intern %s: %w", name, err)
	}
	return a, nil
}

// AtomName resolves an atom to its name.
func (c *Connection) AtomName(a xproto.Atom) (string, error) {
	return xprop.AtomName(c.XUtil, a)
}

// EventLoop reads events and hands each to handle until the connection
// closes (blocking). Protocol errors are passed to onError.
func (c *Connection) EventLoop(handle func(xgb.Event), onError func(xgb.Error)) {
	for {
		ev, xerr := c.Conn().WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			onError(xerr)
			continue
		}
		handle(ev)
	}
}

// sendRootMessage sends an EWMH/ICCCM client message to the root window.
// We build the message manually because the xgbutil ewmh request helpers
// panic on this library version (uint vs int type assertion).
func (c *Connection) sendRootMessage(win xproto.Window, atomName string, data ...uint32) error {
	atom, err := c.Atom(atomName)
	if err != nil {
		return err
	}
	for len(data) < 5 {
		data = append(data, 0)
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New(data[:5]),
	}
	return xproto.SendEventChecked(
		c.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
