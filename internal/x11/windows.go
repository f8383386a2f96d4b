package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/window"
)

const (
	netWMStateRemove = 0
	netWMStateAdd    = 1

	// ICCCM 4.1.4
	iconicState = 3

	// source indication for _NET_WM_STATE: normal application
	sourceApplication = 1
)

const windowEventMask = xproto.EventMaskKeyPress |
	xproto.EventMaskKeyRelease |
	xproto.EventMaskButtonPress |
	xproto.EventMaskButtonRelease |
	xproto.EventMaskPointerMotion |
	xproto.EventMaskEnterWindow |
	xproto.EventMaskLeaveWindow |
	xproto.EventMaskExposure |
	xproto.EventMaskStructureNotify |
	xproto.EventMaskFocusChange |
	xproto.EventMaskPropertyChange

// nativeWindow is the backend's record of a toolkit window.
type nativeWindow struct {
	id     ids.WindowID
	win    *xwindow.Window
	size   geom.Size
	active bool
	mapped bool
	// textInput is set while the host has text input enabled.
	textInput bool
}

// createWindow creates and maps a top-level window.
func (c *Connection) createWindow(id ids.WindowID, params window.Params) (*nativeWindow, error) {
	size := params.Size
	if size.Empty() {
		size = geom.Size{Width: 640, Height: 480}
	}

	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("generate window id: %w", err)
	}
	err = win.CreateChecked(c.Root, 0, 0, size.Width, size.Height,
		xproto.CwBackPixel|xproto.CwEventMask,
		0xffffff, windowEventMask)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	if err := icccm.WmProtocolsSet(c.XUtil, win.Id, []string{"WM_DELETE_WINDOW"}); err != nil {
		win.Destroy()
		return nil, fmt.Errorf("set WM_PROTOCOLS: %w", err)
	}
	c.setTitle(win.Id, params.Title)
	if params.AppID != "" {
		_ = icccm.WmClassSet(c.XUtil, win.Id, &icccm.WmClass{Instance: params.AppID, Class: params.AppID})
	}
	if !params.MinSize.Empty() {
		_ = icccm.WmNormalHintsSet(c.XUtil, win.Id, &icccm.NormalHints{
			Flags:     icccm.SizeHintPMinSize,
			MinWidth:  uint(params.MinSize.Width),
			MinHeight: uint(params.MinSize.Height),
		})
	}
	win.Map()

	return &nativeWindow{id: id, win: win, size: size}, nil
}

func (c *Connection) setTitle(win xproto.Window, title string) {
	// Both the legacy and the EWMH name, for window managers that only
	// read one of them.
	_ = icccm.WmNameSet(c.XUtil, win, title)
	_ = ewmh.WmNameSet(c.XUtil, win, title)
}

// setWMState adds or removes _NET_WM_STATE atoms (at most two per message).
func (c *Connection) setWMState(win xproto.Window, on bool, states ...string) error {
	action := uint32(netWMStateRemove)
	if on {
		action = netWMStateAdd
	}
	data := []uint32{action, 0, 0, sourceApplication}
	for i, name := range states {
		if i > 1 {
			break
		}
		a, err := c.Atom(name)
		if err != nil {
			return err
		}
		data[1+i] = uint32(a)
	}
	return c.sendRootMessage(win, "_NET_WM_STATE", data...)
}

func (c *Connection) setMaximized(win xproto.Window, on bool) error {
	return c.setWMState(win, on, "_NET_WM_STATE_MAXIMIZED_VERT", "_NET_WM_STATE_MAXIMIZED_HORZ")
}

func (c *Connection) setFullscreen(win xproto.Window, on bool) error {
	return c.setWMState(win, on, "_NET_WM_STATE_FULLSCREEN")
}

func (c *Connection) minimize(win xproto.Window) error {
	return c.sendRootMessage(win, "WM_CHANGE_STATE", iconicState)
}

// wmState reads the window manager's view of the window.
func (c *Connection) wmState(win xproto.Window) (maximized, fullscreen bool) {
	states, err := ewmh.WmStateGet(c.XUtil, win)
	if err != nil {
		return false, false
	}
	return parseWMState(states)
}

func parseWMState(states []string) (maximized, fullscreen bool) {
	hasMaxH := false
	hasMaxV := false
	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_MAXIMIZED_HORZ":
			hasMaxH = true
		case "_NET_WM_STATE_MAXIMIZED_VERT":
			hasMaxV = true
		case "_NET_WM_STATE_FULLSCREEN":
			fullscreen = true
		}
	}
	return hasMaxH && hasMaxV, fullscreen
}

// capabilities reads _NET_WM_ALLOWED_ACTIONS. Window managers that do not
// set it get every capability.
func (c *Connection) capabilities(win xproto.Window) window.Capabilities {
	actions, err := ewmh.WmAllowedActionsGet(c.XUtil, win)
	if err != nil || len(actions) == 0 {
		return window.AllCapabilities
	}
	return parseAllowedActions(actions)
}

func parseAllowedActions(actions []string) window.Capabilities {
	caps := window.Capabilities{WindowMenu: true}
	maxH, maxV := false, false
	for _, a := range actions {
		switch a {
		case "_NET_WM_ACTION_MAXIMIZE_HORZ":
			maxH = true
		case "_NET_WM_ACTION_MAXIMIZE_VERT":
			maxV = true
		case "_NET_WM_ACTION_FULLSCREEN":
			caps.Fullscreen = true
		case "_NET_WM_ACTION_MINIMIZE":
			caps.Minimize = true
		}
	}
	caps.Maximize = maxH && maxV
	return caps
}
