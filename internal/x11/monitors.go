package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/windowkit/internal/event"
	"github.com/1broseidon/windowkit/internal/geom"
)

// initRandR enables screen-change notifications on the root window.
func (c *Connection) initRandR() error {
	if err := randr.Init(c.Conn()); err != nil {
		return fmt.Errorf("randr init failed: %w", err)
	}
	return randr.SelectInputChecked(c.Conn(), c.Root, randr.NotifyMaskScreenChange).Check()
}

// Displays retrieves all active outputs using XRandR. The usable area
// excludes dock struts.
func (c *Connection) Displays(scale float64) ([]event.Display, error) {
	resources, err := randr.GetScreenResources(c.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var displays []event.Display
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		outputInfo, err := randr.GetOutputInfo(c.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			name = string(outputInfo.Name)
		}

		bounds := geom.Rect{
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		}
		displays = append(displays, event.Display{
			ID:     i,
			Name:   name,
			Bounds: bounds,
			Usable: bounds,
			Scale:  scale,
		})
	}

	c.applyDockStruts(displays)
	return displays, nil
}

type dockStruts struct {
	left   int
	right  int
	top    int
	bottom int
}

// applyDockStruts shrinks each display's usable area by the struts of
// dock windows that overlap it.
func (c *Connection) applyDockStruts(displays []event.Display) {
	rootGeom, err := xproto.GetGeometry(c.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return
	}
	rootWidth := int(rootGeom.Width)
	rootHeight := int(rootGeom.Height)

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return
	}

	var docks []*ewmh.WmStrutPartial
	for _, windowID := range clients {
		types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
		if err != nil || !hasType(types, "_NET_WM_WINDOW_TYPE_DOCK") {
			continue
		}
		if sp, err := ewmh.WmStrutPartialGet(c.XUtil, windowID); err == nil {
			docks = append(docks, sp)
			continue
		}
		// Some docks only set _NET_WM_STRUT (no partial ranges).
		if s, err := ewmh.WmStrutGet(c.XUtil, windowID); err == nil {
			docks = append(docks, fullStrut(s, rootWidth, rootHeight))
		}
	}

	for i := range displays {
		var struts dockStruts
		for _, sp := range docks {
			updateStruts(displays[i].Bounds, rootWidth, rootHeight, sp, &struts)
		}
		displays[i].Usable = shrink(displays[i].Bounds, struts)
	}
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

func fullStrut(s *ewmh.WmStrut, rootWidth, rootHeight int) *ewmh.WmStrutPartial {
	return &ewmh.WmStrutPartial{
		Left:         s.Left,
		Right:        s.Right,
		Top:          s.Top,
		Bottom:       s.Bottom,
		LeftStartY:   0,
		LeftEndY:     uint(rootHeight - 1),
		RightStartY:  0,
		RightEndY:    uint(rootHeight - 1),
		TopStartX:    0,
		TopEndX:      uint(rootWidth - 1),
		BottomStartX: 0,
		BottomEndX:   uint(rootWidth - 1),
	}
}

func shrink(r geom.Rect, s dockStruts) geom.Rect {
	r.X += s.left
	r.Y += s.top
	r.Width -= s.left + s.right
	r.Height -= s.top + s.bottom
	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	return r
}

func updateStruts(mon geom.Rect, rootWidth, rootHeight int, sp *ewmh.WmStrutPartial, acc *dockStruts) {
	// Top strut: y=[0,Top), x=[TopStartX,TopEndX]
	if sp.Top > 0 {
		area := geom.Rect{X: int(sp.TopStartX), Y: 0, Width: int(sp.TopEndX) + 1 - int(sp.TopStartX), Height: int(sp.Top)}
		acc.top = max(acc.top, intersect(mon, area).Height)
	}

	// Bottom strut: y=[rootHeight-Bottom,rootHeight)
	if sp.Bottom > 0 {
		area := geom.Rect{X: int(sp.BottomStartX), Y: rootHeight - int(sp.Bottom), Width: int(sp.BottomEndX) + 1 - int(sp.BottomStartX), Height: int(sp.Bottom)}
		acc.bottom = max(acc.bottom, intersect(mon, area).Height)
	}

	// Left strut: x=[0,Left), y=[LeftStartY,LeftEndY]
	if sp.Left > 0 {
		area := geom.Rect{X: 0, Y: int(sp.LeftStartY), Width: int(sp.Left), Height: int(sp.LeftEndY) + 1 - int(sp.LeftStartY)}
		acc.left = max(acc.left, intersect(mon, area).Width)
	}

	// Right strut: x=[rootWidth-Right,rootWidth)
	if sp.Right > 0 {
		area := geom.Rect{X: rootWidth - int(sp.Right), Y: int(sp.RightStartY), Width: int(sp.Right), Height: int(sp.RightEndY) + 1 - int(sp.RightStartY)}
		acc.right = max(acc.right, intersect(mon, area).Width)
	}
}

// intersect returns the overlap of a and b, or a zero rect.
func intersect(a, b geom.Rect) geom.Rect {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)
	if x2 <= x1 || y2 <= y1 {
		return geom.Rect{}
	}
	return geom.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}
