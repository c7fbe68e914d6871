package x11

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

var errNoActiveWindow = errors.New("no active window found")

var clientAtoms = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// client talks to the X server directly over the wire protocol.
type client struct {
	conn        *xgb.Conn
	root        xproto.Window
	atoms       map[string]xproto.Atom
	hasSaverExt bool
}

func newClient() (*client, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	c := &client{
		conn:  conn,
		root:  xproto.Setup(conn).DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom, len(clientAtoms)),
	}

	for _, name := range clientAtoms {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to intern atom %s", name)
		}
		c.atoms[name] = reply.Atom
	}

	c.hasSaverExt = screensaver.Init(conn) == nil

	return c, nil
}

func (c *client) close() {
	c.conn.Close()
}

func (c *client) property(win xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(c.conn, false, win, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (c *client) activeFromProperty() xproto.Window {
	data, err := c.property(c.root, c.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return xproto.Window(binary.LittleEndian.Uint32(data))
}

func (c *client) activeFromInputFocus() xproto.Window {
	reply, err := xproto.GetInputFocus(c.conn).Reply()
	if err != nil {
		return 0
	}
	return reply.Focus
}

func (c *client) topLevel(win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(c.conn, win).Reply()
		if err != nil || reply.Parent == c.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

func (c *client) activeWindow() (xproto.Window, error) {
	for attempt := 0; attempt < 3; attempt++ {
		if win := c.activeFromProperty(); win != 0 && c.windowName(win) != "" {
			return win, nil
		}

		if win := c.activeFromInputFocus(); win != 0 && win != c.root {
			if top := c.topLevel(win); top != 0 && c.windowName(top) != "" {
				return top, nil
			}
		}

		time.Sleep(20 * time.Millisecond)
	}

	return 0, errNoActiveWindow
}

func (c *client) windowName(win xproto.Window) string {
	if data, err := c.property(win, c.atoms["_NET_WM_NAME"], c.atoms["UTF8_STRING"], 256); err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	if data, err := c.property(win, c.atoms["WM_NAME"], xproto.AtomString, 256); err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	return ""
}

// windowClass returns the class part of WM_CLASS, falling back to the instance.
func (c *client) windowClass(win xproto.Window) string {
	data, err := c.property(win, c.atoms["WM_CLASS"], xproto.AtomString, 256)
	if err != nil || len(data) == 0 {
		return ""
	}
	return splitWMClass(data)
}

func (c *client) windowPID(win xproto.Window) uint32 {
	data, err := c.property(win, c.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(data)
}

// idleTime asks the MIT-SCREEN-SAVER extension how long ago input happened.
func (c *client) idleTime() (time.Duration, error) {
	if !c.hasSaverExt {
		return 0, errors.New("MIT-SCREEN-SAVER extension not available")
	}
	reply, err := screensaver.QueryInfo(c.conn, xproto.Drawable(c.root)).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "screensaver query failed")
	}
	return time.Duration(reply.MsSinceUserInput) * time.Millisecond, nil
}

// splitWMClass parses the raw WM_CLASS property: "instance\x00class\x00".
func splitWMClass(data []byte) string {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	return parts[0]
}
