package vote

import (
	"strconv"

	"github.com/qaplatform/qaglue/pkg/dom"
	"golang.org/x/net/html"
)

// Markup contract shared with the page templates.
const (
	ControlClass = "vote-btn"
	ScoreClass   = "vote-count"
	ActiveClass  = "active"
)

// roles is the dispatch table from a control's data-value to the
// direction it requests.
var roles = map[string]Direction{
	"1":  Up,
	"-1": Down,
}

// control is a parsed vote button.
type control struct {
	target    Target
	requested Direction
}

// parseControl reads the target and role of a vote button.
func parseControl(n *html.Node) (control, bool) {
	d, ok := roles[dom.Data(n, "value")]
	if !ok {
		return control{}, false
	}
	t := Target{ItemType: dom.Data(n, "itemType"), ItemID: dom.Data(n, "itemId")}
	if t.ItemType == "" || t.ItemID == "" {
		return control{}, false
	}
	return control{target: t, requested: d}, true
}

// widget is the group of DOM nodes rendering one target's vote state.
type widget struct {
	up, down *html.Node
	score    *html.Node
}

// findWidget locates the controls for t. The group is the parent of the
// first control tagged with t.
func findWidget(root *html.Node, t Target) (widget, bool) {
	first := dom.QueryFirst(root, targetMatcher(t))
	if first == nil || first.Parent == nil {
		return widget{}, false
	}
	group := first.Parent
	w := widget{
		up:    dom.QueryFirst(group, dom.And(targetMatcher(t), dom.ByData("value", "1"))),
		down:  dom.QueryFirst(group, dom.And(targetMatcher(t), dom.ByData("value", "-1"))),
		score: dom.QueryFirst(group, dom.ByClass(ScoreClass)),
	}
	return w, w.up != nil || w.down != nil
}

func targetMatcher(t Target) dom.Matcher {
	return dom.And(
		dom.ByClass(ControlClass),
		dom.ByData("itemType", t.ItemType),
		dom.ByData("itemId", t.ItemID),
	)
}

// direction reads the toggle classes.
func (w widget) direction() Direction {
	switch {
	case w.up != nil && dom.HasClass(w.up, ActiveClass):
		return Up
	case w.down != nil && dom.HasClass(w.down, ActiveClass):
		return Down
	}
	return None
}

// apply sets the toggle classes for d. The other direction is always
// cleared before the requested one is set.
func (w widget) apply(d Direction) {
	setActive := func(n *html.Node, on bool) {
		if n == nil {
			return
		}
		if on {
			dom.AddClass(n, ActiveClass)
		} else {
			dom.RemoveClass(n, ActiveClass)
		}
	}
	switch d {
	case Up:
		setActive(w.down, false)
		setActive(w.up, true)
	case Down:
		setActive(w.up, false)
		setActive(w.down, true)
	default:
		setActive(w.up, false)
		setActive(w.down, false)
	}
}

// setScore writes the server's score. Widgets without a score element
// are left alone.
func (w widget) setScore(score int) {
	if w.score != nil {
		dom.SetText(w.score, strconv.Itoa(score))
	}
}
