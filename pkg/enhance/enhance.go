// Package enhance applies cosmetic improvements to rendered content:
// copy buttons on code blocks, syntax highlighting, hardened external
// links and staggered card fade-ins.
package enhance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/net/html"

	"github.com/qaplatform/qaglue/pkg/dom"
	"github.com/qaplatform/qaglue/pkg/toast"
)

const (
	copyCodeClass = "copy-code-btn"
	copyClass     = "copy-btn"
	copiedClass   = "copied"

	// CopiedLabel replaces a copy button's text after a successful copy.
	CopiedLabel = "Copied!"

	// FeedbackDuration is how long the copied state is shown.
	FeedbackDuration = 2 * time.Second

	// CopyFailedMessage is shown when writing to the clipboard fails.
	CopyFailedMessage = "Copy failed"
)

// ErrNoClipboard is returned when no Clipboard is configured.
var ErrNoClipboard = errors.New("enhance: no clipboard")

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Option configures an Enhancer.
type Option func(*Enhancer)

// WithClipboard sets the clipboard copy buttons write to.
func WithClipboard(c Clipboard) Option {
	return func(e *Enhancer) { e.clipboard = c }
}

// WithClock sets the clock for the copied-state reset.
func WithClock(c clockwork.Clock) Option {
	return func(e *Enhancer) { e.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Enhancer) { e.logger = l }
}

// WithHighlighting enables syntax highlighting of code blocks that carry
// a language-* class.
func WithHighlighting(on bool) Option {
	return func(e *Enhancer) { e.highlight = on }
}

// Enhancer decorates one page.
type Enhancer struct {
	doc       *dom.Document
	notifier  toast.Notifier
	clipboard Clipboard
	clock     clockwork.Clock
	logger    *slog.Logger
	highlight bool
}

// New creates an Enhancer for doc.
func New(doc *dom.Document, notifier toast.Notifier, opts ...Option) *Enhancer {
	e := &Enhancer{
		doc:      doc,
		notifier: notifier,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enhance decorates the page. Running it again does not add duplicate
// buttons.
func (e *Enhancer) Enhance() {
	e.doc.Update(func(root *html.Node) {
		e.enhanceCodeBlocks(root)
		hardenLinks(root)
		animateCards(root)
	})
}

var codeBlock = dom.Child(dom.ByTag("pre"), dom.ByTag("code"))

func (e *Enhancer) enhanceCodeBlocks(root *html.Node) {
	for _, code := range dom.QueryAll(root, codeBlock) {
		if e.highlight {
			if err := highlight(code); err != nil {
				e.logger.Debug("enhance: highlight skipped", "error", err)
			}
		}
		pre := code.Parent
		if dom.QueryFirst(pre, dom.ByClass(copyCodeClass)) != nil {
			continue
		}
		btn := dom.Element("button", "class", copyCodeClass)
		dom.SetText(btn, "Copy")
		dom.SetStyle(pre, "position", "relative")
		pre.AppendChild(btn)
	}
}

// hardenLinks opens absolute links in a new tab without giving the new
// page a handle on this one.
func hardenLinks(root *html.Node) {
	for _, a := range dom.QueryAll(root, dom.And(dom.ByTag("a"), dom.ByAttrPrefix("href", "http"))) {
		dom.SetAttr(a, "target", "_blank")
		dom.SetAttr(a, "rel", "noopener noreferrer")
	}
}

func animateCards(root *html.Node) {
	cards := dom.QueryAll(root, dom.Or(dom.ByClass("card"), dom.ByClass("question-card")))
	for i, card := range cards {
		dom.SetStyle(card, "animation-delay", fmt.Sprintf("%gs", float64(i)/10))
		dom.AddClass(card, "fade-in")
	}
}

// Handle copies text for clicks on copy buttons. It reports whether the
// event hit one.
func (e *Enhancer) Handle(ctx context.Context, ev dom.Event) bool {
	if ev.Type != dom.EventClick {
		return false
	}
	var (
		btn  *html.Node
		text string
	)
	e.doc.View(func(_ *html.Node) {
		if b := dom.Closest(ev.Target, dom.ByClass(copyCodeClass)); b != nil {
			btn = b
			if b.Parent != nil {
				text = dom.Text(dom.QueryFirst(b.Parent, dom.ByTag("code")))
			}
			return
		}
		if b := dom.Closest(ev.Target, dom.ByClass(copyClass)); b != nil {
			btn = b
			text = dom.Data(b, "copy")
		}
	})
	if btn == nil {
		return false
	}
	_ = e.Copy(ctx, text, btn)
	return true
}

// Copy writes text to the clipboard and shows feedback on button, which
// may be nil.
func (e *Enhancer) Copy(ctx context.Context, text string, button *html.Node) error {
	err := ErrNoClipboard
	if e.clipboard != nil {
		err = e.clipboard.WriteText(ctx, text)
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "enhance: copy failed", "error", err)
		if e.notifier != nil {
			toast.Error(e.notifier, CopyFailedMessage)
		}
		return err
	}
	if button == nil {
		return nil
	}

	var original string
	e.doc.Update(func(_ *html.Node) {
		original = dom.Text(button)
		if original == CopiedLabel {
			return
		}
		dom.SetText(button, CopiedLabel)
		dom.AddClass(button, copiedClass)
	})
	if original == CopiedLabel {
		return nil
	}
	e.clock.AfterFunc(FeedbackDuration, func() {
		e.doc.Update(func(_ *html.Node) {
			dom.SetText(button, original)
			dom.RemoveClass(button, copiedClass)
		})
	})
	return nil
}

// languageOf returns the xxx of a language-xxx class.
func languageOf(code *html.Node) string {
	for _, c := range dom.Classes(code) {
		if lang, ok := strings.CutPrefix(c, "language-"); ok {
			return lang
		}
	}
	return ""
}
