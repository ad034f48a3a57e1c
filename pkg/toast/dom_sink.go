package toast

import (
	"github.com/qaplatform/qaglue/pkg/dom"
	"golang.org/x/net/html"
)

// ContainerClass is the class of the element notifications render into.
const ContainerClass = "notification-container"

// DOMSink renders notifications into a Document.
type DOMSink struct {
	doc *dom.Document
}

// NewDOMSink creates the notification container at the end of <body>
// unless the page already has one.
func NewDOMSink(doc *dom.Document) *DOMSink {
	doc.Update(func(root *html.Node) {
		if dom.QueryFirst(root, dom.ByClass(ContainerClass)) != nil {
			return
		}
		if body := dom.Body(root); body != nil {
			body.AppendChild(dom.Element("div", "class", ContainerClass))
		}
	})
	return &DOMSink{doc: doc}
}

// Added appends the notification's markup to the container.
func (s *DOMSink) Added(n Notification) {
	s.doc.Update(func(root *html.Node) {
		container := dom.QueryFirst(root, dom.ByClass(ContainerClass))
		if container == nil {
			return
		}
		el := dom.Element("div", "class", "notification "+string(n.Level), "data-toast-id", n.ID)
		content := dom.Element("div", "class", "notification-content")
		msg := dom.Element("div", "class", "notification-message")
		dom.SetText(msg, n.Message)
		closeBtn := dom.Element("button", "class", "notification-close")
		dom.SetText(closeBtn, "×")
		content.AppendChild(msg)
		content.AppendChild(closeBtn)
		el.AppendChild(content)
		container.AppendChild(el)
	})
}

// Removed detaches the notification's element.
func (s *DOMSink) Removed(id string) {
	s.doc.Update(func(root *html.Node) {
		if el := dom.QueryFirst(root, dom.ByAttr("data-toast-id", id)); el != nil {
			dom.Detach(el)
		}
	})
}

// CloseTarget returns the ID of the notification whose close button was
// clicked, or "" when target is not a close button.
func CloseTarget(target *html.Node) string {
	if dom.Closest(target, dom.ByClass("notification-close")) == nil {
		return ""
	}
	el := dom.Closest(target, dom.ByClass("notification"))
	if el == nil {
		return ""
	}
	id, _ := dom.Attr(el, "data-toast-id")
	return id
}
