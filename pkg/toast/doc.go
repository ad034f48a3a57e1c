// Package toast provides transient feedback notifications.
//
// Components never reach for a process-wide notification manager. They
// receive a Notifier at construction and call Show (or one of the level
// helpers) when something needs the user's attention:
//
//	func (c *Controller) fail(err error) {
//	    toast.Error(c.notifier, "Vote failed. Please try again.")
//	}
//
// # Manager
//
// Manager is the stock Notifier. It keeps the list of visible
// notifications, removes each one after its duration, and reports every
// change to a Sink. DOMSink renders the list into a page's
// .notification-container, the same markup the stylesheet expects:
//
//	<div class="notification error">
//	    <div class="notification-content">
//	        <div class="notification-message">Vote failed.</div>
//	        <button class="notification-close">×</button>
//	    </div>
//	</div>
//
// Timers run on an injected clockwork.Clock so tests can advance time.
package toast
