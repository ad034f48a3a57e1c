// Package vote implements the vote toggle controller: it turns a click on
// an up or down vote control into a vote-direction transition, asks the
// backend to persist it, and shows the score the backend returns.
//
// # State machine
//
// Each vote target (item type and ID) is in exactly one of three states:
//
//	current  click Up   click Down
//	None     Up (+1)    Down (-1)
//	Up       None (0)   Down (-1)
//	Down     Up (+1)    None (0)
//
// Clicking the active direction cancels the vote (value 0). Clicking the
// other direction switches in a single request. Up and Down are never
// active together.
//
// # Widget markup
//
// The controller expects two sibling controls and a score element per
// target:
//
//	<div class="vote-controls">
//	    <button class="vote-btn" data-item-type="question" data-item-id="42" data-value="1">▲</button>
//	    <span class="vote-count">10</span>
//	    <button class="vote-btn" data-item-type="question" data-item-id="42" data-value="-1">▼</button>
//	</div>
//
// Toggle classes change optimistically before the request is sent. The
// score element only ever shows the score from the backend's response.
// A failed request leaves the optimistic classes in place unless
// WithRollbackOnFailure is set, and surfaces a single generic toast.
package vote
