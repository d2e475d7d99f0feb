// Package event provides the notification bus that decouples toolplane's
// control-plane components from their observers. The scheduler, failure
// isolator, and approval gate publish typed events describing job dispatch,
// circuit transitions, and approval lifecycle; consumers such as the CLI,
// the approvals console, or an audit sink subscribe without the publishers
// knowing they exist.
//
// Publishing is fire-and-forget: a bus with zero subscribers is valid, and
// a panicking handler is recovered and logged so it cannot block delivery
// to other handlers or destabilize the publisher.
package event
