// Package encoder walks a resource graph and reports it to a Sink as a
// stream of structural events.
//
// # Overview
//
// An encode is a tree of small drivers, one per unit of work:
//   - A resource driver brackets a resource with BeginResource/EndResource
//     and schedules a properties driver followed by a members driver.
//   - A properties driver writes each selected property in definition order.
//     Scalars go through as values; resources and lists of resources become
//     references. A property of any other kind fails the encode.
//   - A members driver asks the Runtime for the collection's members and
//     schedules a resource driver for every selected member. The member
//     bracket is emitted only when at least one member is written.
//
// The drivers live in an arena owned by the root driver and are advanced one
// at a time: a driver runs when first reached, its children are driven in the
// order they were scheduled, and it closes before control returns to its
// parent. The resulting event order is a plain depth-first walk, even though
// member fetches complete asynchronously.
//
// # Suspension
//
// Runtime.FetchMembers is the only point at which an encode waits. The
// encoder issues one fetch at a time and does nothing else until the result
// arrives or the context ends.
//
// # Failure
//
// The first failure ends the encode. No event is sent to the sink after it,
// and Encode returns the error unchanged: UnsupportedValueError,
// MemberResolutionError, ReferenceError, CycleError, DepthError or
// SinkError. Completion is reported exactly once.
//
// # Selection
//
// A fieldsel.Selection restricts which properties are written and whether
// members are expanded. The reserved name "members" governs member
// expansion and carries pagination bounds; the selection found under it
// applies to every member.
package encoder
