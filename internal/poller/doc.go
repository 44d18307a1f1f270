// Package poller fetches the monitored service's status and runs the poll
// session.
//
// The main components are:
//
//   - [Client]: cache-busting HTTP client for the status and safeguards
//     endpoints
//   - [Session]: the fixed-period, non-overlapping, cancellable refresh
//     cycle with an explicit Start/Suspend/Resume/Teardown lifecycle
//   - [Result]: outcome of one completed refresh attempt
//
// Users of the mirrorboard library should not need to interact with this
// package directly. Configuration is done through the root package.
package poller
