// Package ledger provides access to the ledger node.
//
// Two surfaces:
//   - Subscriber: a reconnecting WebSocket subscription to request_created
//     events, with exponential backoff between reconnect attempts and a
//     fatal-error channel once the subscription is declared dead
//   - Submitter: result transaction submission over HTTP from a single
//     fixed identity, with bounded retry on retryable node errors
//
// The ledger itself (contract logic, signing) is an external collaborator;
// this package only speaks its node API.
package ledger
