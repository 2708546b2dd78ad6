// Package chronicle implements event-sourced collections with transactional,
// multi-aggregate commits. It couples per-aggregate append-only logs, a
// buffering transaction manager, an in-process event hub, and a forward-only
// saga orchestrator into a single library that can be embedded into services.
//
// Typical usage looks like:
//   - Open a Store over a Journal (in-memory, Redis, bbolt, or Postgres)
//   - Define Collections whose Appliers fold events into aggregate state
//   - Begin a transaction, issue commands, and Commit to make events durable
//   - Consume committed events from the EventHub or by loading a log directly
//   - Sequence cross-aggregate work with a Saga, tracking progress in a
//     Backlog
//
// Durable logs change only inside Commit; a transaction abandoned before
// commit leaves every touched log untouched.
package chronicle
