// Package edit applies inbound edit documents to cached statuses.
//
// An Applier takes a lease named after the status URI, resolves the document
// content and writes the editable attributes in one transaction. When the
// lease is held by another worker the edit is dropped with
// OutcomeRaceCondition and nothing is written; redelivery is up to the
// caller.
package edit
