// Package content decodes inbound federated objects and resolves their
// localized fields into the single text, summary and language stored on a
// status.
//
// Localized maps keep the order in which languages arrived on the wire and
// "first" always means index 0 of that order. Senders are free to order JSON
// object keys however they like, so for a map carrying several translations
// the chosen entry depends on the remote serializer.
package content
