// Package analysis defines the wire contract between the dashboard and the
// analysis engine's push channel, and the result model attached to a
// completed session.
//
// The engine has shipped two event vocabularies over time. This package
// freezes one: events named analysis_update, analysis_complete and
// analysis_error, wrapped in a {event, session, data} envelope. Correlation
// uses the client-issued session token when present; the connected hello
// carries the server-issued connection id used as a fallback for events that
// omit the token. The alternate vocabulary (status_update/analysis_result)
// is intentionally not supported.
package analysis
