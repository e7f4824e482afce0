// Package event models conversation history as an append-only log of
// immutable events and provides the JSON-lines codec for that log.
//
// Every event embeds a Header (id, session, timestamp, sequence). The
// concrete variants are selected on the wire by the envelope's event_type:
//
//	message        MessageEvent
//	tool_call      ToolCallEvent
//	tool_result    ToolResultEvent
//	system_signal  SystemSignalEvent
//	error          ErrorEvent
//
// ToJSONLine writes an Envelope as one flat JSON object per line and
// FromJSONLine reads it back by peeking the discriminator first. The codec
// records whatever sequence it is given; assigning sequences and checking
// tool-call status transitions belong to the log writer (see package
// eventlog) or to ValidateStatusSequence when auditing an existing log.
package event
