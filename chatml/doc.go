// Package chatml converts between UMF messages and the flat ChatML / OpenAI
// chat message shape, and provides a Formatter for building ChatML
// conversations.
//
// Conversion is lossy by nature: ChatML content is a single string, so image
// and tool_result blocks are dropped and text blocks are joined by newlines.
// Tool calls survive a round trip with their ids, names and argument objects.
package chatml
