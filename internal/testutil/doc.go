// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing events, envelopes and whole logs with
// deterministic ids, sequences and timestamps. They are not intended for
// production usage.
package testutil
