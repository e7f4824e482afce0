// Package router exposes the message operations behind a single uniform
// entry point.
//
// Callers only need operation ids and JSON payload shapes, not the Go types
// of package core:
//
//	r := router.New()
//	out, _ := r.HandleJSON([]byte(`{"operation":"count-tokens","entity":"InternalMessage","payload":{"content":"Hello"}}`))
//	// {"status":"success","result":8,"error":null}
//
// The served operations and their payload schemas are listed in an embedded
// YAML catalog (see DefaultCatalog). Every payload is checked against its
// schema before the handler runs; failures are reported with one of the
// kinds UnknownOperation, ParseError, ValidationError or HandlerError.
package router
