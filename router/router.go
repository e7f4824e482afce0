package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/umf/core"
	"github.com/hupe1980/umf/internal/util"
	"github.com/hupe1980/umf/logging"
	"github.com/hupe1980/umf/tokens"
)

// Operation identifiers served by the router.
const (
	OpCreateSystemMessage     = "create-system-message"
	OpCreateUserMessage       = "create-user-message"
	OpCreateAssistantMessage  = "create-assistant-message"
	OpCreateAssistantWithTool = "create-assistant-with-tools"
	OpCreateToolResultMessage = "create-tool-result-message"
	OpToChatML                = "to-chatml"
	OpFromChatML              = "from-chatml"
	OpExtractTextContent      = "extract-text-content"
	OpCountTokens             = "count-tokens"
)

// Request is a uniform operation request. Entity names the payload entity
// and is only used for logging.
type Request struct {
	Operation string          `json:"operation"`
	Entity    string          `json:"entity,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Status is the outcome of a request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrorBody is the error part of a Response.
type ErrorBody struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Response is the uniform reply envelope. Exactly one of Result and Error is
// set; the other is encoded as null.
type Response struct {
	Status Status     `json:"status"`
	Result any        `json:"result"`
	Error  *ErrorBody `json:"error"`
}

// HandlerFunc executes one operation on a decoded, schema-checked payload.
type HandlerFunc func(payload json.RawMessage) (any, error)

// Options configures a Router.
type Options struct {
	// Logger receives one record per dispatch. Defaults to a no-op logger.
	Logger logging.Logger

	// TokenCounter backs count-tokens. Defaults to tokens.Approximate.
	TokenCounter tokens.Counter

	// Catalog lists the served operations and their payload schemas.
	// Defaults to the embedded catalog.
	Catalog *Catalog
}

// Router dispatches requests to the fixed set of message operations.
//
// The dispatch table is built once by New and never mutated afterwards, so a
// Router is safe for concurrent use. Handlers are pure transformations over
// their payload; the router performs no I/O.
//
// Example:
//
//	r := router.New()
//	resp := r.Handle(router.Request{
//	    Operation: "create-user-message",
//	    Payload:   json.RawMessage(`{"text":"Hello"}`),
//	})
type Router struct {
	table   map[string]HandlerFunc
	catalog *Catalog
	schemas map[string]map[string]any
	// decoded marks operations whose payload is a message checked by its own
	// strict decoder rather than the catalog schema.
	decoded map[string]bool
	counter tokens.Counter
	logger  logging.Logger
}

// New builds the dispatch table. It panics if an operation is registered
// twice or the table and the catalog disagree, both of which are programming
// errors.
func New(optFns ...func(o *Options)) *Router {
	opts := Options{
		Logger:       logging.NoOpLogger{},
		TokenCounter: tokens.Approximate,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.TokenCounter == nil {
		opts.TokenCounter = tokens.Approximate
	}
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}

	r := &Router{
		catalog: opts.Catalog,
		counter: opts.TokenCounter,
		logger:  opts.Logger,
	}

	routes := []struct {
		id      string
		fn      HandlerFunc
		decoded bool
	}{
		{OpCreateSystemMessage, r.createSystemMessage, false},
		{OpCreateUserMessage, r.createUserMessage, false},
		{OpCreateAssistantMessage, r.createAssistantMessage, false},
		{OpCreateAssistantWithTool, r.createAssistantWithTools, false},
		{OpCreateToolResultMessage, r.createToolResultMessage, false},
		{OpToChatML, r.toChatML, true},
		{OpFromChatML, r.fromChatML, true},
		{OpExtractTextContent, r.extractTextContent, true},
		{OpCountTokens, r.countTokens, true},
	}

	r.table = make(map[string]HandlerFunc, len(routes))
	r.schemas = make(map[string]map[string]any, len(routes))
	r.decoded = make(map[string]bool, len(routes))
	for _, rt := range routes {
		if _, dup := r.table[rt.id]; dup {
			panic(fmt.Sprintf("router: operation %q registered twice", rt.id))
		}
		op, ok := r.catalog.Lookup(rt.id)
		if !ok {
			panic(fmt.Sprintf("router: operation %q missing from catalog", rt.id))
		}
		r.table[rt.id] = rt.fn
		r.schemas[rt.id] = op.Payload
		r.decoded[rt.id] = rt.decoded
	}
	if len(r.catalog.Operations) != len(r.table) {
		panic(fmt.Sprintf("router: catalog lists %d operations, table has %d", len(r.catalog.Operations), len(r.table)))
	}

	return r
}

// Operations returns the served operation ids in catalog order.
func (r *Router) Operations() []string { return r.catalog.IDs() }

// Catalog returns the catalog the router was built from.
func (r *Router) Catalog() *Catalog { return r.catalog }

// Dispatch runs the operation named by req and returns its result. Failures
// are always *Error.
func (r *Router) Dispatch(req Request) (result any, err error) {
	start := time.Now()
	defer func() {
		var attrs []any
		if req.Entity != "" {
			attrs = append(attrs, "entity", req.Entity)
		}
		logging.LogDispatch(r.logger, req.Operation, time.Since(start), err, attrs...)
	}()

	fn, ok := r.table[req.Operation]
	if !ok {
		return nil, unknownOperation(req.Operation)
	}

	payload, err := r.checkPayload(req.Operation, req.Payload)
	if err != nil {
		return nil, classify(err)
	}

	result, err = fn(payload)
	if err != nil {
		return nil, classify(err)
	}
	return result, nil
}

// Handle runs req and wraps the outcome in a Response.
func (r *Router) Handle(req Request) Response {
	result, err := r.Dispatch(req)
	if err != nil {
		return errorResponse(err)
	}
	return Response{Status: StatusSuccess, Result: result}
}

// HandleJSON decodes a JSON request, handles it and encodes the Response.
// Undecodable requests yield a ParseError response; the returned error is
// only set if the response itself cannot be encoded.
func (r *Router) HandleJSON(data []byte) ([]byte, error) {
	var resp Response
	req, err := ParseRequest(data)
	if err != nil {
		resp = errorResponse(err)
	} else {
		resp = r.Handle(req)
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return out, nil
}

// ParseRequest decodes a request. The operation is required.
func ParseRequest(data []byte) (Request, error) {
	var raw struct {
		Operation *string         `json:"operation"`
		Entity    string          `json:"entity"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Request{}, core.WrapDecodeError("", err)
	}
	if raw.Operation == nil {
		return Request{}, core.NewMissingFieldError("operation")
	}
	return Request{Operation: *raw.Operation, Entity: raw.Entity, Payload: raw.Payload}, nil
}

func errorResponse(err error) Response {
	rerr := classify(err)
	return Response{
		Status: StatusError,
		Error:  &ErrorBody{Kind: rerr.Kind, Message: rerr.Message},
	}
}

// checkPayload ensures the payload is a JSON object satisfying the catalog
// schema. A missing or null payload is treated as an empty object. Message
// payloads skip the schema: their decoder reports a missing field, an unknown
// role or block type and a wrong type as a *core.ParseError.
func (r *Router) checkPayload(op string, payload json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	var fields map[string]any
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, core.NewInvalidTypeError("payload", errors.New("expected a JSON object"))
		}
		return nil, core.WrapDecodeError("payload", err)
	}

	if r.decoded[op] {
		return trimmed, nil
	}
	if err := util.ValidateParameters(fields, r.schemas[op]); err != nil {
		return nil, err
	}
	return trimmed, nil
}
