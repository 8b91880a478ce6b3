package authz

// Action identifies the operation an endpoint performs.
type Action string

const (
	ActionGetPrinters Action = "get_printers"
	ActionPrint       Action = "print"
)

// Claims are the optional restrictions carried by a verified token.
// A nil field places no restriction on that dimension; a non-nil field,
// even an empty one, must match the request exactly.
type Claims struct {
	Action   *string
	Printer  *string
	Type     *string
	CheckSum *string

	// TokenID is the jti of the token, used for revocation lookups.
	TokenID string
}

// Request holds the request fields the evaluator compares against claims.
type Request struct {
	Action  Action
	Printer string
	Type    string
	Data    []byte
}

// Denial reasons, surfaced verbatim to clients.
const (
	ReasonUnauthorizedAction  = "unauthorized action"
	ReasonUnauthorizedPrinter = "unauthorized printer"
	ReasonUnauthorizedType    = "unauthorized type"
	ReasonChecksumMismatch    = "Failed to validate check sum"
)

// Decision is the outcome of evaluating claims against a request.
//
//nolint:revive // Decision keeps the domain name short at call sites
type Decision struct {
	Allow  bool
	Reason string
}

func allow() Decision { return Decision{Allow: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// OutcomeKind classifies the result of authenticating a request.
type OutcomeKind int

const (
	OutcomeNoToken OutcomeKind = iota
	OutcomeInvalid
	OutcomeValid
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNoToken:
		return "no_token"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Outcome is what Authenticate reports for a single request.
type Outcome struct {
	Kind   OutcomeKind
	Claims *Claims
	Reason string
}
