package rtengine

import (
	"strconv"

	"github.com/itsatony/go-cuserr"

	"github.com/randtable/rtengine/internal"
)

// NewUnknownTableError builds the fatal error for a TableRef/MultiRoll/
// Again/Instance naming a table id the document does not define.
func NewUnknownTableError(tableID string) error {
	return cuserr.NewNotFoundError(ErrCodeLookup, ErrMsgUnknownTable).
		WithMetadata(MetaKeyTableID, tableID)
}

// NewUnknownTemplateError builds the fatal error for a TableRef dispatched
// to a template id the document does not define.
func NewUnknownTemplateError(templateID string) error {
	return cuserr.NewNotFoundError(ErrCodeLookup, ErrMsgUnknownTemplate).
		WithMetadata(MetaKeyTemplateID, templateID)
}

// NewRecursionLimitError builds the fatal error for exceeding
// maxRecursionDepth.
func NewRecursionLimitError(depth, max int) error {
	return cuserr.NewValidationError(ErrCodeRecursion, ErrMsgRecursionLimit).
		WithMetadata(MetaKeyDepth, strconv.Itoa(depth)).
		WithMetadata(MetaKeyMaxDepth, strconv.Itoa(max))
}

// NewParseError builds the fatal error for a template fragment that does
// not match any grammar production.
func NewParseError(token string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeParse, ErrMsgParseFailed).
		WithMetadata(MetaKeyToken, token)
}

// NewInvalidAgainContextError builds the fatal error for "again" used
// outside a simple-table entry's value evaluation.
func NewInvalidAgainContextError() error {
	return cuserr.NewValidationError(ErrCodeAgain, ErrMsgInvalidAgain)
}

// NewBadSpecVersionError builds the fatal error for a document whose
// metadata.specVersion isn't the one this engine understands.
func NewBadSpecVersionError(got string) error {
	return cuserr.NewValidationError(ErrCodeDocument, ErrMsgBadSpecVersion).
		WithMetadata(MetaKeyVersion, got)
}

// NewEmptyDocumentError builds the fatal error for a document with no
// tables and no templates.
func NewEmptyDocumentError() error {
	return cuserr.NewValidationError(ErrCodeDocument, ErrMsgEmptyDocument)
}

// NewDuplicateTableError builds the fatal error for two tables sharing an id.
func NewDuplicateTableError(id string) error {
	return cuserr.NewValidationError(ErrCodeDocument, ErrMsgDuplicateTableID).
		WithMetadata(MetaKeyTableID, id)
}

// NewDuplicateTemplateError builds the fatal error for two templates
// sharing an id.
func NewDuplicateTemplateError(id string) error {
	return cuserr.NewValidationError(ErrCodeDocument, ErrMsgDuplicateTemplate).
		WithMetadata(MetaKeyTemplateID, id)
}

// NewDiceResolverError wraps a dice resolver failure.
func NewDiceResolverError(expr string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeDice, ErrMsgDiceResolverFailed).
		WithMetadata(MetaKeyExpr, expr)
}

// NewMathEvalError wraps a math expression evaluation failure.
func NewMathEvalError(expr string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeMath, ErrMsgMathEvalFailed).
		WithMetadata(MetaKeyExpr, expr)
}

// asEngineError translates the internal package's sentinel error types
// (fatal kinds the core evaluator can raise) into cuserr-wrapped errors at
// the public boundary, preserving table/template/depth context.
func asEngineError(err error, maxDepth int) error {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case *internal.UnknownTableError:
		return NewUnknownTableError(e.TableID)
	case *internal.UnknownTemplateError:
		return NewUnknownTemplateError(e.TemplateID)
	case *internal.RecursionLimitError:
		return NewRecursionLimitError(e.Depth, maxDepth)
	case *internal.InvalidAgainContextError:
		return NewInvalidAgainContextError()
	case *internal.ParseError:
		return NewParseError(e.Source, e)
	case *internal.LexError:
		return NewParseError("", e)
	}
	return err
}
