// internal/game/errors.go
package game

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable, client-visible kind for a rejected action.
type ErrorCode string

const (
	CodeAlreadyDrawn             ErrorCode = "AlreadyDrawn"
	CodeNoCardDrawn              ErrorCode = "NoCardDrawn"
	CodeWrongCardKind            ErrorCode = "WrongCardKind"
	CodeInvalidIndex             ErrorCode = "InvalidIndex"
	CodeInvalidOpponent          ErrorCode = "InvalidOpponent"
	CodeSelfTarget               ErrorCode = "SelfTarget"
	CodeDeckEmpty                ErrorCode = "DeckEmpty"
	CodeDiscardEmpty             ErrorCode = "DiscardEmpty"
	CodePowerCardFromDiscard     ErrorCode = "PowerCardFromDiscard"
	CodeCannotDiscardFromDiscard ErrorCode = "CannotDiscardFromDiscard"
	CodeInsufficientPlayers      ErrorCode = "InsufficientPlayers"
	CodeAlreadyKnocked           ErrorCode = "AlreadyKnocked"
	CodeGameFull                 ErrorCode = "GameFull"
	CodeGameAlreadyStarted       ErrorCode = "GameAlreadyStarted"
	CodeNotYourTurn              ErrorCode = "NotYourTurn"
	CodeMatchNotStarted          ErrorCode = "MatchNotStarted"
	CodeDrawTwoChainActive       ErrorCode = "DrawTwoChainActive"
)

// RuleError is a recoverable rule violation. An action that returns one has
// not mutated match state in any way.
type RuleError struct {
	Code   ErrorCode
	Detail string
}

func (e *RuleError) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func ruleErr(code ErrorCode, format string, args ...interface{}) *RuleError {
	return &RuleError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
