package game

import "errors"

// ErrInvalidRoomCode is returned for room codes that fail normalization.
var ErrInvalidRoomCode = errors.New("invalid room code")

// ActionError is a state-precondition failure. Message is shown to the acting player as-is.
type ActionError struct {
	Message string
}

func (e *ActionError) Error() string {
	return e.Message
}

// NewActionError wraps a user-facing message.
func NewActionError(msg string) *ActionError {
	return &ActionError{Message: msg}
}

// IsActionError reports whether err is (or wraps) an ActionError.
func IsActionError(err error) bool {
	var ae *ActionError
	return errors.As(err, &ae)
}

// User-facing messages. Clients match on some of these, keep them stable.
const (
	MsgRoomNotFound       = "Room not found"
	MsgInvalidRoomState   = "Invalid room state"
	MsgPlayerNotInRoom    = "Player not in room"
	MsgGameNotStarted     = "Game not started"
	MsgGameAlreadyStarted = "Game already started"
	MsgNotYourTurn        = "Not your turn"
	MsgRoomFull           = "Room is full"

	MsgInvalidDeckState   = "Invalid deck state"
	MsgAlreadyDrawnHeart  = "You have already drawn a heart card this turn"
	MsgAlreadyDrawnMagic  = "You have already drawn a magic card this turn"
	MsgHeartDeckEmpty     = "No more heart cards in deck"
	MsgMagicDeckEmpty     = "No more magic cards in deck"
	MsgMustDrawHeart      = "You must draw a heart card before ending your turn"
	MsgMustDrawMagic      = "You must draw a magic card before ending your turn"
	MsgHeartLimitReached  = "You can only place up to 2 hearts per turn"
	MsgMagicLimitReached  = "You can only use one magic card per turn"
	MsgHeartNotInHand     = "Heart card not in your hand"
	MsgCardNotInHand      = "Card not in your hand"
	MsgTileNotFound       = "Tile not found"
	MsgTileOccupied       = "Tile is already occupied"
	MsgOnlyHeartsOnTiles  = "Only heart cards can be placed on tiles"
	MsgHeartCannotTarget  = "This heart cannot be placed on this tile"
	MsgOnlyMagicCards     = "Only magic cards can be used"
	MsgUnknownCard        = "Unknown card type"
	MsgTargetTileRequired = "Target tile is required for this card"

	MsgInvalidWindTarget    = "Invalid target for Wind card"
	MsgOpponentShielded     = "Opponent is protected by Shield"
	MsgInvalidRecycleTarget = "Invalid target for Recycle card"
	MsgTileShielded         = "Tile is protected by Shield"
	MsgOpponentShieldActive = "Cannot activate Shield while opponent has active Shield"

	MsgActionInProgress = "Action in progress, please wait"
	MsgDebugDisabled    = "Debug actions are disabled"
)
