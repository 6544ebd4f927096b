package taskrewards

import "errors"

var (
	ErrInvalidActivity     = errors.New("taskrewards: invalid activity type")
	ErrCooldownActive      = errors.New("taskrewards: cooldown is active")
	ErrInsufficientBalance = errors.New("taskrewards: insufficient balance")
	ErrUnauthorized        = errors.New("taskrewards: unauthorized")
	ErrMaxTasksExceeded    = errors.New("taskrewards: invalid task bounds")
	ErrTaskUnavailable     = errors.New("taskrewards: task unavailable")
	ErrCooldownRngTasks    = errors.New("taskrewards: task refresh cooldown is active")
	ErrTransferFailed      = errors.New("taskrewards: reward transfer failed")

	ErrNotInitialized     = errors.New("taskrewards: program not initialized")
	ErrAlreadyInitialized = errors.New("taskrewards: program already initialized")
	ErrSupplyOverflow     = errors.New("taskrewards: initial supply overflows")
	ErrRewardOverflow     = errors.New("taskrewards: reward total overflows")
	ErrNilState           = errors.New("taskrewards: nil state")
	ErrPayoutNotReversed  = errors.New("taskrewards: payout not reversed")
)

// Code is the stable numeric identifier reported to clients for a rejected
// operation. The numbering continues the program's historical error table.
type Code uint32

const (
	CodeNone                Code = 0
	CodeInvalidActivity     Code = 6000
	CodeCooldownActive      Code = 6001
	CodeInsufficientBalance Code = 6002
	CodeUnauthorized        Code = 6003
	CodeMaxTasksExceeded    Code = 6004
	CodeTaskUnavailable     Code = 6005
	CodeCooldownRngTasks    Code = 6006
	CodeTransferFailed      Code = 6100
	CodeInternal            Code = 6999
)

var codeTable = []struct {
	err  error
	code Code
	name string
}{
	{ErrInvalidActivity, CodeInvalidActivity, "InvalidActivity"},
	{ErrCooldownActive, CodeCooldownActive, "CooldownActive"},
	{ErrInsufficientBalance, CodeInsufficientBalance, "InsufficientBalance"},
	{ErrUnauthorized, CodeUnauthorized, "Unauthorized"},
	{ErrMaxTasksExceeded, CodeMaxTasksExceeded, "MaxTasksExceeded"},
	{ErrTaskUnavailable, CodeTaskUnavailable, "TaskUnavailable"},
	{ErrCooldownRngTasks, CodeCooldownRngTasks, "CooldownRngTasks"},
	{ErrTransferFailed, CodeTransferFailed, "TransferError"},
}

// CodeOf maps an error returned by this package to its Code. Nil maps to
// CodeNone and unrecognised errors to CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return CodeNone
	}
	for _, entry := range codeTable {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodeInternal
}

// String returns the symbolic name of the code.
func (c Code) String() string {
	if c == CodeNone {
		return "None"
	}
	for _, entry := range codeTable {
		if entry.code == c {
			return entry.name
		}
	}
	return "Internal"
}
