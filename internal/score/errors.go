// internal/score/errors.go
//
// Recording errors and the one-line summaries shown to players.

package score

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	ErrWrongNetwork      = errors.New("wallet is on the wrong network")
	ErrRecordInProgress  = errors.New("a score recording is already in progress")
	ErrAlreadyRecorded   = errors.New("score already recorded for this stage")
	ErrNoWallet          = errors.New("no wallet connected")
	ErrTransactionFailed = errors.New("transaction reverted on-chain")
)

// RevertError is a contract rejection surfaced by simulation.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}

// MaxErrorRunes caps user-facing error text.
const MaxErrorRunes = 120

// Summarize reduces an error to one trimmed line of at most MaxErrorRunes runes.
func Summarize(err error) string {
	if err == nil {
		return ""
	}
	return SummarizeText(err.Error())
}

// SummarizeText applies the Summarize rules to a string.
func SummarizeText(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "Transaction failed"
	}
	if utf8.RuneCountInString(s) <= MaxErrorRunes {
		return s
	}
	r := []rune(s)
	return string(r[:MaxErrorRunes-1]) + "…"
}
