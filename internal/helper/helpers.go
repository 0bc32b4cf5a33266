package helper

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"sync"
)

// ErrorReporter is the slice of the error handler background tasks need;
// an interface here keeps helper free of an import cycle with errHandler.
type ErrorReporter interface {
	ReportServerError(r *http.Request, err error)
}

type HelperRepository struct {
	baseUrl    *string
	WG         *sync.WaitGroup
	errHandler ErrorReporter
}

func New(baseUrl *string, wg *sync.WaitGroup, errHandler ErrorReporter) *HelperRepository {
	return &HelperRepository{
		baseUrl:    baseUrl,
		WG:         wg,
		errHandler: errHandler,
	}
}

func (h *HelperRepository) NewEmailData() map[string]any {
	data := map[string]any{
		"BaseURL": h.baseUrl,
	}

	return data
}

// BackgroundTask runs fn in a goroutine, recovering panics and reporting
// errors through the error handler so a failed notification can never take
// down the request that spawned it.
func (h *HelperRepository) BackgroundTask(r *http.Request, fn func() error) {
	h.WG.Add(1)

	go func() {
		defer h.WG.Done()

		defer func() {
			err := recover()
			if err != nil && h.errHandler != nil {
				h.errHandler.ReportServerError(nil, fmt.Errorf("%s", err))
			}
		}()

		err := fn()
		if err != nil && h.errHandler != nil {
			h.errHandler.ReportServerError(nil, err)
		}
	}()
}

const referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateReferralCode returns a short shareable code. The ambiguous
// characters 0/O/1/I are excluded from the alphabet.
func GenerateReferralCode(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	for i, b := range bytes {
		bytes[i] = referralCodeAlphabet[int(b)%len(referralCodeAlphabet)]
	}

	return string(bytes), nil
}
