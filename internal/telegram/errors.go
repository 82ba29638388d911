package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// APIError - ответ Bot API с ok=false.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// TooManyRequestsError - 429 от Bot API. RetryAfter - сколько ждать перед повтором.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e *TooManyRequestsError) Error() string {
	return fmt.Sprintf("telegram: too many requests, retry after %s", e.RetryAfter)
}

var retryAfterRe = regexp.MustCompile(`retry after (\d+)`)

// convertError приводит ошибки tgbotapi к APIError и TooManyRequestsError.
// url.Error разворачивается: в нём адрес с токеном.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	if tgErr, ok := apiErrorOf(err); ok {
		if tgErr.Code == http.StatusTooManyRequests {
			seconds := tgErr.RetryAfter
			if seconds == 0 {
				if m := retryAfterRe.FindStringSubmatch(tgErr.Message); m != nil {
					seconds, _ = strconv.Atoi(m[1])
				}
			}
			if seconds <= 0 {
				seconds = 1
			}
			return &TooManyRequestsError{RetryAfter: time.Duration(seconds) * time.Second}
		}
		return &APIError{Code: tgErr.Code, Description: tgErr.Message}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func apiErrorOf(err error) (tgbotapi.Error, bool) {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return val, true
	}
	return tgbotapi.Error{}, false
}
