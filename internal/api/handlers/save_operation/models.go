package save_operation

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/m04kA/SMC-SaveSync/internal/service/savequeue"
)

// maxRetriesLimit верхняя граница maxRetries из запроса
const maxRetriesLimit = 20

// parseSaveOptions читает immediate, critical и maxRetries из query
func parseSaveOptions(q url.Values) (savequeue.SaveOptions, error) {
	var opts savequeue.SaveOptions
	var err error

	if v := q.Get("immediate"); v != "" {
		if opts.Immediate, err = strconv.ParseBool(v); err != nil {
			return opts, fmt.Errorf("immediate: %w", err)
		}
	}

	if v := q.Get("critical"); v != "" {
		if opts.Critical, err = strconv.ParseBool(v); err != nil {
			return opts, fmt.Errorf("critical: %w", err)
		}
	}

	if v := q.Get("maxRetries"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("maxRetries: %w", err)
		}
		if n < 1 || n > maxRetriesLimit {
			return opts, fmt.Errorf("maxRetries: must be in [1, %d], got %d", maxRetriesLimit, n)
		}
		opts.MaxRetries = n
	}

	return opts, nil
}
