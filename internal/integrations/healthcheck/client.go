package healthcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client клиент health-check эндпоинта бэкенда
type Client struct {
	url        string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента
func NewClient(url string, timeout time.Duration, log Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// Ping проверяет доступность бэкенда
// nil - бэкенд доступен, ErrUnavailable - недоступен
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	// Обработка статус-кодов
	switch {
	case resp.StatusCode == http.StatusOK:
		// Продолжаем обработку
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status code %d", ErrUnavailable, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	// Тело необязательно, но если есть - проверяем статус
	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	if health.Status != "" && !strings.EqualFold(health.Status, StatusOK) {
		c.log.Warn("Backend reports status=%s", health.Status)
		return fmt.Errorf("%w: backend status %q", ErrUnavailable, health.Status)
	}

	return nil
}
