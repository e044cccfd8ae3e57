// jwkscheck.go — проверка готовности внешнего IdP для readiness probe.
// Отдельного health endpoint у IdP может не быть, поэтому проверяется
// доступность самого JWKS endpoint: без него аутентификация не работает.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// JWKSReadinessChecker — проверка доступности JWKS endpoint IdP.
// Реализует интерфейс handlers.ReadinessChecker.
type JWKSReadinessChecker struct {
	url    string
	client *http.Client
}

// NewJWKSReadinessChecker создаёт проверку готовности IdP.
func NewJWKSReadinessChecker(jwksURL string, timeout time.Duration) *JWKSReadinessChecker {
	return &JWKSReadinessChecker{
		url:    jwksURL,
		client: &http.Client{Timeout: timeout},
	}
}

// CheckReady выполняет GET к JWKS endpoint.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *JWKSReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "fail", fmt.Sprintf("некорректный JWKS URL: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "fail", fmt.Sprintf("IdP недоступен: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "fail", fmt.Sprintf("JWKS endpoint вернул статус %d", resp.StatusCode)
	}
	return "ok", ""
}
