package wellca

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mamadbah2/wellca/internal/domain/models"
)

const (
	csrfTokenMeta  = `meta[name="_csrf"]`
	csrfHeaderMeta = `meta[name="_csrf_header"]`
)

// ErrCSRFNotFound is returned when the dashboard page carries no anti-forgery metadata.
var ErrCSRFNotFound = errors.New("csrf meta tags not found")

// DiscoverCSRF loads the dashboard page once and adopts the anti-forgery
// header name and token published in its meta tags. The session cookie set by
// the page stays in the client's cookie jar.
func (c *APIClient) DiscoverCSRF(ctx context.Context) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		Get(c.dashboardURL)
	if err != nil {
		return fmt.Errorf("load dashboard page: %w", err)
	}
	if !resp.IsSuccess() {
		return &models.FetchError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	header, token, err := parseCSRFMeta(resp.Body())
	if err != nil {
		return err
	}
	c.setCSRF(header, token)
	return nil
}

func parseCSRFMeta(page []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", "", fmt.Errorf("parse dashboard page: %w", err)
	}

	token, _ := doc.Find(csrfTokenMeta).First().Attr("content")
	header, _ := doc.Find(csrfHeaderMeta).First().Attr("content")
	token = strings.TrimSpace(token)
	header = strings.TrimSpace(header)
	if token == "" || header == "" {
		return "", "", ErrCSRFNotFound
	}
	return header, token, nil
}
