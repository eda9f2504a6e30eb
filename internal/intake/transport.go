package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"land-portal/parcel-portal/parcel-portal-backend/internal/draft"
)

// Transport delivers a payload to the intake service
type Transport interface {
	Send(ctx context.Context, p *Payload) (map[string]interface{}, error)
}

// TransportError is returned for a non-2xx intake response
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("intake responded with status %d", e.StatusCode)
}

// HTTPTransport posts the payload as multipart form data
type HTTPTransport struct {
	endpoint string
	client   *http.Client
}

// NewHTTPTransport creates a transport for endpoint
func NewHTTPTransport(endpoint string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Send posts p and decodes the JSON response
func (t *HTTPTransport) Send(ctx context.Context, p *Payload) (map[string]interface{}, error) {
	body, contentType, err := EncodeMultipart(p)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach intake: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read intake response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	out := map[string]interface{}{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("failed to decode intake response: %w", err)
		}
	}
	return out, nil
}

// EncodeMultipart renders p as a multipart body using the intake field names
func EncodeMultipart(p *Payload) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	coordinates, err := json.Marshal(p.Coordinates)
	if err != nil {
		return nil, "", fmt.Errorf("encode coordinates: %w", err)
	}
	texts := p.SupportingTexts
	if texts == nil {
		texts = []string{}
	}
	supportingTexts, err := json.Marshal(texts)
	if err != nil {
		return nil, "", fmt.Errorf("encode supporting texts: %w", err)
	}

	fields := []struct{ name, value string }{
		{"titleNumber", p.TitleNumber},
		{"county", p.County},
		{"landSize", p.LandSize},
		{"landSizeUnit", p.LandSizeUnit},
		{"deedPlanText", p.DeedPlan.Text},
		{"surveyPlanText", p.SurveyPlan.Text},
		{"coordinates", string(coordinates)},
		{"supportingDocsTexts", string(supportingTexts)},
		{"areaSquareMeters", strconv.FormatFloat(p.AreaSquareMeters, 'f', 2, 64)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	if p.DeedPlan.File != nil {
		if err := writeFile(w, "deedPlanFile", p.DeedPlan.File); err != nil {
			return nil, "", err
		}
	}
	if p.SurveyPlan.File != nil {
		if err := writeFile(w, "surveyPlanFile", p.SurveyPlan.File); err != nil {
			return nil, "", err
		}
	}
	for i := range p.SupportingFiles {
		if err := writeFile(w, fmt.Sprintf("supportingDocs_%d", i), &p.SupportingFiles[i]); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field string, a *draft.Attachment) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, escapeQuotes(a.Name)))
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", field, err)
	}
	if _, err := part.Write(a.Data); err != nil {
		return fmt.Errorf("write part %s: %w", field, err)
	}
	return nil
}

func escapeQuotes(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
