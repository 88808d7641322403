// Package strava is a minimal client for the pieces of the Strava v3 API
// the uploader needs: the current athlete and activity uploads with
// asynchronous processing.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://www.strava.com/api/v3"

// Client calls the Strava API through an injected HTTP client; in
// production that client carries the OAuth transport.
type Client struct {
	// BaseURL may be overridden in tests.
	BaseURL string

	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Athlete is the authenticated user's identity.
type Athlete struct {
	ID        int64  `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// CurrentAthlete fetches the identity behind the credential. A failure
// here means the credential is unusable.
func (c *Client) CurrentAthlete(ctx context.Context) (*Athlete, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/athlete", nil)
	if err != nil {
		return nil, fmt.Errorf("building athlete request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching athlete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetching athlete: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var athlete Athlete
	if err := json.NewDecoder(resp.Body).Decode(&athlete); err != nil {
		return nil, fmt.Errorf("decoding athlete: %w", err)
	}
	return &athlete, nil
}

// UploadRequest describes one activity submission.
type UploadRequest struct {
	File         io.Reader
	Name         string
	Description  string
	ActivityType string
	ExternalID   string
}

// uploadStatus mirrors the Strava upload resource.
type uploadStatus struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	ActivityID int64  `json:"activity_id"`
	Status     string `json:"status"`
	Error      string `json:"error"`
}

// Upload is the handle for one submitted activity. Strava processes
// uploads asynchronously; poll until Processing is false, then check
// Failed.
type Upload struct {
	client *Client
	status uploadStatus
}

// UploadActivity submits a GPX document as a multipart form.
func (c *Client) UploadActivity(ctx context.Context, req UploadRequest) (*Upload, error) {
	body := &strings.Builder{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", req.ExternalID+".gpx")
	if err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := io.Copy(part, req.File); err != nil {
		return nil, fmt.Errorf("reading gpx for upload: %w", err)
	}
	writer.WriteField("data_type", "gpx")
	writer.WriteField("name", req.Name)
	writer.WriteField("description", req.Description)
	writer.WriteField("activity_type", req.ActivityType)
	writer.WriteField("external_id", req.ExternalID)
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/uploads", strings.NewReader(body.String()))
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("submitting upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upload failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var status uploadStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	c.logger.Debug("Upload submitted", "upload_id", status.ID, "status", status.Status)
	return &Upload{client: c, status: status}, nil
}

// Processing reports whether Strava is still working on the upload.
func (u *Upload) Processing() bool {
	return u.status.Error == "" && u.status.ActivityID == 0
}

// Poll refreshes the upload status.
func (u *Upload) Poll(ctx context.Context) error {
	url := fmt.Sprintf("%s/uploads/%d", u.client.BaseURL, u.status.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building poll request: %w", err)
	}
	resp, err := u.client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polling upload %d: %w", u.status.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("polling upload %d: status %d: %s", u.status.ID, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&u.status); err != nil {
		return fmt.Errorf("decoding poll response: %w", err)
	}
	return nil
}

// Failed reports whether processing ended in an error.
func (u *Upload) Failed() bool {
	return u.status.Error != ""
}

// Err returns the processing error, if any.
func (u *Upload) Err() error {
	if u.status.Error == "" {
		return nil
	}
	return fmt.Errorf("strava rejected upload %d: %s", u.status.ID, u.status.Error)
}

// ActivityID returns the created activity's id once processing is done.
func (u *Upload) ActivityID() int64 {
	return u.status.ActivityID
}
