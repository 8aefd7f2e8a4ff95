// Package upstream talks to the external gradebook platform. The platform is
// an external collaborator: this package only reads, and every call is
// parameterized by the user whose data is being fetched so identity never
// leaks in through ambient state.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/config"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/pkg/apperrors"
)

// Client is the read contract against the upstream gradebook. An empty
// category list from ListGradingCategories is a valid state, not an error;
// transport failures are reported as errors.
type Client interface {
	ListSections(ctx context.Context, targetUserID int64) ([]models.Section, error)
	ListAssignments(ctx context.Context, sectionID, targetUserID int64) ([]models.Assignment, error)
	ListGrades(ctx context.Context, sectionID, targetUserID int64) ([]models.GradeRecord, error)
	ListGradingCategories(ctx context.Context, sectionID, targetUserID int64) ([]models.GradingCategory, error)
}

// HTTPClient implements Client against the signed HTTP API.
type HTTPClient struct {
	baseURL    string
	signer     *Signer
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPClient creates a client with the configured base URL, credentials
// and call timeout.
func NewHTTPClient(cfg *config.Config, log zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.Upstream.BaseURL,
		signer:  NewSigner(cfg.Upstream.KeyID, cfg.Upstream.Secret),
		httpClient: &http.Client{
			Timeout: cfg.UpstreamTimeout(),
		},
		log: log,
	}
}

type sectionWire struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Teacher string `json:"teacher,omitempty"`
}

type assignmentWire struct {
	ID         int64   `json:"id"`
	CategoryID int64   `json:"grading_category_id,omitempty"`
	Title      string  `json:"title"`
	MaxPoints  float64 `json:"max_points"`
	DueUnix    int64   `json:"due,omitempty"`
}

type gradeWire struct {
	AssignmentID int64    `json:"assignment_id"`
	UserID       int64    `json:"user_id"`
	EarnedPoints *float64 `json:"grade,omitempty"`
	MaxPoints    float64  `json:"max_points"`
	Timestamp    int64    `json:"timestamp,omitempty"`
	Comment      string   `json:"comment,omitempty"`
}

type categoryWire struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Weight          float64 `json:"weight"`
	CalculationType string  `json:"calculation_type,omitempty"`
}

// ListSections fetches the sections the target user is enrolled in.
func (c *HTTPClient) ListSections(ctx context.Context, targetUserID int64) ([]models.Section, error) {
	var envelope struct {
		Sections []sectionWire `json:"sections"`
	}
	path := fmt.Sprintf("/v1/users/%d/sections", targetUserID)
	if err := c.get(ctx, path, targetUserID, &envelope); err != nil {
		return nil, err
	}

	sections := make([]models.Section, 0, len(envelope.Sections))
	for _, w := range envelope.Sections {
		sections = append(sections, models.Section{
			ID:          w.ID,
			Title:       w.Title,
			TeacherName: w.Teacher,
		})
	}
	return sections, nil
}

// ListAssignments fetches all assignments of one section.
func (c *HTTPClient) ListAssignments(ctx context.Context, sectionID, targetUserID int64) ([]models.Assignment, error) {
	var envelope struct {
		Assignments []assignmentWire `json:"assignments"`
	}
	path := fmt.Sprintf("/v1/sections/%d/assignments", sectionID)
	if err := c.get(ctx, path, targetUserID, &envelope); err != nil {
		return nil, err
	}

	assignments := make([]models.Assignment, 0, len(envelope.Assignments))
	for _, w := range envelope.Assignments {
		a := models.Assignment{
			ID:         w.ID,
			SectionID:  sectionID,
			CategoryID: w.CategoryID,
			Title:      w.Title,
			MaxPoints:  w.MaxPoints,
		}
		if w.DueUnix > 0 {
			a.DueDate = time.Unix(w.DueUnix, 0).UTC()
		}
		assignments = append(assignments, a)
	}
	return assignments, nil
}

// ListGrades fetches the target user's grade records for one section.
func (c *HTTPClient) ListGrades(ctx context.Context, sectionID, targetUserID int64) ([]models.GradeRecord, error) {
	var envelope struct {
		Grades []gradeWire `json:"grades"`
	}
	path := fmt.Sprintf("/v1/sections/%d/grades", sectionID)
	if err := c.get(ctx, path, targetUserID, &envelope); err != nil {
		return nil, err
	}

	records := make([]models.GradeRecord, 0, len(envelope.Grades))
	for _, w := range envelope.Grades {
		r := models.GradeRecord{
			AssignmentID: w.AssignmentID,
			UserID:       w.UserID,
			EarnedPoints: w.EarnedPoints,
			MaxPoints:    w.MaxPoints,
			Comment:      w.Comment,
		}
		// Timestamp zero means upstream has no submission time for the record.
		if w.Timestamp > 0 {
			r.SubmittedAt = time.Unix(w.Timestamp, 0).UTC()
		}
		records = append(records, r)
	}
	return records, nil
}

// ListGradingCategories fetches the section's grading categories. Sections
// without configured categories return an empty slice and no error.
func (c *HTTPClient) ListGradingCategories(ctx context.Context, sectionID, targetUserID int64) ([]models.GradingCategory, error) {
	var envelope struct {
		GradingCategories []categoryWire `json:"grading_categories"`
	}
	path := fmt.Sprintf("/v1/sections/%d/grading_categories", sectionID)
	if err := c.get(ctx, path, targetUserID, &envelope); err != nil {
		return nil, err
	}

	categories := make([]models.GradingCategory, 0, len(envelope.GradingCategories))
	for _, w := range envelope.GradingCategories {
		categories = append(categories, models.GradingCategory{
			ID:              w.ID,
			SectionID:       sectionID,
			Title:           w.Title,
			WeightPercent:   w.Weight,
			CalculationType: w.CalculationType,
		})
	}
	return categories, nil
}

// get performs a signed GET with the run-as header and decodes the body into
// out. No inline retries: rate limits and transport failures are the
// caller's problem to surface.
func (c *HTTPClient) get(ctx context.Context, path string, targetUserID int64, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create upstream request: %w", err)
	}

	c.signer.Sign(req)
	if targetUserID > 0 {
		req.Header.Set(runAsHeader, strconv.FormatInt(targetUserID, 10))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("Upstream request failed")
		return apperrors.NewUpstreamError(err, "upstream request failed")
	}
	defer resp.Body.Close()

	if err := mapStatus(resp.StatusCode, path); err != nil {
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("Upstream returned error status")
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewUpstreamError(err, "failed to decode upstream response")
	}
	return nil
}

// mapStatus translates upstream HTTP status codes into the error taxonomy.
func mapStatus(status int, path string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return apperrors.ErrUpstreamUnauthorized
	case status == http.StatusForbidden:
		return apperrors.ErrUpstreamForbidden
	case status == http.StatusTooManyRequests:
		return apperrors.ErrRateLimited
	case status == http.StatusNotFound:
		return apperrors.NewCustomError(apperrors.ErrSectionNotFound, fmt.Sprintf("upstream has no resource at %s", path))
	default:
		return apperrors.NewUpstreamError(fmt.Errorf("HTTP %d", status), "upstream returned an error status")
	}
}
