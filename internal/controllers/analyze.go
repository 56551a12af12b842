package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	localcontext "github.com/rahul4469/socialear/context"
	"github.com/rahul4469/socialear/internal/models"
	"github.com/rahul4469/socialear/internal/services"
	"github.com/rahul4469/socialear/internal/views"
)

// AnalyzeController serves the HTML form UI.
type AnalyzeController struct {
	analyzer    SentimentAnalyzer
	templates   AnalyzeTemplates
	development bool
	now         func() time.Time
}

// AnalyzeTemplates holds the templates for analysis pages.
type AnalyzeTemplates struct {
	Form *views.Template
}

// NewAnalyzeController builds the form controller. development marks the
// pages with an environment badge.
func NewAnalyzeController(analyzer SentimentAnalyzer, templates AnalyzeTemplates, development bool) *AnalyzeController {
	return &AnalyzeController{
		analyzer:    analyzer,
		templates:   templates,
		development: development,
		now:         time.Now,
	}
}

func (c *AnalyzeController) templateData(r *http.Request, title string) *views.TemplateData {
	return &views.TemplateData{
		Title:         title,
		CSRFField:     csrf.TemplateField(r),
		IsDevelopment: c.development,
	}
}

// AnalyzeFormData holds data for the analyze form template.
type AnalyzeFormData struct {
	Query   string
	Days    int
	MinDays int
	MaxDays int
	Result  *models.AnalysisResult
}

func newFormData(query string, days int) AnalyzeFormData {
	return AnalyzeFormData{
		Query:   query,
		Days:    days,
		MinDays: models.MinLookbackDays,
		MaxDays: models.MaxLookbackDays,
	}
}

// GetAnalyze renders the empty form.
func (c *AnalyzeController) GetAnalyze(w http.ResponseWriter, r *http.Request) {
	data := c.templateData(r, "SocialEar - News Sentiment")
	data.Info = "Enter keywords in English and choose how many days back to search."
	data.Data = newFormData("", models.MinLookbackDays)
	c.templates.Form.ExecuteHTTP(w, r, data)
}

// PostAnalyze runs an analysis over the last N days and renders the
// summary with a per-article table.
func (c *AnalyzeController) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		c.renderFormError(w, r, "", models.MinLookbackDays, http.StatusBadRequest, "Invalid form data")
		return
	}

	query := strings.TrimSpace(r.FormValue("query"))
	days, err := strconv.Atoi(r.FormValue("days"))
	if err != nil {
		days = models.MinLookbackDays
	}

	dateRange := models.LookbackRange(days, c.now())
	days = dateRange.Days()

	result, err := c.analyzer.Analyze(r.Context(), services.AnalyzeRequest{
		Query:    query,
		DateFrom: dateRange.FromString(),
		DateTo:   dateRange.ToString(),
	})
	if err != nil {
		status, kind := errorStatus(err)
		if status >= 500 {
			localcontext.Logger(r.Context()).Error("ui analysis failed", "kind", kind, "error", err)
		}
		c.renderFormError(w, r, query, days, status, formMessage(err))
		return
	}

	formData := newFormData(query, days)
	formData.Result = result

	data := c.templateData(r, "SocialEar - "+result.Query)
	data.Data = formData
	if result.Sentiment.Errors > 0 {
		data.Warning = strconv.Itoa(result.Sentiment.Errors) + " article(s) could not be classified."
	}

	c.templates.Form.ExecuteHTTP(w, r, data)
}

func (c *AnalyzeController) renderFormError(w http.ResponseWriter, r *http.Request, query string, days, status int, msg string) {
	data := c.templateData(r, "SocialEar - News Sentiment")
	data.Error = msg
	data.Data = newFormData(query, days)
	c.templates.Form.ExecuteHTTPWithStatus(w, r, status, data)
}

// formMessage turns a pipeline error into text for the form.
func formMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrQueryTooShort):
		return "Please enter at least 2 characters."
	case errors.Is(err, models.ErrNoArticlesFound):
		return "No articles found. Try different keywords or a longer period."
	case errors.Is(err, models.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, models.ErrUpstream):
		return "An error occurred: " + err.Error()
	default:
		return "An unexpected error occurred. Please try again."
	}
}
