package finder

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"waypoint/internal/logger"
	"waypoint/internal/search"
	"waypoint/internal/tool"
)

const defaultMaxJobs = 10

// posting age filters
var timeFilters = map[string]string{
	"DAY":   "r86400",
	"WEEK":  "r604800",
	"MONTH": "r2592000",
}

var workFromHome = map[string]string{
	"REMOTE":  "remote",
	"HYBRID":  "hybrid",
	"ON-SITE": "on-site",
}

// JobsInput is the argument shape of jobs_finder.
type JobsInput struct {
	Keywords        []string `json:"keywords" validate:"required,min=1,dive,required"`
	Location        string   `json:"location,omitempty"`
	ContractType    string   `json:"contract_type,omitempty"`
	ExperienceLevel []string `json:"experience_level,omitempty"`
	RemoteOptions   []string `json:"remote_options,omitempty" validate:"dive,oneof=REMOTE HYBRID ON-SITE"`
	PostedTime      string   `json:"posted_time,omitempty"`
	RequiredSkills  []string `json:"required_skills,omitempty"`
	MaxResults      int      `json:"max_results,omitempty" validate:"gte=0"`
}

func (in JobsInput) Validate() error {
	if in.PostedTime != "" {
		if _, ok := timeFilters[strings.ToUpper(in.PostedTime)]; !ok {
			return fmt.Errorf("posted_time must be one of DAY, WEEK, MONTH, got %q", in.PostedTime)
		}
	}
	return nil
}

type jobsArgs struct {
	Params JobsInput `json:"params" validate:"required"`
}

func (a jobsArgs) Validate() error { return a.Params.Validate() }

// NewJobsFinder returns the jobs_finder tool.
func NewJobsFinder(serp *search.SerpAPI) tool.Tool {
	return tool.NewTyped(tool.Spec[jobsArgs]{
		Name:        JobsFinder,
		Description: "Find jobs using the Google Jobs engine with skill and remote filtering.",
		BestPractices: `**jobs_finder**: pass several job title variants as keywords; they are OR-ed together.
Use posted_time WEEK for recent postings.`,
		Schema: paramsSchema(map[string]any{
			"keywords":         stringArray("List of job titles to search for"),
			"location":         str("Location for the job search (default France)"),
			"contract_type":    str("Contract type (Prestataire, Temps plein, Temps partiel, Stage)"),
			"experience_level": stringArray("Required experience levels"),
			"remote_options":   stringArray("Remote work options (REMOTE, HYBRID, ON-SITE)"),
			"posted_time":      enum("Job posting timeframe", "DAY", "WEEK", "MONTH"),
			"required_skills":  stringArray("Required skills for the position"),
		}, "keywords"),
		Handler: func(ctx context.Context, args jobsArgs) (*tool.Result, error) {
			return searchJobs(ctx, serp, args.Params), nil
		},
	})
}

// JobsQuery builds the SerpAPI parameters for in.
func JobsQuery(in JobsInput) url.Values {
	v := url.Values{}
	v.Set("google_domain", "google.fr")
	v.Set("q", strings.Join(in.Keywords, " OR "))
	v.Set("location", withDefaultString(in.Location, "France"))

	if chip, ok := timeFilters[strings.ToUpper(in.PostedTime)]; ok {
		v.Set("chips", chip)
	}

	var remote []string
	for _, opt := range in.RemoteOptions {
		if wfh, ok := workFromHome[opt]; ok {
			remote = append(remote, wfh)
		}
	}
	if len(remote) > 0 {
		v.Set("work_from_home", strings.Join(remote, ","))
	}
	return v
}

func searchJobs(ctx context.Context, serp *search.SerpAPI, in JobsInput) *tool.Result {
	log := logger.FromContext(ctx)
	log.Info("🔍 Starting job search for %v in %s", in.Keywords, withDefaultString(in.Location, "France"))

	q := JobsQuery(in)
	params := echo(q)
	params["contract_type"] = in.ContractType
	if len(in.ExperienceLevel) > 0 {
		params["experience_level"] = in.ExperienceLevel
	}
	if len(in.RequiredSkills) > 0 {
		params["required_skills"] = in.RequiredSkills
	}

	doc, err := serp.Search(ctx, search.EngineJobs, q)
	if err != nil {
		log.Error("Error in job search: %v", err)
		return envelopeResult(search.Failure(err, params))
	}

	raw, ok := doc["jobs_results"]
	if !ok {
		log.Warn("No jobs found")
		return envelopeResult(search.NoResults("No jobs found for these criteria", params))
	}

	jobs := search.FilterBySkills(search.Objects(raw), in.RequiredSkills)
	log.Info("✨ Found %d jobs", len(jobs))
	if len(jobs) == 0 {
		return envelopeResult(search.NoResults("No jobs mention the required skills", params))
	}

	return envelopeResult(search.Success(search.Limit(jobs, withDefault(in.MaxResults, defaultMaxJobs)), len(jobs), params))
}
