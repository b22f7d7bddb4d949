// Package memdb is an in-memory implementation of the db store methods,
// used by tests and by CLI runs without a database.
package memdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-ingest/internal/db"
)

// Store mirrors *db.DB behavior, including unique keys and find-or-nil
// lookups, behind a single mutex.
type Store struct {
	mu           sync.RWMutex
	companies    map[uuid.UUID]*db.Company
	jobs         map[uuid.UUID]*db.Job
	jobsByURL    map[string]uuid.UUID
	stream       map[string]*db.StreamEntry
	applications map[string]*db.Application
	configs      map[string]*db.ExtractionConfig
	contents     map[uuid.UUID]*db.RawContent
	contentBySHA map[string]uuid.UUID
	now          func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		companies:    make(map[uuid.UUID]*db.Company),
		jobs:         make(map[uuid.UUID]*db.Job),
		jobsByURL:    make(map[string]uuid.UUID),
		stream:       make(map[string]*db.StreamEntry),
		applications: make(map[string]*db.Application),
		configs:      make(map[string]*db.ExtractionConfig),
		contents:     make(map[uuid.UUID]*db.RawContent),
		contentBySHA: make(map[string]uuid.UUID),
		now:          time.Now,
	}
}

func pairKey(profileID string, jobID uuid.UUID) string {
	return profileID + "|" + jobID.String()
}

func configKey(hash string, version int) string {
	return fmt.Sprintf("%s|%d", hash, version)
}

// GetCompanyByID implements the company store.
func (s *Store) GetCompanyByID(_ context.Context, id uuid.UUID) (*db.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.companies[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

// GetCompanyByDomain implements the company store.
func (s *Store) GetCompanyByDomain(_ context.Context, domain string) (*db.Company, error) {
	domain = db.NormalizeDomain(domain)
	if domain == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.companies {
		if c.Domain != nil && *c.Domain == domain {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

// GetCompanyByJobsURL implements the company store.
func (s *Store) GetCompanyByJobsURL(_ context.Context, jobsURL string) (*db.Company, error) {
	jobsURL = strings.TrimSpace(jobsURL)
	if jobsURL == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var match *db.Company
	for _, c := range s.companies {
		if c.JobsURL != nil && *c.JobsURL == jobsURL {
			if match == nil || c.CreatedAt.Before(match.CreatedAt) {
				match = c
			}
		}
	}
	if match == nil {
		return nil, nil
	}
	cp := *match
	return &cp, nil
}

// CreateCompany implements the company store.
func (s *Store) CreateCompany(_ context.Context, in *db.CompanyCreateInput) (*db.Company, error) {
	domain := db.NormalizeDomain(in.Domain)
	if domain == "" {
		return nil, fmt.Errorf("company domain cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.companies {
		if c.Domain != nil && *c.Domain == domain {
			if c.JobsURL == nil {
				c.JobsURL = in.JobsURL
			}
			c.UpdatedAt = s.now()
			cp := *c
			return &cp, nil
		}
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = domain
	}
	now := s.now()
	c := &db.Company{
		ID:             uuid.New(),
		Name:           name,
		NameNormalized: db.NormalizeName(name),
		Domain:         &domain,
		JobsURL:        in.JobsURL,
		WebsiteURL:     in.WebsiteURL,
		Industry:       in.Industry,
		Size:           in.Size,
		Headquarters:   in.Headquarters,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.companies[c.ID] = c
	cp := *c
	return &cp, nil
}

// GetJobBySourceURL implements the job store.
func (s *Store) GetJobBySourceURL(_ context.Context, sourceURL string) (*db.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.jobsByURL[sourceURL]; ok {
		cp := *s.jobs[id]
		return &cp, nil
	}
	return nil, nil
}

// GetJobByID implements the job store.
func (s *Store) GetJobByID(_ context.Context, id uuid.UUID) (*db.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if j, ok := s.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

// CreateJob implements the job store.
func (s *Store) CreateJob(_ context.Context, in *db.JobCreateInput) (*db.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobsByURL[in.SourceURL]; ok {
		return nil, fmt.Errorf("job %s: %w", in.SourceURL, db.ErrDuplicate)
	}
	now := s.now()
	j := &db.Job{
		ID:                 uuid.New(),
		SourceURL:          in.SourceURL,
		Source:             in.Source,
		CompanyID:          in.CompanyID,
		CompanyName:        in.CompanyName,
		Title:              in.Data.Title,
		Data:               in.Data,
		CompletionState:    in.CompletionState,
		RawContentID:       in.RawContentID,
		ExtractionConfigID: in.ExtractionConfigID,
		Status:             db.JobStatusOpen,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.jobs[j.ID] = j
	s.jobsByURL[j.SourceURL] = j.ID
	cp := *j
	return &cp, nil
}

// ListOpenJobs implements the job store.
func (s *Store) ListOpenJobs(_ context.Context, limit int) ([]db.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var open []db.Job
	for _, j := range s.jobs {
		if j.Status == db.JobStatusOpen {
			open = append(open, *j)
		}
	}
	sort.Slice(open, func(a, b int) bool {
		ja, jb := open[a], open[b]
		switch {
		case ja.LastCheckedAt == nil && jb.LastCheckedAt != nil:
			return true
		case ja.LastCheckedAt != nil && jb.LastCheckedAt == nil:
			return false
		case ja.LastCheckedAt != nil && !ja.LastCheckedAt.Equal(*jb.LastCheckedAt):
			return ja.LastCheckedAt.Before(*jb.LastCheckedAt)
		}
		return ja.CreatedAt.Before(jb.CreatedAt)
	})
	if len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

// MarkJobChecked implements the job store.
func (s *Store) MarkJobChecked(_ context.Context, id uuid.UUID, closed bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil
	}
	j.LastCheckedAt = &at
	if closed {
		j.Status = db.JobStatusClosed
		j.ClosedAt = &at
	}
	j.UpdatedAt = s.now()
	return nil
}

// UpsertStreamEntry implements the stream store.
func (s *Store) UpsertStreamEntry(_ context.Context, profileID string, jobID uuid.UUID) (*db.StreamEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(profileID, jobID)
	if e, ok := s.stream[key]; ok {
		cp := *e
		return &cp, nil
	}
	e := &db.StreamEntry{ID: uuid.New(), ProfileID: profileID, JobID: jobID, CreatedAt: s.now()}
	s.stream[key] = e
	cp := *e
	return &cp, nil
}

// UpsertApplication implements the application store.
func (s *Store) UpsertApplication(_ context.Context, profileID string, jobID uuid.UUID, status string) (*db.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(profileID, jobID)
	now := s.now()
	if a, ok := s.applications[key]; ok {
		a.Status = status
		a.UpdatedAt = now
		cp := *a
		return &cp, nil
	}
	a := &db.Application{ID: uuid.New(), ProfileID: profileID, JobID: jobID, Status: status, CreatedAt: now, UpdatedAt: now}
	s.applications[key] = a
	cp := *a
	return &cp, nil
}

// GetExtractionConfig implements the extraction config store.
func (s *Store) GetExtractionConfig(_ context.Context, matchHash string, version int) (*db.ExtractionConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.configs[configKey(matchHash, version)]
	if !ok {
		return nil, nil
	}
	c.HitCount++
	cp := *c
	return &cp, nil
}

// UpsertExtractionConfig implements the extraction config store.
func (s *Store) UpsertExtractionConfig(_ context.Context, in *db.ExtractionConfigInput) (*db.ExtractionConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := configKey(in.MatchHash, in.Version)
	now := s.now()
	if c, ok := s.configs[key]; ok {
		c.Name = in.Name
		c.MatchPatterns = in.MatchPatterns
		c.ExtractRules = in.ExtractRules
		c.UpdatedAt = now
		cp := *c
		return &cp, nil
	}
	c := &db.ExtractionConfig{
		ID:            uuid.New(),
		Name:          in.Name,
		Version:       in.Version,
		MatchPatterns: in.MatchPatterns,
		MatchHash:     in.MatchHash,
		ExtractRules:  in.ExtractRules,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.configs[key] = c
	cp := *c
	return &cp, nil
}

// StoreContent implements the raw content store.
func (s *Store) StoreContent(_ context.Context, data []byte, contentType, bucket string) (uuid.UUID, error) {
	sum := db.HashContent(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.contentBySHA[sum]; ok {
		return id, nil
	}
	c := &db.RawContent{
		ID:          uuid.New(),
		Bucket:      bucket,
		ContentType: contentType,
		SHA256:      sum,
		SizeBytes:   len(data),
		Data:        append([]byte(nil), data...),
		CreatedAt:   s.now(),
	}
	s.contents[c.ID] = c
	s.contentBySHA[sum] = c.ID
	return c.ID, nil
}

// RetrieveContent implements the raw content store.
func (s *Store) RetrieveContent(_ context.Context, id uuid.UUID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.contents[id]; ok {
		return append([]byte(nil), c.Data...), nil
	}
	return nil, nil
}

// Counts reports row counts, for tests and CLI summaries.
func (s *Store) Counts() (companies, jobs, streamEntries, applications, configs int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.companies), len(s.jobs), len(s.stream), len(s.applications), len(s.configs)
}
