package datasource

import (
	"context"
	"encoding/json"
	"strings"

	"live-stats/src/helpers"
	"live-stats/src/interfaces"
	"live-stats/src/logger"
	"live-stats/src/models"
	"live-stats/src/utils"
)

// LiveStatsSource is the REST side of the stats server: full snapshots and mood submission.
type LiveStatsSource struct {
	Config      *models.MConfig
	Network     interfaces.INetworkManager
	Credentials interfaces.ICredentialProvider
	Logger      *logger.Logger
}

// -----------------------------------------------------------------------------

func NewLiveStatsSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, creds interfaces.ICredentialProvider) *LiveStatsSource {
	return &LiveStatsSource{
		Config:      cfg,
		Network:     netMgr,
		Credentials: creds,
		Logger:      logger.NewLogger(cfg, "LiveStatsSource"),
	}
}

// -----------------------------------------------------------------------------

// Name returns the unique identifier of the source
func (s *LiveStatsSource) Name() string {
	return "rest"
}

// -----------------------------------------------------------------------------

// FetchSnapshot retrieves a complete snapshot for the scope
func (s *LiveStatsSource) FetchSnapshot(ctx context.Context, params models.MParams) (*models.MSnapshot, error) {
	query := map[string]string{
		"country": params.Country,
		"locale":  params.Locale,
	}

	body, err := s.Network.Get(ctx, s.endpoint(s.Config.API.LivePath), query, s.headers(params.Locale, false))
	if err != nil {
		return nil, helpers.NewFetchError("failed to fetch live stats", err)
	}

	snapshot, err := DecodeSnapshot(body)
	if err != nil {
		return nil, helpers.NewFetchError("failed to decode live stats", err)
	}

	s.Logger.Debug("Fetched snapshot %s/%s with %d votes", snapshot.Scope, snapshot.Date, snapshot.TotalCount)
	return snapshot, nil
}

// -----------------------------------------------------------------------------

// SubmitMood posts a mood. Server-side rejections come back as *helpers.APIError.
func (s *LiveStatsSource) SubmitMood(ctx context.Context, req models.MSubmitMoodRequest, locale string) (*models.MSubmitMoodResponse, error) {
	body, err := s.Network.PostJSON(ctx, s.endpoint(s.Config.API.MoodPath), req, s.headers(locale, true))
	if err != nil {
		return nil, err
	}

	var resp models.MSubmitMoodResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.NewDecodeError("failed to decode mood response", err)
	}
	return &resp, nil
}

// -----------------------------------------------------------------------------

func (s *LiveStatsSource) endpoint(path string) string {
	return strings.TrimRight(s.Config.API.BaseURL, "/") + path
}

func (s *LiveStatsSource) headers(locale string, withAuth bool) map[string]string {
	h := make(map[string]string)
	if locale != "" {
		h["Accept-Language"] = utils.BuildAcceptLanguage(locale)
	}
	if withAuth && s.Credentials != nil {
		if token := s.Credentials.CurrentCredential(); token != "" {
			h["Authorization"] = "Bearer " + token
		}
	}
	return h
}

// -----------------------------------------------------------------------------

// DecodeSnapshot parses a full snapshot body and normalizes empty fields.
func DecodeSnapshot(body []byte) (*models.MSnapshot, error) {
	var snapshot models.MSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, err
	}
	if snapshot.Scope == "" {
		snapshot.Scope = models.DefaultScope
	}
	if snapshot.Top == nil {
		snapshot.Top = []string{}
	}
	if snapshot.Totals == nil {
		snapshot.Totals = []models.MTotal{}
	}
	return &snapshot, nil
}
