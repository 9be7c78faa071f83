package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nornex-as/portal/internal/models"
)

// orgNumberWeights are the weights used by the national business registry's
// mod-11 check digit scheme for nine-digit organization numbers.
var orgNumberWeights = [8]int{3, 2, 7, 6, 5, 4, 3, 2}

// ValidOrgNumber reports whether s is a valid nine-digit organization number.
// The last digit is a mod-11 check digit over the first eight.
func ValidOrgNumber(s string) bool {
	if len(s) != 9 {
		return false
	}

	sum := 0
	for i := 0; i < 8; i++ {
		d := s[i]
		if d < '0' || d > '9' {
			return false
		}
		sum += int(d-'0') * orgNumberWeights[i]
	}

	check := s[8]
	if check < '0' || check > '9' {
		return false
	}

	remainder := sum % 11
	if remainder == 0 {
		return check == '0'
	}
	control := 11 - remainder
	if control == 10 {
		// No valid check digit exists for these eight digits
		return false
	}
	return int(check-'0') == control
}

// CompanyLookupResult is what the registry returns for an organization number
type CompanyLookupResult struct {
	OrgNumber   string `json:"org_number"`
	CompanyName string `json:"company_name"`
	Industry    string `json:"industry,omitempty"`
	Street      string `json:"street,omitempty"`
	Zip         string `json:"zip,omitempty"`
	City        string `json:"city,omitempty"`
}

// brregUnit mirrors the fields we use from the registry's unit document
type brregUnit struct {
	Organisasjonsnummer string `json:"organisasjonsnummer"`
	Navn                string `json:"navn"`
	Naeringskode1       struct {
		Beskrivelse string `json:"beskrivelse"`
	} `json:"naeringskode1"`
	Forretningsadresse struct {
		Adresse  []string `json:"adresse"`
		Postnr   string   `json:"postnummer"`
		Poststed string   `json:"poststed"`
	} `json:"forretningsadresse"`
}

// CompanyLookupService resolves organization numbers against the public
// business registry, used to prefill company details during registration.
type CompanyLookupService struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCompanyLookupService creates a new CompanyLookupService. baseURL should
// point at the registry's enhetsregisteret API root.
func NewCompanyLookupService(baseURL string, logger *slog.Logger) *CompanyLookupService {
	return &CompanyLookupService{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Lookup fetches registry details for an organization number
func (s *CompanyLookupService) Lookup(ctx context.Context, orgNumber string) (*CompanyLookupResult, error) {
	if !ValidOrgNumber(orgNumber) {
		return nil, fmt.Errorf("%w: invalid organization number", models.ErrBadRequest)
	}

	endpoint := fmt.Sprintf("%s/enheter/%s", s.baseURL, url.PathEscape(orgNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, models.ErrInternalServer
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("company registry request failed", slog.String("org_number", orgNumber), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, models.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		s.logger.Error("company registry returned unexpected status",
			slog.String("org_number", orgNumber),
			slog.Int("status", resp.StatusCode))
		return nil, models.ErrInternalServer
	}

	var unit brregUnit
	if err := json.NewDecoder(resp.Body).Decode(&unit); err != nil {
		s.logger.Error("failed to decode registry response", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	result := &CompanyLookupResult{
		OrgNumber:   unit.Organisasjonsnummer,
		CompanyName: unit.Navn,
		Industry:    unit.Naeringskode1.Beskrivelse,
		Zip:         unit.Forretningsadresse.Postnr,
		City:        unit.Forretningsadresse.Poststed,
	}
	if len(unit.Forretningsadresse.Adresse) > 0 {
		result.Street = unit.Forretningsadresse.Adresse[0]
	}

	return result, nil
}
