package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultReportingFramework is applied when a profile names none.
	DefaultReportingFramework = "Ind AS"
	// DefaultBusinessSize is applied when a profile names none.
	DefaultBusinessSize = "small"
)

// CompanyProfile describes the company a chart of accounts is generated for.
// It is the immutable input of the generation pipeline.
type CompanyProfile struct {
	CompanyName          string           `json:"company_name" validate:"required,max=255"`
	NatureOfBusiness     string           `json:"nature_of_business" validate:"required"`
	Industry             string           `json:"industry" validate:"required,max=100"`
	Location             string           `json:"location" validate:"required,max=255"`
	CompanyType          string           `json:"company_type" validate:"required,max=100"`
	ReportingFramework   string           `json:"reporting_framework" validate:"max=100"`
	StatutoryCompliances []string         `json:"statutory_compliances"`
	BusinessSize         string           `json:"business_size,omitempty" validate:"omitempty,oneof=micro small medium large"`
	AnnualTurnover       *decimal.Decimal `json:"annual_turnover,omitempty"`
	EmployeeCount        *int             `json:"employee_count,omitempty" validate:"omitempty,min=0"`
}

// Normalize trims text fields, drops blank compliances and applies defaults.
func (p *CompanyProfile) Normalize() {
	p.CompanyName = strings.TrimSpace(p.CompanyName)
	p.NatureOfBusiness = strings.TrimSpace(p.NatureOfBusiness)
	p.Industry = strings.TrimSpace(p.Industry)
	p.Location = strings.TrimSpace(p.Location)
	p.CompanyType = strings.TrimSpace(p.CompanyType)
	p.ReportingFramework = strings.TrimSpace(p.ReportingFramework)
	p.BusinessSize = strings.ToLower(strings.TrimSpace(p.BusinessSize))

	if p.ReportingFramework == "" {
		p.ReportingFramework = DefaultReportingFramework
	}
	if p.BusinessSize == "" {
		p.BusinessSize = DefaultBusinessSize
	}

	compliances := make([]string, 0, len(p.StatutoryCompliances))
	for _, c := range p.StatutoryCompliances {
		if c = strings.TrimSpace(c); c != "" {
			compliances = append(compliances, c)
		}
	}
	p.StatutoryCompliances = compliances
}

// Validate validates the profile using the validator.
func (p *CompanyProfile) Validate() error {
	return AsValidationError(validate.Struct(p))
}

// ComplianceList renders the statutory compliances for prompts and logs.
func (p *CompanyProfile) ComplianceList() string {
	if len(p.StatutoryCompliances) == 0 {
		return "None specified"
	}
	return strings.Join(p.StatutoryCompliances, ", ")
}

// Defaults filled in for the legacy generation request, which carries only
// the company type, size and industry.
const (
	LegacyCompanyName = "Sample Company"
	LegacyLocation    = "India"
	LegacyDefault     = "general"
)

// LegacyCompliances are the statutory compliances assumed for a legacy
// generation request.
var LegacyCompliances = []string{"GST", "TDS", "PF", "ESI"}

// LegacyGenerateRequest is the body of the unauthenticated generation
// endpoint. Every field is optional.
type LegacyGenerateRequest struct {
	CompanyType  string `json:"company_type"`
	BusinessSize string `json:"business_size"`
	Industry     string `json:"industry"`
}

// Profile expands the request into a full, normalized company profile. The
// industry doubles as the nature of business.
func (r LegacyGenerateRequest) Profile() CompanyProfile {
	industry := strings.TrimSpace(r.Industry)
	if industry == "" {
		industry = LegacyDefault
	}
	companyType := strings.TrimSpace(r.CompanyType)
	if companyType == "" {
		companyType = LegacyDefault
	}

	p := CompanyProfile{
		CompanyName:          LegacyCompanyName,
		NatureOfBusiness:     industry,
		Industry:             industry,
		Location:             LegacyLocation,
		CompanyType:          companyType,
		ReportingFramework:   DefaultReportingFramework,
		StatutoryCompliances: append([]string(nil), LegacyCompliances...),
		BusinessSize:         r.BusinessSize,
	}
	p.Normalize()
	return p
}
