package coa

import (
	"encoding/json"

	"github.com/saimjr/accounting-assistant/internal/prompts"
	"github.com/saimjr/accounting-assistant/internal/types"
)

// BuildPrompt renders the instruction for a stage from the company profile
// and the structure accumulated so far. Only the latest prior structure is
// rendered since each stage's output already contains its predecessors'.
func BuildPrompt(stage Stage, profile types.CompanyProfile, prior ...Structure) string {
	data := map[string]string{
		"CompanyName":        profile.CompanyName,
		"NatureOfBusiness":   profile.NatureOfBusiness,
		"Industry":           profile.Industry,
		"Location":           profile.Location,
		"CompanyType":        profile.CompanyType,
		"ReportingFramework": profile.ReportingFramework,
		"Compliances":        profile.ComplianceList(),
	}
	data["Profile"] = prompts.Format(prompts.MustGet(prompts.COAFile, "profile"), data)

	var latest Structure
	if len(prior) > 0 {
		latest = prior[len(prior)-1]
	}
	data["Structure"] = renderStructure(latest)

	return prompts.Format(prompts.MustGet(prompts.COAFile, stageSpecs[stage].promptKey), data)
}

func renderStructure(s Structure) string {
	if len(s) == 0 {
		return "{}"
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
