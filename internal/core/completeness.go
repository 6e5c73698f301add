package core

// ComputeCompleteness scores field coverage: 70% weight on
// the {name, contact, history} group, 30% on the {skills, languages,
// location, certifications, software} group, each group scored as the
// fraction of its members present on the profile.
func ComputeCompleteness(c *CandidateProfile) CompletenessAudit {
	coreGroup := []bool{
		c.Identity.FirstName != "" && c.Identity.LastName != "",
		c.Identity.Email != "" || c.Identity.Phone != "",
		len(c.Education) > 0 || len(c.Experience) > 0,
	}
	secondaryGroup := []bool{
		len(c.Skills) > 0,
		len(c.Languages) > 0,
		c.Identity.AddressCity != "" || c.Identity.AddressRegion != "",
		len(c.Certifications) > 0,
		len(c.Software) > 0,
	}

	score := 0.7*fractionTrue(coreGroup) + 0.3*fractionTrue(secondaryGroup)

	counts := map[string]int{
		"education":       len(c.Education),
		"experience":      len(c.Experience),
		"skills":          len(c.Skills),
		"languages":       len(c.Languages),
		"certifications":  len(c.Certifications),
		"software":        len(c.Software),
		"training":        len(c.Training),
		"driving_licenses": len(c.DrivingLicenses),
	}

	return CompletenessAudit{
		Score:         score,
		QualityLevel:  QualityLevelFor(score),
		SectionCounts: counts,
	}
}

func fractionTrue(bs []bool) float64 {
	if len(bs) == 0 {
		return 0
	}
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return float64(n) / float64(len(bs))
}

// QualityLevelFor buckets a completeness score into the five-tier scale
// from the completeness score.
func QualityLevelFor(score float64) string {
	switch {
	case score >= 0.9:
		return "excellent"
	case score >= 0.7:
		return "good"
	case score >= 0.5:
		return "fair"
	case score >= 0.3:
		return "poor"
	default:
		return "insufficient"
	}
}
