package profile

func balanced() *Profile {
	return &Profile{
		Name:                "balanced",
		Description:         "Default leasing review: bottom fifth of the mall, three options each.",
		ThresholdPercentile: 20,
		MaxCandidates:       3,
		MinUplift:           0,
		MinCategorySupport:  1,
	}
}
