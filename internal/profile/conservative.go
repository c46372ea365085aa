package profile

// conservative only flags the weakest units and proposes well-evidenced
// categories with a material uplift.
func conservative() *Profile {
	return &Profile{
		Name:                "conservative",
		Description:         "Flag only the weakest units and propose well-evidenced categories.",
		ThresholdPercentile: 10,
		MaxCandidates:       2,
		MinUplift:           50,
		MinCategorySupport:  3,
	}
}
