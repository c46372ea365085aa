package profile

func aggressive() *Profile {
	return &Profile{
		Name:                "aggressive",
		Description:         "Repositioning sweep: bottom third of the mall, every positive option.",
		ThresholdPercentile: 33,
		MaxCandidates:       0,
		MinUplift:           0,
		MinCategorySupport:  1,
	}
}
