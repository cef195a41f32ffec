package ai

// Focus vocabularies offered to the classifier. Free-form answers outside
// these lists are kept as-is; the lists only steer the model.
var (
	SectorVocabulary = []string{
		"AI",
		"B2B SaaS",
		"Climate",
		"Consumer",
		"Deep Tech",
		"E-commerce",
		"EdTech",
		"Fintech",
		"HealthTech",
		"Logistics",
		"Marketplaces",
		"Mobility",
		"PropTech",
	}

	StageVocabulary = []string{
		"Pre-Seed",
		"Seed",
		"Series A",
		"Series B",
		"Growth",
	}
)
