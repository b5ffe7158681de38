package ranking

// Combine merges one developer's per-repository metrics into a single
// cross-repository view: every raw dimension sums across repositories,
// and recency takes the most recent (minimum days-since-last) value.
func Combine(perRepo []DeveloperMetrics) DeveloperMetrics {
	if len(perRepo) == 0 {
		return DeveloperMetrics{}
	}

	combined := DeveloperMetrics{
		Email:         perRepo[0].Email,
		Name:          perRepo[0].Name,
		Raw:           map[string]float64{},
		DaysSinceLast: perRepo[0].DaysSinceLast,
	}

	for _, m := range perRepo {
		combined.Commits += m.Commits

		if m.DaysSinceLast < combined.DaysSinceLast {
			combined.DaysSinceLast = m.DaysSinceLast
		}

		for dim, value := range m.Raw {
			combined.Raw[dim] += value
		}
	}

	return combined
}

// CombineAll groups per-repository developer metrics by lowercased email
// and combines each group, producing the input for the "combined" view's
// re-ranking pass.
func CombineAll(byRepo map[string][]DeveloperMetrics) []DeveloperMetrics {
	grouped := map[string][]DeveloperMetrics{}

	for _, devs := range byRepo {
		for _, d := range devs {
			key := normalizeEmail(d.Email)
			grouped[key] = append(grouped[key], d)
		}
	}

	combined := make([]DeveloperMetrics, 0, len(grouped))

	for _, perRepo := range grouped {
		combined = append(combined, Combine(perRepo))
	}

	return combined
}
