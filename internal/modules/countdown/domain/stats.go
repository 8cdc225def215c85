package domain

type Stats struct {
	TotalDays     int  `json:"totalDays"`
	PassedDays    int  `json:"passedDays"`
	RemainingDays int  `json:"remainingDays"`
	IsValid       bool `json:"isValid"`
}

// Project derives day counts for today. Inverted or empty ranges yield a
// zero Stats with IsValid false.
func Project(c Configuration, today Date) Stats {
	if c.StartDate.IsZero() || c.TargetDate.IsZero() {
		return Stats{}
	}
	total := c.StartDate.DaysUntil(c.TargetDate)
	if total < 0 {
		total = 0
	}
	passed := c.StartDate.DaysUntil(today)
	if passed < 0 {
		passed = 0
	}
	if passed > total {
		passed = total
	}
	return Stats{
		TotalDays:     total,
		PassedDays:    passed,
		RemainingDays: total - passed,
		IsValid:       total > 0 && c.TargetDate.After(c.StartDate),
	}
}
