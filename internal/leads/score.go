package leads

// Lead tiers by score.
const (
	TierHot  = "HOT"
	TierWarm = "WARM"
	TierCold = "COLD"
)

// Score rates how serious a lead looks from what they did and the size
// of the estimate they were holding.
func Score(p Payload) (score int, tier string) {
	switch p.Action {
	case ActionPDF:
		score += 20
	case ActionEmail:
		score += 30
	case ActionWhatsApp:
		score += 25
	case ActionSave:
		score += 15
	}

	if p.UserID != "" && p.UserID != "Guest" {
		score += 20
	}

	var total float64
	if p.Estimate != nil {
		total = p.Estimate.Total
	}
	switch {
	case total > 2_000_000:
		score += 40
	case total > 1_000_000:
		score += 30
	case total > 500_000:
		score += 20
	case total > 0:
		score += 10
	}

	if p.Estimate != nil {
		switch p.Estimate.Quality {
		case "premium":
			score += 15
		case "standard":
			score += 10
		case "light":
			score += 5
		}
	}

	if len(p.Notes) > 50 {
		score += 15
	}

	switch {
	case score >= 70:
		tier = TierHot
	case score >= 40:
		tier = TierWarm
	default:
		tier = TierCold
	}
	return score, tier
}
