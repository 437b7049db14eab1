package notify

import (
	"fmt"
	"strings"

	"github.com/agroflow/irrigation-advisor/internal/predict"
)

// ConfidenceLabel discretizes a confidence score for farmer-facing text.
func ConfidenceLabel(confidence float64) string {
	switch {
	case confidence >= 0.75:
		return "HIGH"
	case confidence >= 0.5:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// template holds one language's message fragments.
type template struct {
	today      string // crop, quantity
	future     string // crop, days, quantity
	confidence string // label
	degraded   string
	lowConf    string
}

// defaultLanguage is used when a farmer's language has no translation.
const defaultLanguage = "en"

var templates = map[string]template{
	"en": {
		today:      "Water your %s today with %.0f mm.",
		future:     "Water your %s in %d day(s) with %.0f mm.",
		confidence: "Confidence: %s.",
		degraded:   "Note: based on older weather data, accuracy may be reduced.",
		lowConf:    "Note: low confidence, verify field conditions before irrigating.",
	},
	"hi": {
		today:      "अपनी %s को आज %.0f mm पानी दें।",
		future:     "अपनी %s को %d दिन में %.0f mm पानी दें।",
		confidence: "विश्वसनीयता: %s।",
		degraded:   "ध्यान दें: पुराने मौसम डेटा पर आधारित, सटीकता कम हो सकती है।",
		lowConf:    "ध्यान दें: कम विश्वसनीयता, सिंचाई से पहले खेत की स्थिति जांचें।",
	},
	"sw": {
		today:      "Mwagilia %s yako leo kwa mm %.0f.",
		future:     "Mwagilia %s yako baada ya siku %d kwa mm %.0f.",
		confidence: "Uhakika: %s.",
		degraded:   "Kumbuka: imetumia data ya hali ya hewa ya zamani, usahihi unaweza kupungua.",
		lowConf:    "Kumbuka: uhakika mdogo, kagua shamba kabla ya kumwagilia.",
	},
}

// FormatMessage renders a localized recommendation. An unknown language falls
// back to the default without failing.
func FormatMessage(lang, cropName string, res predict.Result) string {
	tpl, ok := templates[strings.ToLower(lang)]
	if !ok {
		tpl = templates[defaultLanguage]
	}

	var b strings.Builder
	if res.TimingDays == 0 {
		fmt.Fprintf(&b, tpl.today, cropName, res.QuantityMM)
	} else {
		fmt.Fprintf(&b, tpl.future, cropName, res.TimingDays, res.QuantityMM)
	}
	b.WriteString(" ")
	b.WriteString(res.Reasoning)
	b.WriteString(" ")
	fmt.Fprintf(&b, tpl.confidence, ConfidenceLabel(res.Confidence))

	if res.AccuracyDegraded {
		b.WriteString(" ")
		b.WriteString(tpl.degraded)
	}
	if res.LowConfidence {
		b.WriteString(" ")
		b.WriteString(tpl.lowConf)
	}
	return b.String()
}
