package prompt

import (
	"fmt"
	"strconv"
	"strings"
)

// Options steer the tone and context of generated data. Zero values are
// omitted; Realistic and Diverse default to on when nil.
type Options struct {
	Realistic    *bool   `json:"realistic,omitempty"`
	Diverse      *bool   `json:"diverse,omitempty"`
	Region       string  `json:"region,omitempty"`
	Country      string  `json:"country,omitempty"`
	Language     string  `json:"language,omitempty"`
	AgeRange     *[2]int `json:"age_range,omitempty"`
	Gender       string  `json:"gender,omitempty"`
	Industry     string  `json:"industry,omitempty"`
	BusinessSize string  `json:"business_size,omitempty"`
	TimePeriod   string  `json:"time_period,omitempty"`
	Season       string  `json:"season,omitempty"`
	Premium      bool    `json:"premium,omitempty"`
	Budget       bool    `json:"budget,omitempty"`
	Professional bool    `json:"professional,omitempty"`
}

// Enhance appends one sentence per present option, in a fixed order.
func Enhance(base string, opts Options) string {
	var lines []string
	if opts.Realistic == nil || *opts.Realistic {
		lines = append(lines, "Ensure all data is realistic and plausible.")
	}
	if opts.Diverse == nil || *opts.Diverse {
		lines = append(lines, "Generate diverse and varied instances.")
	}
	if v := strings.TrimSpace(opts.Region); v != "" {
		lines = append(lines, fmt.Sprintf("Data should be appropriate for %s region.", v))
	}
	if v := strings.TrimSpace(opts.Country); v != "" {
		lines = append(lines, fmt.Sprintf("Use %s country-specific conventions.", v))
	}
	if v := strings.TrimSpace(opts.Language); v != "" {
		lines = append(lines, fmt.Sprintf("Use %s language and cultural context.", v))
	}
	if opts.AgeRange != nil {
		lines = append(lines, fmt.Sprintf("Ages should be between %d and %d.", opts.AgeRange[0], opts.AgeRange[1]))
	}
	if v := strings.TrimSpace(opts.Gender); v != "" {
		lines = append(lines, fmt.Sprintf("Focus on %s demographics.", v))
	}
	if v := strings.TrimSpace(opts.Industry); v != "" {
		lines = append(lines, fmt.Sprintf("Context should be relevant to %s industry.", v))
	}
	if v := strings.TrimSpace(opts.BusinessSize); v != "" {
		lines = append(lines, fmt.Sprintf("Target %s business context.", v))
	}
	if v := strings.TrimSpace(opts.TimePeriod); v != "" {
		lines = append(lines, fmt.Sprintf("Data should reflect %s time period.", v))
	}
	if v := strings.TrimSpace(opts.Season); v != "" {
		lines = append(lines, fmt.Sprintf("Consider %s seasonal context.", v))
	}
	if opts.Premium {
		lines = append(lines, "Focus on premium, high-quality options.")
	}
	if opts.Budget {
		lines = append(lines, "Focus on budget-friendly, economical options.")
	}
	if opts.Professional {
		lines = append(lines, "Use professional, business-appropriate context.")
	}
	if len(lines) == 0 {
		return base
	}
	return base + "\n\n" + strings.Join(lines, "\n")
}

// OptionsFromMap reads options from loosely typed input such as CLI
// key=value pairs or a decoded JSON object. Unknown keys are ignored.
func OptionsFromMap(m map[string]any) (Options, error) {
	var o Options
	for k, v := range m {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "realistic":
			b, err := toBool(v)
			if err != nil {
				return o, fmt.Errorf("option realistic: %w", err)
			}
			o.Realistic = &b
		case "diverse":
			b, err := toBool(v)
			if err != nil {
				return o, fmt.Errorf("option diverse: %w", err)
			}
			o.Diverse = &b
		case "region":
			o.Region = fmt.Sprint(v)
		case "country":
			o.Country = fmt.Sprint(v)
		case "language":
			o.Language = fmt.Sprint(v)
		case "age_range":
			r, err := toRange(v)
			if err != nil {
				return o, fmt.Errorf("option age_range: %w", err)
			}
			o.AgeRange = &r
		case "gender":
			o.Gender = fmt.Sprint(v)
		case "industry":
			o.Industry = fmt.Sprint(v)
		case "business_size":
			o.BusinessSize = fmt.Sprint(v)
		case "time_period":
			o.TimePeriod = fmt.Sprint(v)
		case "season":
			o.Season = fmt.Sprint(v)
		case "premium", "budget", "professional":
			b, err := toBool(v)
			if err != nil {
				return o, fmt.Errorf("option %s: %w", k, err)
			}
			switch strings.ToLower(strings.TrimSpace(k)) {
			case "premium":
				o.Premium = b
			case "budget":
				o.Budget = b
			default:
				o.Professional = b
			}
		}
	}
	return o, nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

// toRange accepts [min, max] sequences and "min-max" strings.
func toRange(v any) ([2]int, error) {
	var out [2]int
	switch x := v.(type) {
	case string:
		lo, hi, ok := strings.Cut(x, "-")
		if !ok {
			return out, fmt.Errorf("expected min-max, got %q", x)
		}
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return out, err
		}
		b, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return out, err
		}
		out = [2]int{a, b}
	case []any:
		if len(x) != 2 {
			return out, fmt.Errorf("expected two values, got %d", len(x))
		}
		for i, e := range x {
			n, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(e)))
			if err != nil {
				return out, err
			}
			out[i] = n
		}
	case []int:
		if len(x) != 2 {
			return out, fmt.Errorf("expected two values, got %d", len(x))
		}
		out = [2]int{x[0], x[1]}
	default:
		return out, fmt.Errorf("unsupported age range %T", v)
	}
	if out[0] > out[1] {
		out[0], out[1] = out[1], out[0]
	}
	return out, nil
}
