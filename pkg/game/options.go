package game

// OptionCount is the number of options presented after every turn.
const OptionCount = 3

// FallbackOptions pad a verdict that came back with too few options.
var FallbackOptions = []Option{
	{ID: "opt_observe", Text: "Observe your surroundings", RiskLevel: RiskLow, Type: OptionObservation},
	{ID: "opt_move", Text: "Move carefully to avoid exposure", RiskLevel: RiskMedium, Type: OptionStealth},
	{ID: "opt_act", Text: "Take decisive action to push things forward", RiskLevel: RiskHigh, Type: OptionAction},
}

// EnsureOptions returns exactly OptionCount options. Extra options are
// dropped; missing ones are filled from FallbackOptions, skipping any whose
// id is already taken.
func EnsureOptions(options []Option) []Option {
	if len(options) >= OptionCount {
		return append([]Option{}, options[:OptionCount]...)
	}

	out := append(make([]Option, 0, OptionCount), options...)
	taken := make(map[string]struct{}, len(options))
	for _, o := range options {
		taken[o.ID] = struct{}{}
	}
	for _, fb := range FallbackOptions {
		if len(out) == OptionCount {
			break
		}
		if _, ok := taken[fb.ID]; ok {
			continue
		}
		out = append(out, fb)
	}
	return out
}
