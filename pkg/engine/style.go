package engine

import (
	"strings"

	"golang.org/x/text/cases"
)

const (
	mistwoodStyle = "dense fog, a remote small town, the 1990s, oppressive, suspense horror"
	defaultStyle  = "immersive, second person, atmospheric narration"
)

// InferWorldStyle derives the narrator's style tag from the world template.
// A Caser is stateful, so one is created per call.
func InferWorldStyle(worldTemplate string) string {
	if strings.Contains(cases.Fold().String(worldTemplate), "mistwood") || strings.Contains(worldTemplate, "雾隐镇") {
		return mistwoodStyle
	}
	return defaultStyle
}
