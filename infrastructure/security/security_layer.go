package security

import (
	"sort"
	"strings"

	"desktop_automation/domain/entities"
	"desktop_automation/infrastructure/keymap"

	"github.com/sirupsen/logrus"
)

// RiskLevel grades how much damage an action can do if it misfires
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Finding is one risky action inside an objective
type Finding struct {
	ObjectiveID string
	Index       int
	Action      entities.ActionType
	Risk        RiskLevel
	Why         string
}

type SecurityLayer struct {
	logger *logrus.Logger
}

func NewSecurityLayer(logger *logrus.Logger) *SecurityLayer {
	return &SecurityLayer{
		logger: logger,
	}
}

var destructiveKeywords = []string{
	"delete", "remove", "clear", "reset", "discard", "uninstall", "empty trash",
}

// closing or destroying combinations, written with sorted modifiers
var destructiveHotkeys = map[string]bool{
	"alt+f4":       true,
	"ctrl+w":       true,
	"ctrl+q":       true,
	"cmd+w":        true,
	"cmd+q":        true,
	"shift+delete": true,
	"ctrl+shift+w": true,
	"ctrl+delete":  true,
	"cmd+delete":   true,
}

// RequiresApproval - reports whether the action should be confirmed before it runs
func (s *SecurityLayer) RequiresApproval(action entities.Action) bool {
	return s.RiskOf(action) == RiskHigh
}

// RiskOf - grades a single action
func (s *SecurityLayer) RiskOf(action entities.Action) RiskLevel {
	risk, _ := s.assess(action)
	return risk
}

func (s *SecurityLayer) assess(action entities.Action) (RiskLevel, string) {
	switch action.Type {
	case entities.ActionCloseWindow:
		if action.DismissSaveDialog {
			return RiskHigh, "closes the window and discards unsaved changes"
		}
		return RiskMedium, "closes the window"

	case entities.ActionHotkey:
		if combo := normalizeCombo(action.Keys); destructiveHotkeys[combo] {
			return RiskHigh, "sends " + combo
		}
		return RiskMedium, ""

	case entities.ActionKeyPress:
		if strings.EqualFold(action.Key, "delete") {
			return RiskMedium, "presses delete"
		}
		return RiskLow, ""

	case entities.ActionClickText, entities.ActionClickImage:
		target := strings.ToLower(action.Text + " " + action.Template)
		for _, keyword := range destructiveKeywords {
			if strings.Contains(target, keyword) {
				return RiskHigh, "clicks '" + keyword + "'"
			}
		}
		return RiskMedium, ""

	case entities.ActionTypeText:
		return RiskMedium, ""
	}
	return RiskLow, ""
}

// Review - lists the high-risk actions of an objective
func (s *SecurityLayer) Review(objective entities.Objective) []Finding {
	var findings []Finding
	for i, action := range objective.Actions {
		risk, why := s.assess(action)
		if risk != RiskHigh {
			continue
		}
		s.logger.Debugf("  [RISK] %s action %d (%s): %s", objective.ID, i+1, action.Type, why)
		findings = append(findings, Finding{
			ObjectiveID: objective.ID,
			Index:       i,
			Action:      action.Type,
			Risk:        risk,
			Why:         why,
		})
	}
	return findings
}

// normalizeCombo maps key aliases and puts modifiers first in a fixed order,
// so "W+Control" and "ctrl+w" compare equal.
func normalizeCombo(keys []string) string {
	var mods, rest []string
	for _, k := range keys {
		if keymap.IsModifier(k) {
			mods = append(mods, keymap.Key(k))
		} else {
			rest = append(rest, keymap.Key(k))
		}
	}
	sort.SliceStable(mods, func(i, j int) bool {
		return modifierOrder[mods[i]] < modifierOrder[mods[j]]
	})
	return strings.Join(append(mods, rest...), "+")
}

var modifierOrder = map[string]int{"ctrl": 0, "cmd": 1, "alt": 2, "shift": 3}
