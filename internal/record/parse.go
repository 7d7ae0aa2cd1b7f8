package record

import "strings"

// Typed tag records. Raw tag arrays are loosely-typed positional lists; the
// aggregators only ever consume them through this closed set, validated once
// at the ingestion boundary instead of threading raw arrays everywhere.

// MembershipTag declares a roster member: (member, identity, displayName,
// [globalFlag]).
type MembershipTag struct {
	Identity    string
	DisplayName string
	Global      bool
}

// CapabilityTag assigns a capability value to one or more named members:
// (model|tool, value, displayName...). The value comes first, followed by
// the target display names.
type CapabilityTag struct {
	Family  string // TagModel or TagTool
	Value   string
	Targets []string
}

// ReferenceTag points back at another record or thread.
type ReferenceTag struct {
	Target string
}

// SuggestionTag carries an ordered list of suggested values.
type SuggestionTag struct {
	Values []string
}

// ParsedTags is the validated view of a record's tag list.
type ParsedTags struct {
	Memberships  []MembershipTag
	Capabilities []CapabilityTag
	References   []ReferenceTag
	Suggestions  []SuggestionTag
	AgentMarker  bool
}

const globalFlag = "global"

// Parse converts a record's raw tag arrays into typed tags. Unrecognized or
// malformed shapes are skipped; parsing never fails.
func Parse(r Record) ParsedTags {
	var parsed ParsedTags
	for _, tag := range r.Tags {
		if len(tag) == 0 {
			continue
		}
		switch tag[0] {
		case TagMember:
			if len(tag) < 3 {
				continue
			}
			identity := strings.TrimSpace(tag[1])
			name := strings.TrimSpace(tag[2])
			if identity == "" || name == "" {
				continue
			}
			member := MembershipTag{Identity: identity, DisplayName: name}
			if len(tag) > 3 {
				member.Global = tag[3] == globalFlag
			}
			parsed.Memberships = append(parsed.Memberships, member)
		case TagModel, TagTool:
			if len(tag) < 3 {
				continue
			}
			value := strings.TrimSpace(tag[1])
			if value == "" {
				continue
			}
			targets := make([]string, 0, len(tag)-2)
			for _, target := range tag[2:] {
				target = strings.TrimSpace(target)
				if target == "" {
					continue
				}
				targets = append(targets, target)
			}
			if len(targets) == 0 {
				continue
			}
			parsed.Capabilities = append(parsed.Capabilities, CapabilityTag{
				Family:  tag[0],
				Value:   value,
				Targets: targets,
			})
		case TagReference:
			if len(tag) < 2 || strings.TrimSpace(tag[1]) == "" {
				continue
			}
			parsed.References = append(parsed.References, ReferenceTag{Target: tag[1]})
		case TagSuggestion:
			if len(tag) < 2 {
				continue
			}
			parsed.Suggestions = append(parsed.Suggestions, SuggestionTag{
				Values: append([]string(nil), tag[1:]...),
			})
		case TagAgent:
			parsed.AgentMarker = true
		}
	}
	return parsed
}
